package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"

	"github.com/signadot/simtree/config"
	"github.com/signadot/simtree/encode"
	"github.com/signadot/simtree/object"
	"github.com/signadot/simtree/schema"
)

type MainConfig struct {
	ConfigFile string `cli:"name=config desc='configuration file (yaml)'"`
	SchemaFile string `cli:"name=schema desc='schema file, default the built-in simulation schema'"`
	Color      bool   `cli:"name=color desc='encode with color'"`

	OutFormat *encode.Format

	Out      string
	CloseOut func() error

	Main *cli.Command

	conf    *config.Config
	factory *object.Factory
}

func (cfg *MainConfig) fmtFunc(fp **encode.Format) cli.FuncOpt {
	return cli.FuncOpt(func(_ *cli.Context, v string) (any, error) {
		f, err := encode.ParseFormat(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", cli.ErrUsage, err)
		}
		*fp = &f
		return f, nil
	})
}

// optSet reports whether the main option name was given on the command
// line.
func (cfg *MainConfig) optSet(name string) bool {
	for _, opt := range cfg.Main.Opts {
		if opt.Name == name {
			return opt.Value != nil
		}
	}
	return false
}

// config loads the configuration file once; without one the defaults
// apply. The -schema option overrides the schema path.
func (cfg *MainConfig) config() (*config.Config, error) {
	if cfg.conf != nil {
		return cfg.conf, nil
	}
	c := config.DefaultConfig()
	if cfg.ConfigFile != "" {
		var err error
		c, err = config.LoadConfig(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}
	}
	if cfg.SchemaFile != "" {
		c.Schema = cfg.SchemaFile
	}
	cfg.conf = c
	return c, nil
}

func (cfg *MainConfig) getFactory() (*object.Factory, error) {
	if cfg.factory != nil {
		return cfg.factory, nil
	}
	c, err := cfg.config()
	if err != nil {
		return nil, err
	}
	s := schema.Default()
	if c.Schema != "" {
		s, err = schema.LoadFile(c.Schema)
		if err != nil {
			return nil, fmt.Errorf("could not load schema %s: %w", c.Schema, err)
		}
	}
	cfg.factory = object.NewFactory(s)
	return cfg.factory, nil
}

func (cfg *MainConfig) format(def encode.Format) encode.Format {
	if cfg.OutFormat != nil {
		return *cfg.OutFormat
	}
	return def
}

func (cfg *MainConfig) encOpts(w io.Writer) []encode.EncodeOption {
	if cfg.useColor(w) {
		return []encode.EncodeOption{encode.EncodeColors(encode.NewColors())}
	}
	return nil
}

func (cfg *MainConfig) useColor(w io.Writer) bool {
	if cfg.optSet("color") {
		return cfg.Color
	}
	if c, err := cfg.config(); err == nil {
		switch c.Color {
		case config.ColorAlways:
			return true
		case config.ColorNever:
			return false
		}
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}

// write encodes n to w in format f.
func (cfg *MainConfig) write(w io.Writer, n object.Node, f encode.Format, opts ...encode.EncodeOption) error {
	switch f {
	case encode.YAMLFormat:
		return encode.YAML(w, n)
	case encode.JSONFormat:
		return encode.JSON(w, n)
	case encode.TreeFormat:
		return encode.Tree(w, n, append(cfg.encOpts(w), opts...)...)
	default:
		return encode.WriteDocument(w, n)
	}
}

type ViewConfig struct {
	*MainConfig
	Depth int `cli:"name=depth desc='maximum depth shown, 0 for all'"`

	View *cli.Command
}

type ApplyConfig struct {
	*MainConfig
	Strict  bool   `cli:"name=strict desc='reject a batch whole on its first error'"`
	Journal string `cli:"name=journal desc='sqlite journal recording the applied batches'"`
	Changes bool   `cli:"name=changes desc='print the changes of each batch instead of the result'"`

	Apply *cli.Command
}

type DiffConfig struct {
	*MainConfig
	Patch bool `cli:"name=patch desc='output a JSON merge patch'"`

	Diff *cli.Command
}

type QueryConfig struct {
	*MainConfig
	Path   string `cli:"name=path desc='only search under this node path'"`
	Values bool   `cli:"name=values desc='print the matched nodes, not just their paths'"`

	Query *cli.Command
}

type SchemaConfig struct {
	*MainConfig
	Schema *cli.Command
}

type SchemaListConfig struct {
	*MainConfig
	Derived bool `cli:"name=derived desc='list the concrete types substituting each type'"`

	List *cli.Command
}

type SchemaCheckConfig struct {
	*MainConfig
	Check *cli.Command
}

type JournalConfig struct {
	*MainConfig
	Journal *cli.Command
}

type JournalListConfig struct {
	*MainConfig
	Since int `cli:"name=since desc='list commits after this one'"`

	List *cli.Command
}

type JournalReplayConfig struct {
	*MainConfig
	UpTo int    `cli:"name=upto desc='replay up to this commit, -1 for all'"`
	Base string `cli:"name=base desc='document to start from when the journal has no snapshot'"`

	Replay *cli.Command
}

type ServeConfig struct {
	*MainConfig
	Addr    string `cli:"name=addr desc='TCP listen address, empty for stdio'"`
	Journal string `cli:"name=journal desc='sqlite journal recording the applied batches'"`
	Strict  bool   `cli:"name=strict desc='reject a batch whole on its first error'"`
	Gops    bool   `cli:"name=gops desc='start a gops agent'"`

	Serve *cli.Command
}
