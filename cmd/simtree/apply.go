package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/scott-cotton/cli"

	"github.com/signadot/simtree/encode"
	"github.com/signadot/simtree/mirror"
	"github.com/signadot/simtree/object"
	"github.com/signadot/simtree/store"
)

func apply(cfg *ApplyConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Apply.Parse(cc, args)
	if err != nil {
		cfg.Apply.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if len(args) < 2 {
		return fmt.Errorf("%w: apply requires a document and at least one batch", cli.ErrUsage)
	}
	root, err := getDocFile(cfg.MainConfig, cc, args[0])
	if err != nil {
		return err
	}
	conf, err := cfg.config()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := []mirror.Option{mirror.FromConfig(conf)}
	if cfg.Strict {
		opts = append(opts, mirror.Strict(true))
	}
	journal := cfg.Journal
	if journal == "" {
		journal = conf.Journal.Path
	}
	if journal != "" {
		st, err := store.Open(ctx, journal)
		if err != nil {
			return err
		}
		defer st.Close()
		opts = append(opts, mirror.WithJournal(st))
	}
	m := mirror.New(root.Factory(), root, opts...)
	if err := m.Start(ctx); err != nil {
		return err
	}

	var errs []error
	for _, file := range args[1:] {
		d, err := readFile(cc, file)
		if err != nil {
			return err
		}
		res, err := m.Apply(ctx, d)
		if err != nil {
			return fmt.Errorf("error applying %s: %w", file, err)
		}
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", file, res.Err))
		}
		if !cfg.Changes {
			continue
		}
		fmt.Fprintf(cc.Out, "# %s batch %s", file, res.BatchID)
		if res.Commit != 0 {
			fmt.Fprintf(cc.Out, " commit %d", res.Commit)
		}
		fmt.Fprintln(cc.Out)
		for _, c := range res.Changes {
			fmt.Fprintf(cc.Out, "%s %s\n", c.Kind, c.Path)
		}
	}
	if !cfg.Changes {
		err = m.View(ctx, func(root object.Node) error {
			return cfg.write(cc.Out, root, cfg.format(encode.XMLFormat))
		})
		if err != nil {
			return err
		}
	}
	cancel()
	<-m.Done()
	return errors.Join(errs...)
}
