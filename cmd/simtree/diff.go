package main

import (
	"fmt"

	"github.com/scott-cotton/cli"

	"github.com/signadot/simtree/libdiff"
)

func diff(cfg *DiffConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Diff.Parse(cc, args)
	if err != nil {
		cfg.Diff.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: diff requires 2 args, got %v", cli.ErrUsage, args)
	}
	a, err := getDocFile(cfg.MainConfig, cc, args[0])
	if err != nil {
		return fmt.Errorf("error decoding %s: %w", args[0], err)
	}
	b, err := getDocFile(cfg.MainConfig, cc, args[1])
	if err != nil {
		return fmt.Errorf("error decoding %s: %w", args[1], err)
	}
	if cfg.Patch {
		p, err := libdiff.MergePatch(a, b)
		if err != nil {
			return err
		}
		if libdiff.Empty(p) {
			return nil
		}
		if _, err := cc.Out.Write(append(p, '\n')); err != nil {
			return err
		}
		return cli.ExitCodeErr(1)
	}
	d := libdiff.Text(a, b)
	if d == "" {
		return nil
	}
	if _, err := cc.Out.Write([]byte(d)); err != nil {
		return err
	}
	return cli.ExitCodeErr(1)
}
