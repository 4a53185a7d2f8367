package main

import (
	"fmt"
	"strings"

	"github.com/scott-cotton/cli"

	"github.com/signadot/simtree/encode"
	"github.com/signadot/simtree/filter"
	"github.com/signadot/simtree/object"
	"github.com/signadot/simtree/primitive"
)

func query(cfg *QueryConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Query.Parse(cc, args)
	if err != nil {
		cfg.Query.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: query requires one argument, a filter expression", cli.ErrUsage)
	}
	pred, err := filter.Compile(args[0])
	if err != nil {
		return fmt.Errorf("%w: %w", cli.ErrUsage, err)
	}
	files := args[1:]
	if len(files) == 0 {
		files = []string{"-"}
	}
	for _, file := range files {
		if err := queryFile(cfg, cc, pred, file); err != nil {
			return fmt.Errorf("error querying %s with %s: %w", file, pred, err)
		}
	}
	return nil
}

func queryFile(cfg *QueryConfig, cc *cli.Context, pred *filter.Predicate, file string) error {
	root, err := getDocFile(cfg.MainConfig, cc, file)
	if err != nil {
		return err
	}
	from := root
	if strings.TrimSpace(cfg.Path) != "" {
		ref, err := primitive.ParseReference(cfg.Path)
		if err != nil {
			return fmt.Errorf("%w: -path: %w", cli.ErrUsage, err)
		}
		if from, err = object.Lookup(root, ref); err != nil {
			return err
		}
	}
	sel, err := filter.Select(from, pred)
	if err != nil {
		return err
	}
	for _, n := range sel {
		if !cfg.Values {
			fmt.Fprintln(cc.Out, object.Path(n))
			continue
		}
		if err := cfg.write(cc.Out, n, cfg.format(encode.TreeFormat)); err != nil {
			return err
		}
	}
	return nil
}
