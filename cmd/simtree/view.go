package main

import (
	"fmt"
	"io"

	"github.com/scott-cotton/cli"

	"github.com/signadot/simtree/encode"
)

func view(cfg *ViewConfig, cc *cli.Context, args []string) error {
	args, err := cfg.View.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		args = []string{"-"}
	}
	for i, file := range args {
		if i > 0 {
			if _, err := cc.Out.Write([]byte("\n---\n")); err != nil {
				return err
			}
		}
		if err := viewFile(cfg, cc, cc.Out, file); err != nil {
			return err
		}
	}
	return nil
}

func viewFile(cfg *ViewConfig, cc *cli.Context, w io.Writer, file string) error {
	n, err := getDocFile(cfg.MainConfig, cc, file)
	if err != nil {
		return err
	}
	if err := cfg.write(w, n, cfg.format(encode.TreeFormat), encode.Depth(cfg.Depth)); err != nil {
		return fmt.Errorf("error encoding %s: %w", file, err)
	}
	return nil
}
