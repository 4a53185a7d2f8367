package main

import (
	"fmt"
	"io"
	"os"

	"github.com/scott-cotton/cli"

	"github.com/signadot/simtree/dom"
	"github.com/signadot/simtree/object"
)

func readFile(cc *cli.Context, path string) ([]byte, error) {
	var r io.Reader
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	} else {
		r = cc.In
	}
	d, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading %q: %w", path, err)
	}
	return d, nil
}

// getDocFile reads and builds the simulation document at path, "-" being
// the command input.
func getDocFile(cfg *MainConfig, cc *cli.Context, path string) (object.Node, error) {
	f, err := cfg.getFactory()
	if err != nil {
		return nil, err
	}
	d, err := readFile(cc, path)
	if err != nil {
		return nil, err
	}
	el, err := dom.ParseBytes(d)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}
	n, err := f.FromElement(el)
	if err != nil {
		return nil, fmt.Errorf("error loading %s: %w", path, err)
	}
	return n, nil
}
