package main

import (
	"fmt"
	"strings"

	"github.com/scott-cotton/cli"

	"github.com/signadot/simtree/schema"
)

func schemaList(cfg *SchemaListConfig, cc *cli.Context, args []string) error {
	args, err := cfg.List.Parse(cc, args)
	if err != nil {
		return err
	}
	f, err := cfg.getFactory()
	if err != nil {
		return err
	}
	s := f.Schema()
	if len(args) == 0 {
		for _, t := range s.Types() {
			listType(cfg, cc, s, t)
		}
		return nil
	}
	for _, name := range args {
		t := s.Lookup(name)
		if t == nil {
			return fmt.Errorf("%w: no type %q in schema %s", cli.ErrUsage, name, s.Namespace())
		}
		listType(cfg, cc, s, t)
		for _, d := range t.SubElements() {
			fmt.Fprintf(cc.Out, "\t%s\n", d)
		}
	}
	return nil
}

func listType(cfg *SchemaListConfig, cc *cli.Context, s *schema.Schema, t schema.Type) {
	b := &strings.Builder{}
	b.WriteString(t.QName())
	if base := t.Base(); base != nil {
		b.WriteString(" < ")
		b.WriteString(base.QName())
	}
	if t.IsAbstract() {
		b.WriteString(" (abstract)")
	}
	if cfg.Derived {
		var names []string
		for _, d := range s.Derived(t) {
			names = append(names, d.QName())
		}
		b.WriteString(" [")
		b.WriteString(strings.Join(names, ", "))
		b.WriteString("]")
	}
	fmt.Fprintln(cc.Out, b.String())
}

func schemaCheck(cfg *SchemaCheckConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Check.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		args = []string{"-"}
	}
	failed := 0
	for _, file := range args {
		if _, err := getDocFile(cfg.MainConfig, cc, file); err != nil {
			fmt.Fprintf(cc.Out, "%s: FAIL\n  %v\n", file, err)
			failed++
			continue
		}
		fmt.Fprintf(cc.Out, "%s: OK\n", file)
	}
	if failed > 0 {
		return cli.ExitCodeErr(1)
	}
	return nil
}
