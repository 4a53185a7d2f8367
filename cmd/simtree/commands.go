package main

import (
	"github.com/scott-cotton/cli"
)

func MainCommand() *cli.Command {
	cfg := &MainConfig{}
	sOpts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts := append(sOpts, []*cli.Opt{
		&cli.Opt{
			Name:        "o",
			Description: "output file (default stdout)",
			Type:        cli.NamedFuncOpt(cfg.outOpt, "(filepath)"),
		},
		&cli.Opt{
			Name:        "O",
			Aliases:     []string{"ofmt"},
			Description: "output format: xml, yaml, json, tree",
			Type:        cli.NamedFuncOpt(cfg.fmtFunc(&cfg.OutFormat), "(format)"),
		}}...)

	return cli.NewCommandAt(&cfg.Main, "simtree").
		WithSynopsis("simtree [opts] command [opts]").
		WithDescription("simtree works with simulation object trees and their update batches.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return simtreeMain(cfg, cc, args)
		}).
		WithSubs(
			ViewCommand(cfg),
			ApplyCommand(cfg),
			DiffCommand(cfg),
			QueryCommand(cfg),
			SchemaCommand(cfg),
			JournalCommand(cfg),
			ServeCommand(cfg))
}

func ViewCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &ViewConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.View, "view").
		WithAliases("v").
		WithSynopsis("view [-depth n] [files]").
		WithDescription("view simulation documents as an outline, yaml, json or xml").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return view(cfg, cc, args)
		})
}

func ApplyCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &ApplyConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Apply, "apply").
		WithAliases("a").
		WithSynopsis("apply [-strict] [-journal db] [-changes] <document> <batches...>").
		WithDescription("apply update batches to a document in order and output the result").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return apply(cfg, cc, args)
		})
}

func DiffCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &DiffConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Diff, "diff").
		WithAliases("d", "di").
		WithSynopsis("diff [-patch] a b").
		WithDescription("diff two simulation documents, exiting 1 when they differ").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return diff(cfg, cc, args)
		})
}

func QueryCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &QueryConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Query, "query").
		WithAliases("q").
		WithSynopsis("query [-path p] [-values] <expr> [files]").
		WithDescription(queryDescription).
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return query(cfg, cc, args)
		})
}

const queryDescription = `query selects the nodes of documents matching a filter expression.

The expression is evaluated on every node and must yield a boolean.  It can
use:

  id        the node identifier
  type      the xsi:type, for example "sp:MilitaryUnit"
  kind      the node kind, for example "Integer" or "List"
  leaf      whether the node holds a value
  parent    the parent identifier
  depth     the depth below the root, 0 for the root
  path      the node path, identifiers joined with ':'
  children  the number of children
  selected  whether the node is selected
  value     the value of a leaf; durations and timestamps in milliseconds
  isa(t)    whether the node's type is t or derives from it

For example:

  simtree query 'isa("MilitaryUnit") && children > 0' scenario.xml
  simtree query 'leaf && type == "sp:NonNegativeInteger" && value > 100' scenario.xml`

func SchemaCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &SchemaConfig{MainConfig: mainCfg}
	return cli.NewCommandAt(&cfg.Schema, "schema").
		WithSynopsis("schema <subcommand>").
		WithDescription("schema commands for inspecting types and checking documents").
		WithSubs(
			SchemaListCommand(cfg.MainConfig),
			SchemaCheckCommand(cfg.MainConfig))
}

func SchemaListCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &SchemaListConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.List, "list").
		WithAliases("l", "ls").
		WithSynopsis("list [-derived] [types...]").
		WithDescription("list schema types, or the declarations of the named types").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return schemaList(cfg, cc, args)
		})
}

func SchemaCheckCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &SchemaCheckConfig{MainConfig: mainCfg}
	return cli.NewCommandAt(&cfg.Check, "check").
		WithSynopsis("check [doc-files...]").
		WithDescription("check that documents load against the schema").
		WithRun(func(cc *cli.Context, args []string) error {
			return schemaCheck(cfg, cc, args)
		})
}

func JournalCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &JournalConfig{MainConfig: mainCfg}
	return cli.NewCommandAt(&cfg.Journal, "journal").
		WithAliases("j").
		WithSynopsis("journal <subcommand>").
		WithDescription("inspect and replay sqlite journals of applied batches").
		WithSubs(
			JournalListCommand(cfg.MainConfig),
			JournalReplayCommand(cfg.MainConfig))
}

func JournalListCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &JournalListConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.List, "list").
		WithAliases("l", "ls").
		WithSynopsis("list [-since commit] <journal>").
		WithDescription("list the journaled batches").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return journalList(cfg, cc, args)
		})
}

func JournalReplayCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &JournalReplayConfig{MainConfig: mainCfg, UpTo: -1}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Replay, "replay").
		WithSynopsis("replay [-upto commit] [-base document] <journal>").
		WithDescription("rebuild the tree as of a commit from the nearest snapshot and the batches after it").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return journalReplay(cfg, cc, args)
		})
}

func ServeCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &ServeConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Serve, "serve").
		WithSynopsis("serve [-addr addr] [-journal db] [-strict] [-gops] <document>").
		WithDescription("mirror a document and serve it over JSON-RPC on stdio or TCP").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return serve(cfg, cc, args)
		})
}
