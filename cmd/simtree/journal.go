package main

import (
	"context"
	"fmt"
	"time"

	"github.com/scott-cotton/cli"

	"github.com/signadot/simtree/encode"
	"github.com/signadot/simtree/mirror"
	"github.com/signadot/simtree/object"
	"github.com/signadot/simtree/store"
)

func journalList(cfg *JournalListConfig, cc *cli.Context, args []string) error {
	args, err := cfg.List.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: journal list requires one argument, the journal", cli.ErrUsage)
	}
	ctx := context.Background()
	st, err := store.Open(ctx, args[0])
	if err != nil {
		return err
	}
	defer st.Close()
	batches, err := st.Batches(ctx, int64(cfg.Since))
	if err != nil {
		return err
	}
	for _, b := range batches {
		fmt.Fprintf(cc.Out, "%d\t%s\t%s", b.Commit, b.Time.Format(time.RFC3339Nano), b.MsgID)
		if b.Err != "" {
			fmt.Fprintf(cc.Out, "\terror: %s", b.Err)
		}
		fmt.Fprintln(cc.Out)
	}
	return nil
}

func journalReplay(cfg *JournalReplayConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Replay.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: journal replay requires one argument, the journal", cli.ErrUsage)
	}
	f, err := cfg.getFactory()
	if err != nil {
		return err
	}
	var base object.Node
	if cfg.Base != "" {
		if base, err = getDocFile(cfg.MainConfig, cc, cfg.Base); err != nil {
			return err
		}
	}
	ctx := context.Background()
	st, err := store.Open(ctx, args[0])
	if err != nil {
		return err
	}
	defer st.Close()
	root, commit, err := mirror.Replay(ctx, f, st, base, int64(cfg.UpTo))
	if err != nil {
		return fmt.Errorf("error replaying %s: %w", args[0], err)
	}
	if err := cfg.write(cc.Out, root, cfg.format(encode.XMLFormat)); err != nil {
		return err
	}
	if cfg.UpTo >= 0 && commit != int64(cfg.UpTo) {
		return fmt.Errorf("journal %s ends at commit %d", args[0], commit)
	}
	return nil
}
