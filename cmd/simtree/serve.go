package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
	"github.com/google/gops/agent"
	"github.com/scott-cotton/cli"

	"github.com/signadot/simtree/mirror"
	"github.com/signadot/simtree/rpc"
	"github.com/signadot/simtree/store"
)

func serve(cfg *ServeConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Serve.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: serve requires one argument, the document to mirror", cli.ErrUsage)
	}
	conf, err := cfg.config()
	if err != nil {
		return err
	}
	root, err := getDocFile(cfg.MainConfig, cc, args[0])
	if err != nil {
		return err
	}

	if cfg.Gops {
		if err := agent.Listen(agent.Options{}); err != nil {
			glog.Warningf("gops agent failed: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		glog.Info("shutting down")
		cancel()
	}()

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
	defer func() {
		cancel()
		<-m.Done()
	}()

	srv := rpc.NewServer(m)
	addr := cfg.Addr
	if addr == "" {
		addr = conf.RPC.Addr
	}
	if addr != "" {
		return srv.ListenAndServe(ctx, addr)
	}
	return srv.ServeStream(ctx, &stdioReadWriteCloser{read: cc.In, write: cc.Out})
}

type stdioReadWriteCloser struct {
	read  io.Reader
	write io.Writer
}

func (s *stdioReadWriteCloser) Read(p []byte) (n int, err error) {
	return s.read.Read(p)
}

func (s *stdioReadWriteCloser) Write(p []byte) (n int, err error) {
	return s.write.Write(p)
}

// Close closes the input when it can be, so that a pending read returns.
func (s *stdioReadWriteCloser) Close() error {
	if c, ok := s.read.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
