package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/golang/glog"
	"github.com/oklog/ulid/v2"
	"go.lsp.dev/jsonrpc2"

	"github.com/signadot/simtree/debug"
	"github.com/signadot/simtree/dom"
	"github.com/signadot/simtree/encode"
	"github.com/signadot/simtree/filter"
	"github.com/signadot/simtree/mirror"
	"github.com/signadot/simtree/object"
	"github.com/signadot/simtree/primitive"
)

const defaultBuffer = 16

// Server serves one mirror to any number of connections.
type Server struct {
	m *mirror.Mirror
}

func NewServer(m *mirror.Mirror) *Server {
	return &Server{m: m}
}

// ListenAndServe accepts TCP connections on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	glog.Infof("rpc: serving on %s", ln.Addr())
	err := jsonrpc2.Serve(ctx, ln, jsonrpc2.ServerFunc(s.ServeConn), 0)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ServeStream serves a single connection over rwc and returns when it
// closes.
func (s *Server) ServeStream(ctx context.Context, rwc io.ReadWriteCloser) error {
	return s.ServeConn(ctx, jsonrpc2.NewConn(jsonrpc2.NewStream(rwc)))
}

// ServeConn serves conn until it closes, then drops its subscriptions.
func (s *Server) ServeConn(ctx context.Context, conn jsonrpc2.Conn) error {
	sess := &session{
		srv:  s,
		conn: conn,
		subs: map[string]*mirror.Subscriber{},
	}
	conn.Go(ctx, sess.handle)
	select {
	case <-conn.Done():
	case <-ctx.Done():
		conn.Close()
		<-conn.Done()
	}
	sess.closeAll()
	err := conn.Err()
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type session struct {
	srv  *Server
	conn jsonrpc2.Conn

	mu   sync.Mutex
	subs map[string]*mirror.Subscriber
}

func (ss *session) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	if debug.RPC() {
		debug.Logf("rpc: %s %s", req.Method(), string(req.Params()))
	}
	var (
		res any
		err error
	)
	switch req.Method() {
	case MethodGet:
		p := &GetParams{}
		if err = decode(req, p); err == nil {
			res, err = ss.srv.get(ctx, p)
		}
	case MethodApply:
		p := &ApplyParams{}
		if err = decode(req, p); err == nil {
			res, err = ss.srv.apply(ctx, p)
		}
	case MethodQuery:
		p := &QueryParams{}
		if err = decode(req, p); err == nil {
			res, err = ss.srv.query(ctx, p)
		}
	case MethodFactions:
		res, err = ss.srv.factions(ctx)
	case MethodSubscribe:
		p := &SubscribeParams{}
		if err = decode(req, p); err == nil {
			res, err = ss.subscribe(ctx, p)
		}
	case MethodUnsubscribe:
		p := &UnsubscribeParams{}
		if err = decode(req, p); err == nil {
			err = ss.unsubscribe(p.Subscription)
		}
	default:
		return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
	}
	if err != nil && debug.RPC() {
		debug.Logf("rpc: %s failed: %v", req.Method(), err)
	}
	return reply(ctx, res, err)
}

func decode(req jsonrpc2.Request, v any) error {
	d := req.Params()
	if len(d) == 0 {
		return nil
	}
	if err := json.Unmarshal([]byte(d), v); err != nil {
		return jsonrpc2.Errorf(jsonrpc2.InvalidParams, "%s: %v", req.Method(), err)
	}
	return nil
}

func lookup(root object.Node, path string) (object.Node, error) {
	if strings.TrimSpace(path) == "" {
		return root, nil
	}
	ref, err := primitive.ParseReference(path)
	if err != nil {
		return nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "path: %v", err)
	}
	n, err := object.Lookup(root, ref)
	if err != nil {
		return nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, err.Error())
	}
	return n, nil
}

func (s *Server) get(ctx context.Context, p *GetParams) (*GetResult, error) {
	switch p.Format {
	case "", FormatXML, FormatJSON:
	default:
		return nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "unknown format %q", p.Format)
	}
	res := &GetResult{}
	err := s.m.View(ctx, func(root object.Node) error {
		n, err := lookup(root, p.Path)
		if err != nil {
			return err
		}
		res.Path = object.Path(n).String()
		res.Type = n.Type().QName()
		if p.Format == FormatJSON {
			res.Value = encode.Project(n)
			return nil
		}
		if _, ok := n.(*object.List); ok {
			res.XML = object.XML(n)
		} else {
			res.XML = dom.String(object.Document(n))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Server) apply(ctx context.Context, p *ApplyParams) (*ApplyResult, error) {
	r, err := s.m.Apply(ctx, []byte(p.Batch))
	if err != nil {
		if errors.Is(err, mirror.ErrRejected) || errors.Is(err, object.ErrParse) {
			return nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, err.Error())
		}
		return nil, err
	}
	res := &ApplyResult{
		BatchID: r.BatchID,
		Commit:  r.Commit,
		Changes: r.Changes,
	}
	if r.Err != nil {
		res.Error = r.Err.Error()
	}
	return res, nil
}

func (s *Server) query(ctx context.Context, p *QueryParams) (*QueryResult, error) {
	pred, err := filter.Compile(p.Expr)
	if err != nil {
		return nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, err.Error())
	}
	res := &QueryResult{Paths: []string{}}
	err = s.m.View(ctx, func(root object.Node) error {
		n, err := lookup(root, p.Path)
		if err != nil {
			return err
		}
		sel, err := filter.Select(n, pred)
		if err != nil {
			return err
		}
		for _, x := range sel {
			res.Paths = append(res.Paths, object.Path(x).String())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Server) factions(ctx context.Context) (*FactionsResult, error) {
	refs, err := s.m.Factions(ctx)
	if err != nil {
		return nil, err
	}
	res := &FactionsResult{Paths: make([]string, len(refs))}
	for i, r := range refs {
		res.Paths[i] = r.String()
	}
	return res, nil
}

func (ss *session) subscribe(ctx context.Context, p *SubscribeParams) (*SubscribeResult, error) {
	if p.Path != "" {
		if _, err := primitive.ParseReference(p.Path); err != nil {
			return nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "path: %v", err)
		}
	}
	buf := p.Buffer
	if buf <= 0 {
		buf = defaultBuffer
	}
	id := ulid.Make().String()
	sub := ss.srv.m.Subscribe(p.Path, buf)
	ss.mu.Lock()
	ss.subs[id] = sub
	ss.mu.Unlock()
	go ss.forward(ctx, id, sub)
	return &SubscribeResult{Subscription: id}, nil
}

// forward relays sub's notifications to the peer until sub is dropped or
// the connection closes.
func (ss *session) forward(ctx context.Context, id string, sub *mirror.Subscriber) {
	for {
		select {
		case n, ok := <-sub.Events:
			if !ok {
				return
			}
			if err := ss.conn.Notify(ctx, MethodChanged, &Changed{Subscription: id, Notification: n}); err != nil {
				glog.Warningf("rpc: notify %s: %v", id, err)
				ss.drop(id)
				return
			}
		case <-sub.Failed:
			// unsubscribe drops the entry before closing Failed
			if ss.drop(id) != nil {
				glog.Warningf("rpc: subscription %s fell behind, dropping", id)
				_ = ss.conn.Notify(ctx, MethodChanged, &Changed{Subscription: id, Failed: true})
			}
			return
		case <-ss.conn.Done():
			return
		}
	}
}

func (ss *session) drop(id string) *mirror.Subscriber {
	ss.mu.Lock()
	sub, ok := ss.subs[id]
	delete(ss.subs, id)
	ss.mu.Unlock()
	if !ok {
		return nil
	}
	ss.srv.m.Unsubscribe(sub)
	return sub
}

func (ss *session) unsubscribe(id string) error {
	if ss.drop(id) == nil {
		return jsonrpc2.NewError(jsonrpc2.InvalidParams, fmt.Sprintf("no subscription %q", id))
	}
	return nil
}

func (ss *session) closeAll() {
	ss.mu.Lock()
	ids := make([]string, 0, len(ss.subs))
	for id := range ss.subs {
		ids = append(ids, id)
	}
	ss.mu.Unlock()
	for _, id := range ids {
		ss.drop(id)
	}
}
