package rpc

import (
	"context"
	"io"
	"net"

	"github.com/goccy/go-json"
	"github.com/golang/glog"
	"go.lsp.dev/jsonrpc2"
)

// Client talks to a Server. Notifications of its subscriptions arrive on
// Changed; when Changed is full further notifications are dropped.
type Client struct {
	conn    jsonrpc2.Conn
	Changed chan *Changed
}

// Dial connects to a server listening on addr.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewClient(ctx, c), nil
}

// NewClient runs the client side of a connection over rwc.
func NewClient(ctx context.Context, rwc io.ReadWriteCloser) *Client {
	c := &Client{
		conn:    jsonrpc2.NewConn(jsonrpc2.NewStream(rwc)),
		Changed: make(chan *Changed, 64),
	}
	c.conn.Go(ctx, c.handle)
	return c
}

func (c *Client) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	if req.Method() != MethodChanged {
		return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
	}
	ch := &Changed{}
	if err := json.Unmarshal([]byte(req.Params()), ch); err != nil {
		glog.Warningf("rpc: bad %s notification: %v", MethodChanged, err)
		return nil
	}
	select {
	case c.Changed <- ch:
	default:
		glog.Warningf("rpc: dropping notification for %s", ch.Subscription)
	}
	return nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Done is closed when the connection is closed.
func (c *Client) Done() <-chan struct{} {
	return c.conn.Done()
}

func (c *Client) Get(ctx context.Context, path, format string) (*GetResult, error) {
	res := &GetResult{}
	_, err := c.conn.Call(ctx, MethodGet, &GetParams{Path: path, Format: format}, res)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) Apply(ctx context.Context, batch []byte) (*ApplyResult, error) {
	res := &ApplyResult{}
	_, err := c.conn.Call(ctx, MethodApply, &ApplyParams{Batch: string(batch)}, res)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) Query(ctx context.Context, expr, path string) ([]string, error) {
	res := &QueryResult{}
	_, err := c.conn.Call(ctx, MethodQuery, &QueryParams{Expr: expr, Path: path}, res)
	if err != nil {
		return nil, err
	}
	return res.Paths, nil
}

func (c *Client) Factions(ctx context.Context) ([]string, error) {
	res := &FactionsResult{}
	_, err := c.conn.Call(ctx, MethodFactions, nil, res)
	if err != nil {
		return nil, err
	}
	return res.Paths, nil
}

// Subscribe asks for the changes at or under path and returns the
// subscription id carried by the matching notifications.
func (c *Client) Subscribe(ctx context.Context, path string) (string, error) {
	res := &SubscribeResult{}
	_, err := c.conn.Call(ctx, MethodSubscribe, &SubscribeParams{Path: path}, res)
	if err != nil {
		return "", err
	}
	return res.Subscription, nil
}

func (c *Client) Unsubscribe(ctx context.Context, id string) error {
	_, err := c.conn.Call(ctx, MethodUnsubscribe, &UnsubscribeParams{Subscription: id}, nil)
	return err
}
