package rpc

import (
	"context"
	"errors"
	"flag"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/google/go-cmp/cmp"
	"go.lsp.dev/jsonrpc2"

	"github.com/signadot/simtree/dom"
	"github.com/signadot/simtree/mirror"
	"github.com/signadot/simtree/object"
	"github.com/signadot/simtree/schema"
)

func init() {
	flag.Set("logtostderr", "true")
	flag.Set("v", "0")
}

var testDoc = `<simulation xmlns:sp="` + dom.SPNamespace + `" xmlns:xsi="` + dom.XSINamespace + `" xsi:type="sp:Simulation">
 <timestepper xsi:type="sp:Timestepper"><dt xsi:type="sp:Duration"><value>60000</value></dt></timestepper>
 <scenario xsi:type="sp:Scenario">
  <startTime xsi:type="sp:Timestamp"><value>2020-01-01T00:00:00.000Z</value></startTime>
  <space xsi:type="sp:Region">
   <area xsi:type="sp:Circle">
    <center xsi:type="sp:Point"><lat>59.3</lat><lon>18.1</lon></center>
    <radius xsi:type="sp:NonNegativeDouble"><value>1000</value></radius>
   </area>
  </space>
  <factions xsi:type="sp:Faction" identifier="blue">
   <symbolIDCode xsi:type="sp:SymbolIDCode"><value><value>SFGPU----------</value></value></symbolIDCode>
  </factions>
  <units xsi:type="sp:MilitaryUnit" identifier="alpha">
   <symbolIDCode xsi:type="sp:SymbolIDCode"><value><value>SFGPU----------</value></value></symbolIDCode>
   <location xsi:type="sp:Point"><lat>59.3</lat><lon>18.1</lon></location>
   <personnel xsi:type="sp:NonNegativeInteger"><value>120</value></personnel>
   <faction xsi:type="sp:Reference"><name>blue</name><scope><name>factions</name></scope></faction>
   <deployed xsi:type="sp:Boolean"><value>true</value></deployed>
  </units>
 </scenario>
</simulation>`

func batch(body string) []byte {
	return []byte(`<batch xmlns:xsi="` + dom.XSINamespace + `" xmlns:sp="` + dom.SPNamespace + `" simulatedTime="2020-01-01T00:01:00.000Z">` + body + `</batch>`)
}

func setPersonnel(v string) []byte {
	return batch(`
<update xsi:type="sp:UpdateScope" identifier="scenario">
 <update xsi:type="sp:UpdateScope" identifier="units">
  <update xsi:type="sp:UpdateModify" identifier="alpha">
   <newValue xsi:type="sp:MilitaryUnit">
    <update xsi:type="sp:UpdateModify" identifier="personnel"><newValue><value>` + v + `</value></newValue></update>
   </newValue>
  </update>
 </update>
</update>`)
}

// connect serves a fresh mirror over a pipe and returns a client for it.
func connect(t *testing.T, opts ...mirror.Option) (*Client, *mirror.Mirror, context.Context) {
	t.Helper()
	f := object.NewFactory(schema.Default())
	el, err := dom.ParseString(testDoc)
	if err != nil {
		t.Fatal(err)
	}
	root, err := f.FromElement(el)
	if err != nil {
		t.Fatal(err)
	}
	m := mirror.New(f, root, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	if err := m.Start(ctx); err != nil {
		t.Fatal(err)
	}
	sc, cc := net.Pipe()
	served := make(chan error, 1)
	go func() {
		served <- NewServer(m).ServeStream(ctx, sc)
	}()
	c := NewClient(ctx, cc)
	t.Cleanup(func() {
		c.Close()
		if err := <-served; err != nil {
			t.Errorf("serve: %v", err)
		}
		cancel()
		<-m.Done()
	})
	return c, m, ctx
}

func rpcCode(t *testing.T, err error) jsonrpc2.Code {
	t.Helper()
	var rerr *jsonrpc2.Error
	if !errors.As(err, &rerr) {
		t.Fatalf("expected a jsonrpc2 error, got %v", err)
	}
	return rerr.Code
}

func TestGet(t *testing.T) {
	c, _, ctx := connect(t)

	res, err := c.Get(ctx, "", "")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, res.Path, "simulation")
	assert.Equal(t, res.Type, "sp:Simulation")
	el, err := dom.ParseString(res.XML)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, dom.XSIType(el), "sp:Simulation")

	res, err = c.Get(ctx, "simulation:scenario:units:alpha:personnel", FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, res.Type, "sp:NonNegativeInteger")
	assert.Equal(t, res.Value, float64(120))

	res, err = c.Get(ctx, "simulation:scenario:space:area:center", FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]any{"lat": 59.3, "lon": 18.1}, res.Value); diff != "" {
		t.Errorf("center (-want +got):\n%s", diff)
	}
}

func TestGetErrors(t *testing.T) {
	c, _, ctx := connect(t)
	tests := []struct {
		name   string
		path   string
		format string
	}{
		{name: "missing node", path: "simulation:scenario:units:zulu"},
		{name: "wrong root", path: "scenario"},
		{name: "bad format", path: "simulation", format: "toml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Get(ctx, tt.path, tt.format)
			assert.Equal(t, rpcCode(t, err), jsonrpc2.InvalidParams)
		})
	}
}

func TestApply(t *testing.T) {
	c, _, ctx := connect(t)
	res, err := c.Apply(ctx, setPersonnel("99"))
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, res.Error, "")
	assert.NotEqual(t, res.BatchID, "")
	assert.Equal(t, res.Changes[0].Kind, object.ValueChanged)
	assert.Equal(t, res.Changes[0].Path, "simulation:scenario:units:alpha:personnel")

	got, err := c.Get(ctx, "simulation:scenario:units:alpha:personnel", FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, got.Value, float64(99))
}

func TestApplyLenientError(t *testing.T) {
	c, _, ctx := connect(t)
	res, err := c.Apply(ctx, setPersonnel("lots"))
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, strings.Contains(res.Error, "parse error"), true)
}

func TestApplyRejected(t *testing.T) {
	c, _, ctx := connect(t, mirror.Strict(true))
	_, err := c.Apply(ctx, setPersonnel("lots"))
	assert.Equal(t, rpcCode(t, err), jsonrpc2.InvalidParams)

	_, err = c.Apply(ctx, []byte(`<batch simulatedTime="yesterday"/>`))
	assert.Equal(t, rpcCode(t, err), jsonrpc2.InvalidParams)
}

func TestQuery(t *testing.T) {
	c, _, ctx := connect(t)
	tests := []struct {
		name string
		expr string
		path string
		want []string
	}{
		{
			name: "by type",
			expr: `isa("MilitaryUnit")`,
			want: []string{"simulation:scenario:units:alpha"},
		},
		{
			name: "scoped",
			expr: `leaf`,
			path: "simulation:scenario:space",
			want: []string{
				"simulation:scenario:space:area:center",
				"simulation:scenario:space:area:radius",
			},
		},
		{
			name: "none",
			expr: `id == "zulu"`,
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Query(ctx, tt.expr, tt.path)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("paths (-want +got):\n%s", diff)
			}
		})
	}

	_, err := c.Query(ctx, "id ==", "")
	assert.Equal(t, rpcCode(t, err), jsonrpc2.InvalidParams)
}

func TestFactions(t *testing.T) {
	c, _, ctx := connect(t)
	got, err := c.Factions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, got, []string{"simulation:scenario:factions:blue"})
}

func TestSubscribe(t *testing.T) {
	c, m, ctx := connect(t)
	units, err := c.Subscribe(ctx, "simulation:scenario:units")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Subscribe(ctx, "simulation:timestepper"); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, m.SubscriberCount(), 2)

	res, err := c.Apply(ctx, setPersonnel("7"))
	if err != nil {
		t.Fatal(err)
	}
	select {
	case ch := <-c.Changed:
		assert.Equal(t, ch.Subscription, units)
		assert.Equal(t, ch.Failed, false)
		assert.Equal(t, ch.Notification.BatchID, res.BatchID)
		assert.Equal(t, ch.Notification.Changes[0].Path, "simulation:scenario:units:alpha:personnel")
	case <-time.After(5 * time.Second):
		t.Fatal("no notification")
	}
	select {
	case ch := <-c.Changed:
		t.Fatalf("unexpected notification %+v", ch)
	case <-time.After(50 * time.Millisecond):
	}

	if err := c.Unsubscribe(ctx, units); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, m.SubscriberCount(), 1)
	err = c.Unsubscribe(ctx, units)
	assert.Equal(t, rpcCode(t, err), jsonrpc2.InvalidParams)
}

func TestCloseDropsSubscriptions(t *testing.T) {
	c, m, ctx := connect(t)
	if _, err := c.Subscribe(ctx, ""); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, m.SubscriberCount(), 1)
	c.Close()
	deadline := time.Now().Add(5 * time.Second)
	for m.SubscriberCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription outlived its connection")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestUnknownMethod(t *testing.T) {
	c, _, ctx := connect(t)
	_, err := c.conn.Call(ctx, "tree/nope", nil, nil)
	assert.Equal(t, rpcCode(t, err), jsonrpc2.MethodNotFound)
}
