package libdiff

import (
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/signadot/simtree/dom"
	"github.com/signadot/simtree/encode"
	"github.com/signadot/simtree/object"
	"github.com/signadot/simtree/schema"
)

var testDoc = `<timestepper xmlns:sp="` + dom.SPNamespace + `" xmlns:xsi="` + dom.XSINamespace + `" xsi:type="sp:Timestepper"><dt xsi:type="sp:Duration"><value>60000</value></dt></timestepper>`

var unitDoc = `<alpha xmlns:sp="` + dom.SPNamespace + `" xmlns:xsi="` + dom.XSINamespace + `" xsi:type="sp:MilitaryUnit">
 <symbolIDCode xsi:type="sp:SymbolIDCode"><value><value>SFGPU----------</value></value></symbolIDCode>
 <location xsi:type="sp:Point"><lat>59.5</lat><lon>18.25</lon></location>
 <personnel xsi:type="sp:NonNegativeInteger"><value>120</value></personnel>
 <faction xsi:type="sp:Reference"><name>blue</name><scope><name>factions</name></scope></faction>
 <deployed xsi:type="sp:Boolean"><value>true</value></deployed>
</alpha>`

func load(t *testing.T, f *object.Factory, doc string) object.Node {
	t.Helper()
	el, err := dom.ParseString(doc)
	if err != nil {
		t.Fatal(err)
	}
	n, err := f.FromElement(el)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestTextEqual(t *testing.T) {
	f := object.NewFactory(schema.Default())
	a := load(t, f, unitDoc)
	assert.Equal(t, Text(a, f.Clone(a)), "")
}

func TestText(t *testing.T) {
	f := object.NewFactory(schema.Default())
	a := load(t, f, unitDoc)
	b := f.Clone(a)
	b.Child("personnel").(*object.Integer).SetValue(99, object.User)

	d := Text(a, b)
	var minus, plus []string
	for _, line := range strings.Split(d, "\n") {
		switch {
		case strings.HasPrefix(line, "- "):
			minus = append(minus, strings.TrimSpace(line[2:]))
		case strings.HasPrefix(line, "+ "):
			plus = append(plus, strings.TrimSpace(line[2:]))
		}
	}
	assert.Equal(t, minus, []string{"<value>120</value>"})
	assert.Equal(t, plus, []string{"<value>99</value>"})
}

func TestTextStrings(t *testing.T) {
	got := TextStrings("a\nb\nc\n", "a\nc\nd\n")
	want := "  a\n- b\n  c\n+ d\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("diff (-want +got):\n%s", diff)
	}
}

func TestMergePatch(t *testing.T) {
	f := object.NewFactory(schema.Default())
	a := load(t, f, unitDoc)
	b := f.Clone(a)
	b.Child("personnel").(*object.Integer).SetValue(99, object.User)
	b.Child("location").(*object.Point).SetLatLon(60, 18.25, object.User)
	if err := b.RemoveChild(b.Child("deployed"), object.Internal); err != nil {
		t.Fatal(err)
	}

	p, err := MergePatch(a, b)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(p, &got); err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		"alpha": map[string]any{
			"personnel": 99.0,
			"location":  map[string]any{"lat": 60.0},
			"deployed":  nil,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("patch (-want +got):\n%s", diff)
	}

	patched, err := ApplyMergePatch(a, p)
	if err != nil {
		t.Fatal(err)
	}
	bj, err := json.Marshal(encode.Root(b))
	if err != nil {
		t.Fatal(err)
	}
	var x, y any
	if err := json.Unmarshal(patched, &x); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(bj, &y); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(y, x); diff != "" {
		t.Errorf("patched (-want +got):\n%s", diff)
	}
}

func TestEmptyPatch(t *testing.T) {
	f := object.NewFactory(schema.Default())
	a := load(t, f, testDoc)
	p, err := MergePatch(a, f.Clone(a))
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, Empty(p), true)
	assert.Equal(t, Empty([]byte(`{"timestepper":{"dt":"1"}}`)), false)
}
