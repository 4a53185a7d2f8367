package object

import (
	"errors"
	"flag"
	"fmt"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/signadot/simtree/dom"
	"github.com/signadot/simtree/schema"
)

func init() {
	flag.Set("logtostderr", "true")
	flag.Set("v", "0")
}

var testSchema = schema.Default()

func unitBody(personnel int) string {
	return fmt.Sprintf(`
  <symbolIDCode xsi:type="sp:SymbolIDCode"><value><value>SFGPU----------</value></value></symbolIDCode>
  <location xsi:type="sp:Point"><lat>59.3</lat><lon>18.1</lon></location>
  <personnel xsi:type="sp:NonNegativeInteger"><value>%d</value></personnel>
  <faction xsi:type="sp:Reference"><name>blue</name><scope><name>factions</name></scope></faction>
  <deployed xsi:type="sp:Boolean"><value>true</value></deployed>
`, personnel)
}

func unitXML(tag, id string, personnel int) string {
	return fmt.Sprintf(`<%s xsi:type="sp:MilitaryUnit" identifier=%q>%s</%s>`, tag, id, unitBody(personnel), tag)
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
  <factions xsi:type="sp:EnemyFaction" identifier="red">
   <symbolIDCode xsi:type="sp:SymbolIDCode"><value><value>SHGPU----------</value></value></symbolIDCode>
   <hostility xsi:type="sp:Double"><value>0.8</value></hostility>
  </factions>
  ` + unitXML("units", "alpha", 120) + `
  ` + unitXML("units", "bravo", 80) + `
 </scenario>
</simulation>`

func loadTestDoc(t *testing.T, f *Factory) Node {
	t.Helper()
	el, err := dom.ParseString(testDoc)
	if err != nil {
		t.Fatal(err)
	}
	n, err := f.FromElement(el)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func mustLookup(t *testing.T, root Node, path ...string) Node {
	t.Helper()
	n := root
	for _, id := range path {
		n = n.Child(id)
		if n == nil {
			t.Fatalf("no %q in path %v", id, path)
		}
	}
	return n
}

func ids(ns []Node) []string {
	res := make([]string, len(ns))
	for i, n := range ns {
		res[i] = n.Identifier()
	}
	return res
}

// recorder logs events as "Kind path".
type recorder struct {
	events []string
}

func (r *recorder) EventOccurred(e Event) {
	r.events = append(r.events, e.Kind.String()+" "+Path(e.Source).String())
}

func (r *recorder) count(kind EventKind) int {
	n := 0
	for _, e := range r.events {
		if len(e) > len(kind.String()) && e[:len(kind.String())+1] == kind.String()+" " {
			n++
		}
	}
	return n
}

// listenPath registers r on n and each of its ancestors.
func listenPath(n Node, r *recorder) {
	for x := n; x != nil; x = x.Parent() {
		x.AddEventListener(r)
	}
}

func contractPanic(t *testing.T, fn func()) (ce *ContractError) {
	t.Helper()
	defer func() {
		v := recover()
		if v == nil {
			t.Fatal("expected a panic")
		}
		var ok bool
		ce, ok = v.(*ContractError)
		if !ok {
			t.Fatalf("panic value %v is not a *ContractError", v)
		}
	}()
	fn()
	return nil
}

func TestFromElement(t *testing.T) {
	f := NewFactory(testSchema)
	root := loadTestDoc(t, f)
	assert.Equal(t, root.Identifier(), "simulation")
	assert.Equal(t, root.Type().QName(), "sp:Simulation")
	assert.Equal(t, ids(root.Children()), []string{"timestepper", "scenario"})

	sc := mustLookup(t, root, "scenario")
	if diff := cmp.Diff([]string{"startTime", "space", "factions", "units"}, ids(sc.Children())); diff != "" {
		t.Errorf("scenario children (-want +got):\n%s", diff)
	}
	assert.Equal(t, ids(sc.Child("units").Children()), []string{"alpha", "bravo"})

	red := mustLookup(t, root, "scenario", "factions", "red")
	assert.Equal(t, red.Type().QName(), "sp:EnemyFaction")
	assert.Equal(t, red.Child("hostility").(*Decimal).Value(), 0.8)

	dt := mustLookup(t, root, "timestepper", "dt").(*Duration)
	assert.Equal(t, dt.Value().Milliseconds(), int64(60000))

	area := mustLookup(t, root, "scenario", "space", "area").(*Circle)
	assert.Equal(t, area.Radius(), 1000.0)
	assert.Equal(t, area.Center().Lat(), 59.3)

	ref := mustLookup(t, root, "scenario", "units", "alpha", "faction").(*Reference)
	assert.Equal(t, ref.Value().String(), "factions:blue")
	assert.Equal(t, ref.Target() == mustLookup(t, root, "scenario", "factions", "blue"), true)
}

func TestXMLRoundTrip(t *testing.T) {
	f := NewFactory(testSchema)
	root := loadTestDoc(t, f)
	x1 := XML(root)
	el, err := dom.ParseString(x1)
	if err != nil {
		t.Fatal(err)
	}
	again, err := f.FromElement(el)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(x1, XML(again)); diff != "" {
		t.Errorf("round trip (-first +second):\n%s", diff)
	}
}

func TestXMLShape(t *testing.T) {
	f := NewFactory(testSchema)
	root := loadTestDoc(t, f)
	units := mustLookup(t, root, "scenario", "units")
	alpha := units.Child("alpha")
	assert.Equal(t, Tag(alpha), "units")
	el := Element(alpha)
	assert.Equal(t, el.Tag, "units")
	assert.Equal(t, el.SelectAttrValue("identifier", ""), "alpha")
	assert.Equal(t, dom.XSIType(el), "sp:MilitaryUnit")

	pers := Element(alpha.Child("personnel"))
	assert.Equal(t, pers.SelectAttr("identifier"), nil)
	s, _ := dom.ValueText(pers)
	assert.Equal(t, s, "120")

	// lists have no wrapper
	sc := Element(mustLookup(t, root, "scenario"))
	assert.Equal(t, len(dom.Children(sc, "units")), 2)

	str := f.NewString("label", "a<b & c")
	assert.Equal(t, str.XML(), `<label xsi:type="sp:String"><value>a&lt;b &amp; c</value></label>`)
}

func TestOrderInvariant(t *testing.T) {
	f := NewFactory(testSchema)
	unit := f.CreateType("alpha", testSchema.MustLookup("MilitaryUnit"))
	want := []string{"symbolIDCode", "location", "personnel", "faction", "deployed", "subunits"}
	assert.Equal(t, ids(unit.Children()), want)

	for _, id := range []string{"location", "deployed", "symbolIDCode"} {
		if err := unit.RemoveChild(unit.Child(id), User); err != nil {
			t.Fatal(err)
		}
	}
	assert.Equal(t, ids(unit.Children()), []string{"personnel", "faction", "subunits"})

	pt := testSchema.MustLookup("Point")
	bt := testSchema.MustLookup("Boolean")
	st := testSchema.MustLookup("SymbolIDCode")
	adds := []Node{
		f.CreateType("deployed", bt),
		f.CreateType("symbolIDCode", st),
		f.CreateType("location", pt),
	}
	for _, n := range adds {
		if err := unit.Add(n, User); err != nil {
			t.Fatal(err)
		}
	}
	assert.Equal(t, ids(unit.Children()), want)
}

func TestAddReplacesSameIdentifier(t *testing.T) {
	f := NewFactory(testSchema)
	unit := f.CreateType("alpha", testSchema.MustLookup("MilitaryUnit"))
	old := unit.Child("personnel")
	oldRec := &recorder{}
	old.AddEventListener(oldRec)
	rec := &recorder{}
	unit.AddEventListener(rec)

	n := f.CreateType("personnel", testSchema.MustLookup("NonNegativeInteger")).(*Integer)
	n.SetValue(7, Internal)
	if err := unit.Add(n, User); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, unit.ChildCount(), 6)
	assert.Equal(t, unit.Child("personnel") == Node(n), true)
	assert.Equal(t, old.Parent(), nil)
	assert.Equal(t, oldRec.events, []string{"Removed personnel"})
	assert.Equal(t, rec.events, []string{"ObjectAdded alpha"})
}

func TestAddNotSubstitutable(t *testing.T) {
	f := NewFactory(testSchema)
	unit := f.CreateType("alpha", testSchema.MustLookup("MilitaryUnit"))
	err := unit.Add(f.NewString("personnel", "many"), User)
	assert.Equal(t, errors.Is(err, ErrNotSubstitutable), true)
	assert.Equal(t, unit.Child("personnel").Type().Name(), "NonNegativeInteger")
}

func TestPropagation(t *testing.T) {
	f := NewFactory(testSchema)
	root := loadTestDoc(t, f)
	pers := mustLookup(t, root, "scenario", "units", "alpha", "personnel").(*Integer)
	rec := &recorder{}
	listenPath(pers, rec)

	pers.SetValue(121, User)
	want := []string{
		"ValueChanged simulation:scenario:units:alpha:personnel",
		"ChildChanged simulation:scenario:units:alpha",
		"ChildChanged simulation:scenario:units",
		"ChildChanged simulation:scenario",
		"ChildChanged simulation",
	}
	if diff := cmp.Diff(want, rec.events); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

func TestChildChangedNamesPathChild(t *testing.T) {
	f := NewFactory(testSchema)
	root := loadTestDoc(t, f)
	sc := root.Child("scenario")
	var changed []string
	root.AddEventListener(ListenerFunc(func(e Event) {
		if e.Kind == ChildChanged {
			changed = append(changed, e.Changed.Identifier())
		}
	}))
	mustLookup(t, sc, "startTime").(*Timestamp).SetValue(1, User)
	assert.Equal(t, changed, []string{"scenario"})
}

func TestUnchangedValueFiresNothing(t *testing.T) {
	f := NewFactory(testSchema)
	root := loadTestDoc(t, f)
	dt := mustLookup(t, root, "timestepper", "dt").(*Duration)
	if err := dt.SetValueString("PT5M", User); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	listenPath(dt, rec)
	if err := dt.SetValueString("PT5M", User); err != nil {
		t.Fatal(err)
	}
	if err := dt.SetValueString("300000", User); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, len(rec.events), 0)
}

func TestRemoveEvents(t *testing.T) {
	f := NewFactory(testSchema)
	root := loadTestDoc(t, f)
	units := mustLookup(t, root, "scenario", "units")
	alpha := units.Child("alpha")
	rec := &recorder{}
	Walk(alpha, func(n Node) bool {
		n.AddEventListener(rec)
		return true
	})
	units.AddEventListener(rec)

	if err := Remove(alpha, User); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"Removed alpha",
		"Removed alpha:symbolIDCode",
		"Removed alpha:location",
		"Removed alpha:personnel",
		"Removed alpha:faction",
		"Removed alpha:deployed",
		"Removed alpha:subunits",
		"ChildChanged simulation:scenario:units",
	}
	if diff := cmp.Diff(want, rec.events); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
	assert.Equal(t, units.Child("alpha"), nil)
	assert.Equal(t, errors.Is(units.RemoveChild(alpha, User), ErrNotFound), true)
	assert.Equal(t, errors.Is(Remove(alpha, User), ErrNoParent), true)
}

func TestReplaceChild(t *testing.T) {
	f := NewFactory(testSchema)
	root := loadTestDoc(t, f)
	space := mustLookup(t, root, "scenario", "space")
	old := space.Child("area")
	rec := &recorder{}
	old.AddEventListener(rec)
	old.Child("center").AddEventListener(rec)
	space.AddEventListener(rec)

	poly := f.NewPolygon("somethingElse", f.NewLine("", 0, 0, 1, 0), f.NewLine("", 1, 0, 0, 0))
	if err := old.Replace(poly, User); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, poly.Identifier(), "area")
	assert.Equal(t, space.Child("area") == Node(poly), true)
	assert.Equal(t, poly.Parent() == space, true)
	assert.Equal(t, old.Parent(), nil)
	want := []string{
		"Replaced area",
		"Removed area",
		"Removed area:center",
		"ChildChanged simulation:scenario:space",
	}
	if diff := cmp.Diff(want, rec.events); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}

	err := poly.Replace(f.NewString("x", "y"), User)
	assert.Equal(t, errors.Is(err, ErrNotSubstitutable), true)
	assert.Equal(t, errors.Is(root.Replace(poly, User), ErrNoParent), true)
}

func TestSetIdentifier(t *testing.T) {
	f := NewFactory(testSchema)
	root := loadTestDoc(t, f)
	units := mustLookup(t, root, "scenario", "units")
	alpha := units.Child("alpha")
	var old string
	alpha.AddEventListener(ListenerFunc(func(e Event) {
		if e.Kind == IdentifierChanged {
			old = e.OldIdentifier
		}
	}))
	if err := alpha.SetIdentifier("charlie", User); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, old, "alpha")
	assert.Equal(t, units.Child("charlie") == alpha, true)
	assert.Equal(t, units.Child("alpha"), nil)
	assert.Equal(t, ids(units.Children()), []string{"charlie", "bravo"})

	assert.Equal(t, errors.Is(alpha.SetIdentifier("bravo", User), ErrDuplicateIdentifier), true)
	assert.Equal(t, alpha.Identifier(), "charlie")
	assert.Equal(t, errors.Is(alpha.SetIdentifier("", User), ErrAnonymous), true)
}

func TestListMultiplicity(t *testing.T) {
	f := NewFactory(testSchema)
	ut := testSchema.MustLookup("MilitaryUnit")
	decl := schema.NewDeclaration("units", ut, 1, 2, false)
	l, err := f.NewList(decl, f.CreateType("a", ut), f.CreateType("b", ut))
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, l.IsFull(), true)
	err = l.Add(f.CreateType("c", ut), User)
	assert.Equal(t, errors.Is(err, ErrMultiplicity), true)
	assert.Equal(t, l.ChildCount(), 2)

	// same identifier replaces even when full
	assert.Equal(t, l.Add(f.CreateType("a", ut), User), nil)
	assert.Equal(t, ids(l.Children()), []string{"b", "a"})

	assert.Equal(t, l.RemoveChild(l.Child("a"), User), nil)
	err = l.RemoveChild(l.Child("b"), User)
	assert.Equal(t, errors.Is(err, ErrMultiplicity), true)
	assert.Equal(t, l.RemoveChild(l.Child("b"), ServerUpdate("m1")), nil)
	assert.Equal(t, l.ChildCount(), 0)

	_, err = f.NewList(decl, f.CreateType("a", ut), f.CreateType("b", ut), f.CreateType("c", ut))
	assert.Equal(t, errors.Is(err, ErrMultiplicity), true)
}

func TestAddWithUniqueIdentifier(t *testing.T) {
	f := NewFactory(testSchema)
	ut := testSchema.MustLookup("MilitaryUnit")
	l, err := f.NewList(schema.NewDeclaration("units", ut, 0, 0, true))
	if err != nil {
		t.Fatal(err)
	}
	for range 3 {
		if err := l.AddWithUniqueIdentifier(f.CreateType("unit", ut), User); err != nil {
			t.Fatal(err)
		}
	}
	assert.Equal(t, ids(l.Children()), []string{"unit", "unit 2", "unit 3"})
	assert.Equal(t, l.UniqueIdentifier("other"), "other")
}

func TestAddWithUniqueIdentifierFull(t *testing.T) {
	f := NewFactory(testSchema)
	ut := testSchema.MustLookup("MilitaryUnit")
	l, err := f.NewList(schema.NewDeclaration("units", ut, 0, 1, false), f.CreateType("unit", ut))
	if err != nil {
		t.Fatal(err)
	}
	u := f.CreateType("unit", ut)
	var got []EventKind
	u.AddEventListener(ListenerFunc(func(e Event) { got = append(got, e.Kind) }))

	err = l.AddWithUniqueIdentifier(u, User)
	assert.Equal(t, errors.Is(err, ErrMultiplicity), true)
	assert.Equal(t, u.Identifier(), "unit")
	assert.Equal(t, u.Parent(), nil)
	assert.Equal(t, len(got), 0)
}

func TestMoveFiresOnOldParent(t *testing.T) {
	f := NewFactory(testSchema)
	root := loadTestDoc(t, f)
	units := mustLookup(t, root, "scenario", "units")
	alpha := units.Child("alpha")
	from, self := &recorder{}, &recorder{}
	units.AddEventListener(from)
	alpha.AddEventListener(self)

	ut := testSchema.MustLookup("MilitaryUnit")
	sub, err := f.NewList(schema.NewDeclaration("subunits", ut, 0, 0, true))
	if err != nil {
		t.Fatal(err)
	}
	if err := sub.Add(alpha, User); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, alpha.Parent() == Node(sub), true)
	assert.Equal(t, ids(units.Children()), []string{"bravo"})
	assert.Equal(t, from.count(ChildChanged) > 0, true)
	assert.Equal(t, self.count(Removed), 1)

	// re-adding to the same parent is not a move
	from.events = nil
	if err := sub.Add(alpha, User); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, from.count(ChildChanged), 0)
	assert.Equal(t, self.count(Removed), 1)
}

func TestCloneIsolation(t *testing.T) {
	f := NewFactory(testSchema)
	root := loadTestDoc(t, f)
	c := f.Clone(root)
	assert.Equal(t, c.Parent(), nil)
	assert.Equal(t, XML(c), XML(root))

	orig := map[Node]bool{}
	Walk(root, func(n Node) bool {
		orig[n] = true
		return true
	})
	Walk(c, func(n Node) bool {
		if orig[n] {
			t.Errorf("clone shares %s", Path(n))
		}
		return true
	})

	mustLookup(t, c, "scenario", "units", "alpha", "personnel").(*Integer).SetValue(1, User)
	assert.Equal(t, mustLookup(t, root, "scenario", "units", "alpha", "personnel").(*Integer).Value(), int64(120))
	if err := c.Child("scenario").Child("units").Child("bravo").SetIdentifier("zulu", User); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, mustLookup(t, root, "scenario", "units", "bravo").Identifier(), "bravo")

	l := mustLookup(t, root, "scenario", "units").(*List)
	lc := f.Clone(l).(*List)
	assert.Equal(t, lc.Identifier(), "units")
	assert.Equal(t, lc.Declaration() == l.Declaration(), true)
}

func TestTreeQueries(t *testing.T) {
	f := NewFactory(testSchema)
	root := loadTestDoc(t, f)
	alpha := mustLookup(t, root, "scenario", "units", "alpha")
	blue := mustLookup(t, root, "scenario", "factions", "blue")

	assert.Equal(t, Root(alpha) == root, true)
	assert.Equal(t, IsAncestor(root, alpha), true)
	assert.Equal(t, IsAncestor(alpha, alpha), false)
	assert.Equal(t, YoungestCommonAncestor(alpha, blue) == root.Child("scenario"), true)
	assert.Equal(t, Depth(alpha), 3)
	assert.Equal(t, Path(alpha).String(), "simulation:scenario:units:alpha")

	n, err := Lookup(root, Path(alpha))
	assert.Equal(t, err, nil)
	assert.Equal(t, n == alpha, true)
	_, err = Lookup(root, Path(alpha).Child("nope"))
	assert.Equal(t, errors.Is(err, ErrNotFound), true)

	assert.Equal(t, Resolve(alpha, Path(blue)) == blue, true)
	assert.Equal(t, Resolve(alpha.Child("deployed"), Path(blue).Scope().Scope()) == root.Child("scenario"), true)

	leaves := 0
	Walk(root, func(n Node) bool {
		if n.IsLeaf() {
			leaves++
		}
		return n.Identifier() != "units"
	})
	assert.Equal(t, leaves, 7)

	ints := FilteredChildren(alpha, func(n Node) bool { return n.IsLeaf() })
	assert.Equal(t, len(ints), 5)

	assert.Equal(t, CanAdd(root.Child("scenario"), testSchema.MustLookup("EnemyFaction")), true)
	assert.Equal(t, CanAdd(root.Child("scenario"), testSchema.MustLookup("Polygon")), false)
	assert.Equal(t, CanAdd(alpha.Child("personnel"), testSchema.MustLookup("Integer")), false)
}

func TestListenerSnapshot(t *testing.T) {
	f := NewFactory(testSchema)
	n := f.NewInteger("n", 0)
	var got []string
	var first Listener
	first = ListenerFunc(func(e Event) {
		got = append(got, "first")
		n.RemoveEventListener(first)
		n.AddEventListener(ListenerFunc(func(Event) { got = append(got, "late") }))
	})
	n.AddEventListener(first)
	n.AddEventListener(ListenerFunc(func(Event) { got = append(got, "second") }))

	n.SetValue(1, User)
	assert.Equal(t, got, []string{"first", "second"})
	got = nil
	n.SetValue(2, User)
	assert.Equal(t, got, []string{"second", "late"})
	assert.Equal(t, ListenerCount(n), 2)
}

func TestSelection(t *testing.T) {
	f := NewFactory(testSchema)
	n := f.NewBoolean("b", false)
	rec := &recorder{}
	n.AddEventListener(rec)
	Select(n, User)
	Select(n, User)
	assert.Equal(t, IsSelected(n), true)
	Unselect(n, User)
	FireDomainEvent(n, RegionUpdated, Internal)
	assert.Equal(t, rec.events, []string{"Selected b", "Unselected b", "RegionUpdated b"})
	contractPanic(t, func() { FireDomainEvent(n, ValueChanged, Internal) })
}

func TestContractViolations(t *testing.T) {
	f := NewFactory(testSchema)
	leaf := f.NewInteger("n", 0)
	ce := contractPanic(t, func() { leaf.Add(f.NewInteger("m", 1), User) })
	assert.Equal(t, ce.Op, "Add")

	unit := f.CreateType("alpha", testSchema.MustLookup("MilitaryUnit"))
	contractPanic(t, func() { unit.Add(f.NewInteger("", 1), User) })
	contractPanic(t, func() { unit.Child("subunits").Add(unit, User) })

	line := f.NewLine("l", 0, 0, 1, 1)
	contractPanic(t, func() { line.RemoveChild(line.P1(), User) })
	contractPanic(t, func() { line.Add(f.NewPoint("p3", 0, 0), User) })
}

func TestEventKindText(t *testing.T) {
	for _, k := range EventKinds() {
		d, err := k.MarshalText()
		assert.Equal(t, err, nil)
		var back EventKind
		assert.Equal(t, back.UnmarshalText(d), nil)
		assert.Equal(t, back, k)
	}
	var k EventKind
	assert.NotEqual(t, k.UnmarshalText([]byte("Nope")), nil)
	assert.Equal(t, ServerUpdate("m7").String(), "ServerUpdate{m7}")
	assert.Equal(t, User.String(), "User")
}
