package object

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/signadot/simtree/dom"
	"github.com/signadot/simtree/primitive"
)

func TestLeafRoundTrip(t *testing.T) {
	f := NewFactory(testSchema)
	ts := primitive.TimestampOf(time.Date(2021, 3, 4, 5, 6, 7, 8e6, time.UTC))
	tests := []struct {
		name string
		a, b Value
	}{
		{"string", f.NewString("a", "hello: <world>"), f.NewString("b", "")},
		{"empty string", f.NewString("a", ""), f.NewString("b", "x")},
		{"integer", f.NewInteger("a", -42), f.NewInteger("b", 0)},
		{"max integer", f.NewInteger("a", math.MaxInt64), f.NewInteger("b", 0)},
		{"decimal", f.NewDecimal("a", 3.25e-7), f.NewDecimal("b", 0)},
		{"inf", f.NewDecimal("a", math.Inf(-1)), f.NewDecimal("b", 0)},
		{"boolean", f.NewBoolean("a", true), f.NewBoolean("b", false)},
		{"duration", f.NewDuration("a", 90*primitive.Minute), f.NewDuration("b", 0)},
		{"negative duration", f.NewDuration("a", -primitive.Second), f.NewDuration("b", 0)},
		{"timestamp", f.NewTimestamp("a", ts), f.NewTimestamp("b", 0)},
		{"reference", f.NewReference("a", primitive.NewReference("x:y", "z")), f.NewReference("b", primitive.Reference{})},
		{"point", f.NewPoint("a", 59.5, -18.25), f.NewPoint("b", 0, 0)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := tc.a.ValueString()
			if err := tc.b.SetValueString(s, User); err != nil {
				t.Fatal(err)
			}
			assert.Equal(t, tc.b.ValueString(), s)
		})
	}

	code, err := f.NewSymbolIDCode("a", " SFGPU---------- ")
	assert.Equal(t, err, nil)
	other, _ := f.NewSymbolIDCode("b", primitive.NoSymbolCode)
	assert.Equal(t, other.SetValueString(code.ValueString(), User), nil)
	assert.Equal(t, other.Value(), "SFGPU----------")
}

func TestBooleanGrammar(t *testing.T) {
	f := NewFactory(testSchema)
	b := f.NewBoolean("b", false)
	for _, tc := range []struct {
		in   string
		want bool
	}{{"1", true}, {"false", false}, {"true", true}, {"0", false}, {" true ", true}} {
		assert.Equal(t, b.SetValueString(tc.in, User), nil)
		assert.Equal(t, b.Value(), tc.want)
	}
	assert.Equal(t, errors.Is(b.SetValueString("yes", User), ErrParse), true)
}

func TestParseFailureLeavesValue(t *testing.T) {
	f := NewFactory(testSchema)
	code, _ := f.NewSymbolIDCode("code", "SFGPU----------")
	n := f.NewInteger("n", 3)
	d := f.NewDuration("d", 5)
	p := f.NewPoint("p", 1, 2)
	rec := &recorder{}
	for _, x := range []Node{code, n, d, p} {
		x.AddEventListener(rec)
	}
	tests := []struct {
		v  Value
		in string
	}{
		{code, "SHORT"},
		{code, "SFGPU-----------X"},
		{n, "3.5"},
		{d, "five minutes"},
		{p, "1"},
		{p, "north east"},
	}
	for _, tc := range tests {
		before := tc.v.ValueString()
		err := tc.v.SetValueString(tc.in, User)
		var pe *ParseError
		assert.Equal(t, errors.As(err, &pe), true)
		assert.Equal(t, pe.Input, tc.in)
		assert.Equal(t, errors.Is(err, ErrParse), true)
		assert.Equal(t, tc.v.ValueString(), before)
	}
	assert.Equal(t, len(rec.events), 0)
}

func TestNonNegative(t *testing.T) {
	f := NewFactory(testSchema)
	c := f.NewCircle("c", 0, 0, 10)
	r := c.Child("radius").(*Decimal)
	assert.Equal(t, errors.Is(r.SetValueString("-1", User), ErrParse), true)
	assert.Equal(t, r.Value(), 10.0)
	assert.Equal(t, r.SetValueString("0", User), nil)

	plain := f.NewDecimal("d", 0)
	assert.Equal(t, plain.SetValueString("-1", User), nil)
}

func TestNaNIsUnchanged(t *testing.T) {
	f := NewFactory(testSchema)
	d := f.NewDecimal("d", math.NaN())
	rec := &recorder{}
	d.AddEventListener(rec)
	assert.Equal(t, d.SetValueString("NaN", User), nil)
	assert.Equal(t, len(rec.events), 0)
}

func TestLeafElements(t *testing.T) {
	f := NewFactory(testSchema)
	code, _ := f.NewSymbolIDCode("symbolIDCode", "SFGPU----------")
	assert.Equal(t, code.XML(), `<symbolIDCode xsi:type="sp:SymbolIDCode"><value><value>SFGPU----------</value></value></symbolIDCode>`)

	ref := f.NewReference("faction", primitive.NewReference("scenario", "factions", "blue"))
	assert.Equal(t, ref.XML(), `<faction xsi:type="sp:Reference"><name>blue</name><scope><name>factions</name><scope><name>scenario</name></scope></scope></faction>`)
	el, err := dom.ParseString(ref.XML())
	if err != nil {
		t.Fatal(err)
	}
	back, err := f.FromElement(el)
	assert.Equal(t, err, nil)
	assert.Equal(t, back.(*Reference).Value().Equal(ref.Value()), true)

	plain, err := dom.ParseString(`<faction xsi:type="sp:Reference"><value>factions:red</value></faction>`)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, ref.Update(plain, 0, User), nil)
	assert.Equal(t, ref.Value().String(), "factions:red")

	p := f.NewPoint("location", 1.5, -2)
	assert.Equal(t, p.XML(), `<location xsi:type="sp:Point"><lat>1.5</lat><lon>-2</lon></location>`)
}
