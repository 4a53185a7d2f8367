package main

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/scott-cotton/cli"

	"github.com/signadot/simtree/config"
	"github.com/signadot/simtree/dom"
	"github.com/signadot/simtree/encode"
	"github.com/signadot/simtree/object"
)

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
 </scenario>
</simulation>`

func testConfig(t *testing.T) (*MainConfig, object.Node) {
	t.Helper()
	cfg := &MainConfig{Main: cli.NewCommand("simtree")}
	f, err := cfg.getFactory()
	if err != nil {
		t.Fatal(err)
	}
	el, err := dom.ParseString(testDoc)
	if err != nil {
		t.Fatal(err)
	}
	n, err := f.FromElement(el)
	if err != nil {
		t.Fatal(err)
	}
	return cfg, n
}

func TestMainCommand(t *testing.T) {
	cmd := MainCommand()
	assert.NotEqual(t, cmd, nil)
}

func TestWrite(t *testing.T) {
	cfg, root := testConfig(t)
	tests := []struct {
		format encode.Format
		prefix string
	}{
		{format: encode.XMLFormat, prefix: "<simulation"},
		{format: encode.YAMLFormat, prefix: "simulation:"},
		{format: encode.JSONFormat, prefix: "{"},
		{format: encode.TreeFormat, prefix: "simulation (sp:Simulation)"},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			buf := &bytes.Buffer{}
			if err := cfg.write(buf, root, tt.format); err != nil {
				t.Fatal(err)
			}
			assert.Equal(t, strings.HasPrefix(buf.String(), tt.prefix), true)
		})
	}
}

func TestFormatOverride(t *testing.T) {
	cfg, _ := testConfig(t)
	assert.Equal(t, cfg.format(encode.TreeFormat), encode.TreeFormat)
	f := encode.JSONFormat
	cfg.OutFormat = &f
	assert.Equal(t, cfg.format(encode.TreeFormat), encode.JSONFormat)
}

func TestUseColor(t *testing.T) {
	cfg, _ := testConfig(t)
	buf := &bytes.Buffer{}
	assert.Equal(t, cfg.useColor(buf), false)

	cfg.conf.Color = config.ColorAlways
	assert.Equal(t, cfg.useColor(buf), true)
	cfg.conf.Color = config.ColorNever
	assert.Equal(t, cfg.useColor(os.Stdout), false)
}

type closeReader struct {
	io.Reader
	closed bool
}

func (c *closeReader) Close() error {
	c.closed = true
	return nil
}

func TestStdioClose(t *testing.T) {
	r := &closeReader{Reader: strings.NewReader("")}
	rwc := &stdioReadWriteCloser{read: r, write: io.Discard}
	if err := rwc.Close(); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, r.closed, true)

	rwc = &stdioReadWriteCloser{read: strings.NewReader(""), write: io.Discard}
	assert.Equal(t, rwc.Close(), nil)
}
