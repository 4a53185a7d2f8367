// Package libdiff compares object trees: as XML text and as JSON merge
// patches over their projections.
package libdiff

import (
	"bytes"
	"strings"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
	"github.com/signadot/simtree/dom"
	"github.com/signadot/simtree/object"
)

// Text returns a line diff between the indented XML of from and to, each
// line prefixed with "- ", "+ " or "  ". It returns "" when they are
// equal.
func Text(from, to object.Node) string {
	return TextStrings(indented(from), indented(to))
}

// TextStrings is Text for two strings.
func TextStrings(from, to string) string {
	if from == to {
		return ""
	}
	dmp := diffpatch.New()
	a, b, lines := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	buf := &strings.Builder{}
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffpatch.DiffInsert:
			prefix = "+ "
		case diffpatch.DiffDelete:
			prefix = "- "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			buf.WriteString(prefix)
			buf.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				buf.WriteByte('\n')
			}
		}
	}
	return buf.String()
}

func indented(n object.Node) string {
	buf := &bytes.Buffer{}
	if err := dom.Write(buf, object.Element(n), 1); err != nil {
		return err.Error()
	}
	return buf.String()
}
