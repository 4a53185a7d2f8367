package debug

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/golang/glog"
)

// XMLer is implemented by values that render themselves as XML, such as
// object tree nodes.
type XMLer interface {
	XML() string
}

// Logf logs through glog at info level, rendering maps and slices as
// indented JSON and XMLers as XML.
func Logf(msg string, args ...any) {
	for i := range args {
		a := args[i]
		switch x := a.(type) {
		case map[string]any, []any:
			d, err := json.MarshalIndent(a, "   |", "  ")
			if err != nil {
				args[i] = fmt.Sprintf("%v", a)
				continue
			}
			args[i] = string(d)
		case XMLer:
			args[i] = x.XML()
		case bool, string, float64, int:

		default:
		}
	}
	glog.InfoDepth(1, fmt.Sprintf(msg, args...))
}

// LogAny logs v as JSON.
func LogAny(v any) {
	d, err := json.Marshal(v)
	if err != nil {
		glog.InfoDepth(1, fmt.Sprintf("%v", v))
		return
	}
	glog.InfoDepth(1, string(d))
}
