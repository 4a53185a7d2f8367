package encode

import (
	"fmt"
	"strings"
)

type Format int

const (
	XMLFormat Format = iota
	YAMLFormat
	JSONFormat
	TreeFormat
)

var formatNames = map[Format]string{
	XMLFormat:  "xml",
	YAMLFormat: "yaml",
	JSONFormat: "json",
	TreeFormat: "tree",
}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return fmt.Sprintf("<format %d>", int(f))
}

func ParseFormat(s string) (Format, error) {
	for f, name := range formatNames {
		if strings.EqualFold(s, name) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown format %q: want xml, yaml, json or tree", s)
}

// FormatSuffix returns the file extension for f.
func FormatSuffix(f Format) string {
	switch f {
	case YAMLFormat:
		return ".yaml"
	case JSONFormat:
		return ".json"
	case TreeFormat:
		return ".txt"
	default:
		return ".xml"
	}
}
