package libdiff

import (
	"fmt"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/goccy/go-json"
	"github.com/signadot/simtree/encode"
	"github.com/signadot/simtree/object"
)

// MergePatch returns the RFC 7386 merge patch turning the projection of
// from into that of to. Both are projected under their own identifiers.
func MergePatch(from, to object.Node) ([]byte, error) {
	a, err := json.Marshal(encode.Root(from))
	if err != nil {
		return nil, fmt.Errorf("error projecting %s: %w", object.Path(from), err)
	}
	b, err := json.Marshal(encode.Root(to))
	if err != nil {
		return nil, fmt.Errorf("error projecting %s: %w", object.Path(to), err)
	}
	p, err := jsonpatch.CreateMergePatch(a, b)
	if err != nil {
		return nil, fmt.Errorf("error creating merge patch: %w", err)
	}
	return p, nil
}

// ApplyMergePatch applies a merge patch to the projection of n and returns
// the patched projection as JSON.
func ApplyMergePatch(n object.Node, patch []byte) ([]byte, error) {
	doc, err := json.Marshal(encode.Root(n))
	if err != nil {
		return nil, fmt.Errorf("error projecting %s: %w", object.Path(n), err)
	}
	res, err := jsonpatch.MergePatch(doc, patch)
	if err != nil {
		return nil, fmt.Errorf("error applying merge patch: %w", err)
	}
	return res, nil
}

// Empty reports whether a merge patch changes nothing.
func Empty(patch []byte) bool {
	var m map[string]any
	if err := json.Unmarshal(patch, &m); err != nil {
		return false
	}
	return len(m) == 0
}
