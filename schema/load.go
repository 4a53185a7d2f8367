package schema

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

//go:embed simulation.yaml
var defaultSchema []byte

type fileElement struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	Min  *int   `yaml:"min"`
	Max  any    `yaml:"max"`
}

type fileType struct {
	Name     string        `yaml:"name"`
	Base     string        `yaml:"base"`
	Abstract bool          `yaml:"abstract"`
	Elements []fileElement `yaml:"elements"`
}

type file struct {
	Namespace string       `yaml:"namespace"`
	Root      *fileElement `yaml:"root"`
	Types     []fileType   `yaml:"types"`
}

// Default returns the simulation schema embedded in this package.
func Default() *Schema {
	s, err := Load(bytes.NewReader(defaultSchema))
	if err != nil {
		panic(err)
	}
	return s
}

func LoadFile(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("error loading %s: %w", path, err)
	}
	return s, nil
}

// Load reads a YAML schema document.
func Load(r io.Reader) (*Schema, error) {
	d, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	sf := &file{}
	if err := yaml.Unmarshal(d, sf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchema, err)
	}
	return build(sf)
}

func build(sf *file) (*Schema, error) {
	if sf.Namespace == "" {
		return nil, fmt.Errorf("%w: missing namespace", ErrSchema)
	}
	if sf.Namespace == XSDNamespace {
		return nil, fmt.Errorf("%w: namespace %q is reserved", ErrSchema, XSDNamespace)
	}
	s := newSchema(sf.Namespace)
	defs := make([]*Def, len(sf.Types))
	for i := range sf.Types {
		ft := &sf.Types[i]
		if ft.Name == "" {
			return nil, fmt.Errorf("%w: type %d has no name", ErrSchema, i)
		}
		if strings.Contains(ft.Name, ":") {
			return nil, fmt.Errorf("%w: type name %q must not be prefixed", ErrSchema, ft.Name)
		}
		if s.byQName[sf.Namespace+":"+ft.Name] != nil {
			return nil, fmt.Errorf("%w: type %q defined twice", ErrSchema, ft.Name)
		}
		defs[i] = s.define(sf.Namespace, ft.Name, nil, ft.Abstract)
	}
	any := s.byQName[AnyType]
	for i := range sf.Types {
		ft := &sf.Types[i]
		d := defs[i]
		d.base = any
		if ft.Base != "" {
			b := s.lookup(ft.Base)
			if b == nil {
				return nil, fmt.Errorf("%w: type %q: unknown base %q", ErrSchema, ft.Name, ft.Base)
			}
			d.base = b
		}
	}
	for _, d := range defs {
		if err := checkCycle(d); err != nil {
			return nil, err
		}
	}
	done := make(map[*Def]bool, len(defs))
	for i := range defs {
		if err := s.elements(defs, sf.Types, i, done); err != nil {
			return nil, err
		}
	}
	if sf.Root != nil {
		decl, err := s.declaration(sf.Root)
		if err != nil {
			return nil, fmt.Errorf("root: %w", err)
		}
		s.root = decl
	}
	return s, nil
}

// elements fills in the slots of defs[i] after those of its base, so that
// inherited slots come first in the base's order.
func (s *Schema) elements(defs []*Def, fts []fileType, i int, done map[*Def]bool) error {
	d := defs[i]
	if done[d] {
		return nil
	}
	if d.base != nil && d.base.ns != XSDNamespace {
		for j, b := range defs {
			if b == d.base {
				if err := s.elements(defs, fts, j, done); err != nil {
					return err
				}
				break
			}
		}
		for _, e := range d.base.elements {
			d.addElement(e)
		}
	}
	ft := &fts[i]
	for j := range ft.Elements {
		decl, err := s.declaration(&ft.Elements[j])
		if err != nil {
			return fmt.Errorf("type %q: %w", ft.Name, err)
		}
		if d.byName[decl.Name] != nil {
			return fmt.Errorf("%w: type %q: element %q declared twice", ErrSchema, ft.Name, decl.Name)
		}
		d.addElement(decl)
	}
	done[d] = true
	return nil
}

func (d *Def) addElement(e *Declaration) {
	c := *e
	c.index = len(d.elements)
	d.elements = append(d.elements, &c)
	d.byName[c.Name] = &c
}

func (s *Schema) declaration(fe *fileElement) (*Declaration, error) {
	if fe.Name == "" {
		return nil, fmt.Errorf("%w: element without name", ErrSchema)
	}
	t := s.lookup(fe.Type)
	if t == nil {
		return nil, fmt.Errorf("%w: element %q: unknown type %q", ErrSchema, fe.Name, fe.Type)
	}
	min := 1
	if fe.Min != nil {
		min = *fe.Min
	}
	max, unbounded := 1, false
	maxStr := ""
	if fe.Max != nil {
		maxStr = fmt.Sprint(fe.Max)
	}
	switch maxStr {
	case "":
		if min > 1 {
			max = min
		}
	case "unbounded", "*":
		unbounded = true
	default:
		n, err := strconv.Atoi(maxStr)
		if err != nil {
			return nil, fmt.Errorf("%w: element %q: bad max %q", ErrSchema, fe.Name, maxStr)
		}
		max = n
	}
	if min < 0 || (!unbounded && max < min) {
		return nil, fmt.Errorf("%w: element %q: bad bounds [%d..%d]", ErrSchema, fe.Name, min, max)
	}
	return NewDeclaration(fe.Name, t, min, max, unbounded), nil
}

func checkCycle(d *Def) error {
	seen := map[*Def]bool{}
	for x := d; x != nil; x = x.base {
		if seen[x] {
			return fmt.Errorf("%w: type %q derives from itself", ErrSchema, d.QName())
		}
		seen[x] = true
	}
	return nil
}
