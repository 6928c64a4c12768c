package oracle

import (
	"io"
	"os"

	"github.com/cottand/hirc/frontend/types"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var _ Oracle = (*Static)(nil)

// Static is an Oracle backed by a fixed table, usually loaded from YAML:
//
//	classes:
//	  Vec3:
//	    annotations: [struct]
//	    fields:
//	      - {name: x, type: Float}
//	    methods:
//	      length: {symbol: vec3_length, signature: "(Vec3) -> Float"}
type Static struct {
	classes map[string]*staticClass
}

type staticClass struct {
	annotations []Annotation
	fields      []Field
	methods     map[string]ForeignFunction
}

type yamlFile struct {
	Classes map[string]yamlClass `yaml:"classes"`
}

type yamlClass struct {
	Annotations []string `yaml:"annotations,flow"`
	Fields      []struct {
		Name string `yaml:"name"`
		Type string `yaml:"type"`
	} `yaml:"fields"`
	Methods map[string]struct {
		Symbol    string `yaml:"symbol"`
		Signature string `yaml:"signature"`
	} `yaml:"methods"`
}

func NewStatic() *Static {
	return &Static{classes: make(map[string]*staticClass)}
}

func (s *Static) class(name string) *staticClass {
	c, ok := s.classes[name]
	if !ok {
		c = &staticClass{methods: make(map[string]ForeignFunction)}
		s.classes[name] = c
	}
	return c
}

func (s *Static) Annotate(class string, annotations ...Annotation) *Static {
	c := s.class(class)
	c.annotations = append(c.annotations, annotations...)
	return s
}

func (s *Static) Bind(class, method string, fn ForeignFunction) *Static {
	s.class(class).methods[method] = fn
	return s
}

func (s *Static) Layout(class string, fields ...Field) *Static {
	c := s.class(class)
	c.fields = append(c.fields, fields...)
	return s
}

func (s *Static) ClassAnnotations(class string) []Annotation {
	if c, ok := s.classes[class]; ok {
		return c.annotations
	}
	return nil
}

func (s *Static) ForeignFunction(class, method string) (ForeignFunction, bool) {
	c, ok := s.classes[class]
	if !ok {
		return ForeignFunction{}, false
	}
	fn, ok := c.methods[method]
	return fn, ok
}

func (s *Static) FieldLayout(class string) ([]Field, bool) {
	c, ok := s.classes[class]
	if !ok || len(c.fields) == 0 {
		return nil, false
	}
	return c.fields, true
}

// Load reads a Static oracle from YAML
func Load(r io.Reader) (*Static, error) {
	var file yamlFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "failed to decode oracle")
	}
	s := NewStatic()
	parser := types.NewParser(nil)
	for name, class := range file.Classes {
		for _, a := range class.Annotations {
			s.Annotate(name, Annotation(a))
		}
		for _, f := range class.Fields {
			t, err := parser.Parse(f.Type)
			if err != nil {
				return nil, errors.Wrapf(err, "field %s.%s", name, f.Name)
			}
			s.Layout(name, Field{Name: f.Name, Type: t})
		}
		for method, m := range class.Methods {
			t, err := parser.Parse(m.Signature)
			if err != nil {
				return nil, errors.Wrapf(err, "signature of %s#%s", name, method)
			}
			fn, ok := t.(*types.FunctionType)
			if !ok {
				return nil, errors.Errorf("signature of %s#%s is not a function type: %v", name, method, t)
			}
			s.Bind(name, method, ForeignFunction{Symbol: m.Symbol, Signature: fn})
		}
		s.class(name)
	}
	return s, nil
}

func LoadFile(path string) (*Static, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open oracle %s", path)
	}
	defer f.Close()
	return Load(f)
}
