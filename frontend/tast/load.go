package tast

import (
	"go/token"
	"io"
	"os"

	"github.com/cottand/hirc/frontend/ilerr"
	"github.com/cottand/hirc/frontend/source"
	"github.com/cottand/hirc/frontend/types"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// yamlNode is the on-disk form of a Tree:
//
//	kind: lasgn
//	name: x
//	type: Float
//	pos: [0, 11]
//	children:
//	  - kind: call
//	    name: "+"
//	    ...
//	  - ~   # absent child
type yamlNode struct {
	Kind     string      `yaml:"kind"`
	Name     string      `yaml:"name,omitempty"`
	Value    string      `yaml:"value,omitempty"`
	Type     string      `yaml:"type,omitempty"`
	Pos      []int       `yaml:"pos,omitempty,flow"`
	Flags    []string    `yaml:"flags,omitempty,flow"`
	Children []*yamlNode `yaml:"children,omitempty"`
}

// Load reads a typed tree from YAML. Type variables ('a) are shared across the whole document.
func Load(r io.Reader) (*Tree, error) {
	var root yamlNode
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		return nil, errors.Wrap(err, "failed to decode typed tree")
	}
	return (&loader{types: types.NewParser(nil)}).convert(&root)
}

func LoadFile(path string) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open typed tree %s", path)
	}
	defer f.Close()
	tree, err := Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "in %s", path)
	}
	return tree, nil
}

type loader struct {
	types *types.Parser
}

func (l *loader) convert(n *yamlNode) (*Tree, error) {
	if n.Kind == "" {
		return nil, ilerr.New(ilerr.NewMalformedNode{Reason: "node has no kind"})
	}
	t := New(Kind(n.Kind)).Named(n.Name).Valued(n.Value)
	switch len(n.Pos) {
	case 0:
	case 2:
		t.At(source.Range{PosStart: token.Pos(n.Pos[0]), PosEnd: token.Pos(n.Pos[1])})
	default:
		return nil, ilerr.New(ilerr.NewMalformedNode{Kind: n.Kind, Reason: "pos must be [start, end]"})
	}
	for _, name := range n.Flags {
		flag, ok := flagByName(name)
		if !ok {
			return nil, ilerr.New(ilerr.NewMalformedNode{Positioner: t.syntax.Range, Kind: n.Kind, Reason: "unknown flag " + name})
		}
		t.Flagged(flag)
	}
	if n.Type != "" {
		typ, err := l.types.Parse(n.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "type of %s node", n.Kind)
		}
		t.Typed(typ)
	}
	t.children = make([]Node, len(n.Children))
	for i, child := range n.Children {
		if child == nil {
			continue
		}
		converted, err := l.convert(child)
		if err != nil {
			return nil, err
		}
		t.children[i] = converted
	}
	return t, nil
}
