package schema

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/pdlgen/errors"
)

// Snapshot YAML layout, produced by the resolver pass upstream:
//
//	decls:
//	  - id: <name>
//	    kind: packet | struct | enum
//	    endian: le | be                # packets and structs, default le
//	    parent: <name>                 # optional
//	    width: <bits>                  # enums
//	    tags:                          # enums
//	      - id: <name>
//	        value: <int>
//	    fields:                        # packets and structs
//	      - id: <name>                 # absent for reserved and fixed
//	        kind: scalar | fixed_scalar | fixed_enum | size | count |
//	              reserved | array | typedef | payload | body
//	        width: <bits>              # when statically known
//	        value: <int>               # fixed_scalar
//	        enum: <name>               # fixed_enum
//	        tag: <name>                # fixed_enum
//	        type: <name>               # typedef, array element type
//	        of: <field>                # size, count
//	        count: <int>               # fixed-length arrays
//
// The snapshot is assumed pre-validated; loading only checks structure.

func (e *Endian) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch s {
	case "le", "little", "little_endian":
		*e = LittleEndian
	case "be", "big", "big_endian":
		*e = BigEndian
	default:
		return fmt.Errorf("%d: unknown endianness %q", value.Line, s)
	}
	return nil
}

func (k *FieldKind) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	for i, name := range kindNames {
		if s == name {
			*k = FieldKind(i)
			return nil
		}
	}
	return fmt.Errorf("%d: unknown field kind %q", value.Line, s)
}

func (k *DeclKind) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	for i, name := range declNames {
		if s == name {
			*k = DeclKind(i)
			return nil
		}
	}
	return fmt.Errorf("%d: unknown declaration kind %q", value.Line, s)
}

type yamlTag struct {
	ID    string `yaml:"id"`
	Value uint64 `yaml:"value"`
}

type yamlField struct {
	ID    string    `yaml:"id"`
	Kind  FieldKind `yaml:"kind"`
	Width int       `yaml:"width"`
	Value uint64    `yaml:"value"`
	Enum  string    `yaml:"enum"`
	Tag   string    `yaml:"tag"`
	Type  string    `yaml:"type"`
	Of    string    `yaml:"of"`
	Count int       `yaml:"count"`
}

type yamlDecl struct {
	ID     string      `yaml:"id"`
	Kind   DeclKind    `yaml:"kind"`
	Endian Endian      `yaml:"endian"`
	Parent string      `yaml:"parent"`
	Width  int         `yaml:"width"`
	Tags   []yamlTag   `yaml:"tags"`
	Fields []yamlField `yaml:"fields"`
}

type yamlSnapshot struct {
	Decls []yamlDecl `yaml:"decls"`
}

// Load reads a resolved-schema snapshot and builds its Scope.
func Load(r io.Reader) (*Scope, error) {
	var snap yamlSnapshot
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&snap); err != nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindInvalidInput).
			Cause(err).
			Detail("decoding schema snapshot").
			Build()
	}

	decls := make([]*Decl, 0, len(snap.Decls))
	for _, yd := range snap.Decls {
		d := &Decl{
			ID:     yd.ID,
			Kind:   yd.Kind,
			Parent: yd.Parent,
			Endian: yd.Endian,
			Width:  yd.Width,
		}
		for _, yt := range yd.Tags {
			d.Tags = append(d.Tags, Tag{ID: yt.ID, Value: yt.Value})
		}
		for _, yf := range yd.Fields {
			d.Fields = append(d.Fields, Field{
				ID:      yf.ID,
				Kind:    yf.Kind,
				Width:   yf.Width,
				Value:   yf.Value,
				EnumID:  yf.Enum,
				TagID:   yf.Tag,
				TypeID:  yf.Type,
				FieldID: yf.Of,
				Count:   yf.Count,
			})
		}
		decls = append(decls, d)
	}

	return NewScope(decls), nil
}
