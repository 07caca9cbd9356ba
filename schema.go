package carquet

import (
	"fmt"

	"github.com/Vitruves/carquet-go/format"
)

// Column describes one leaf of the schema: its physical type and the
// definition/repetition levels accumulated from its OPTIONAL and REPEATED
// ancestors. Columns are indexed in depth-first leaf order, matching the
// order of column chunks within row groups.
type Column struct {
	Index              int
	Path               []string
	PhysicalType       format.Type
	TypeLength         int
	MaxDefinitionLevel int
	MaxRepetitionLevel int
	Element            *format.SchemaElement
}

// columnsOf walks the flat depth-first schema list and computes the leaf
// column descriptors. The first element is the schema root; its repetition
// type is ignored.
func columnsOf(schema []format.SchemaElement) ([]Column, error) {
	if len(schema) == 0 {
		return nil, fmt.Errorf("empty schema: %w", ErrInvalidFileFormat)
	}

	var columns []Column
	pos := 1
	root := &schema[0]
	numChildren := 0
	if root.NumChildren != nil {
		numChildren = int(*root.NumChildren)
	}

	var walk func(parent *format.SchemaElement, count int, path []string, maxDef, maxRep int) error
	walk = func(parent *format.SchemaElement, count int, path []string, maxDef, maxRep int) error {
		for itr := 0; itr < count; itr++ {
			if pos >= len(schema) {
				return fmt.Errorf("schema element %q declares more children than the schema holds: %w", parent.Name, ErrInvalidFileFormat)
			}
			el := &schema[pos]
			pos++

			def, rep := maxDef, maxRep
			if el.RepetitionType != nil {
				switch *el.RepetitionType {
				case format.Optional:
					def++
				case format.Repeated:
					def++
					rep++
				}
			}

			childPath := append(path[:len(path):len(path)], el.Name)
			if el.NumChildren != nil && *el.NumChildren > 0 {
				if err := walk(el, int(*el.NumChildren), childPath, def, rep); err != nil {
					return err
				}
				continue
			}
			if el.Type == nil {
				return fmt.Errorf("schema leaf %q has no physical type: %w", el.Name, ErrInvalidFileFormat)
			}
			typeLength := 0
			if el.TypeLength != nil {
				typeLength = int(*el.TypeLength)
			}
			if *el.Type == format.FixedLenByteArray && typeLength <= 0 {
				return fmt.Errorf("schema leaf %q has no type length: %w", el.Name, ErrInvalidFileFormat)
			}
			columns = append(columns, Column{
				Index:              len(columns),
				Path:               childPath,
				PhysicalType:       *el.Type,
				TypeLength:         typeLength,
				MaxDefinitionLevel: def,
				MaxRepetitionLevel: rep,
				Element:            el,
			})
		}
		return nil
	}

	if err := walk(root, numChildren, nil, 0, 0); err != nil {
		return nil, err
	}
	if pos != len(schema) {
		return nil, fmt.Errorf("%d schema elements unreachable from the root: %w", len(schema)-pos, ErrInvalidFileFormat)
	}
	return columns, nil
}

// typeSize returns the PLAIN byte width of fixed-width physical types, or 0
// for BOOLEAN and variable-length types.
func typeSize(t format.Type, typeLength int) int {
	switch t {
	case format.Int32, format.Float:
		return 4
	case format.Int64, format.Double:
		return 8
	case format.Int96:
		return 12
	case format.FixedLenByteArray:
		return typeLength
	default:
		return 0
	}
}
