package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/wricardo/parkingjam/game/engine"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// hclLevelFile is the top-level structure of a .hcl level file.
//
//	level "starter" {
//	  vacancy        = 3
//	  initial_matrix = [[[1, 2], 0], [0, [2, 3]]]
//	  item_queue     = [1, 1, 2, 2, 2]
//	}
type hclLevelFile struct {
	Level hclLevel `hcl:"level,block"`
}

type hclLevel struct {
	Name          string         `hcl:"name,label"`
	Description   string         `hcl:"description,optional"`
	Vacancy       int            `hcl:"vacancy"`
	QueueSize     int            `hcl:"queue_size,optional"`
	InitialMatrix hcl.Expression `hcl:"initial_matrix"`
	ItemQueue     []int          `hcl:"item_queue"`
	Messages      *hclMessages   `hcl:"messages,block"`
}

type hclMessages struct {
	Welcome string `hcl:"welcome,optional"`
	Victory string `hcl:"victory,optional"`
	Stuck   string `hcl:"stuck,optional"`
}

// ParseLevelHCL decodes an HCL level definition. The level is not validated.
func ParseLevelHCL(src []byte, filename string) (*engine.Level, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var parsed hclLevelFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	matrix, err := decodeMatrix(parsed.Level.InitialMatrix)
	if err != nil {
		return nil, fmt.Errorf("%s: initial_matrix: %w", filename, err)
	}

	level := &engine.Level{
		Name:          parsed.Level.Name,
		Description:   parsed.Level.Description,
		Vacancy:       parsed.Level.Vacancy,
		QueueSize:     parsed.Level.QueueSize,
		InitialMatrix: matrix,
		ItemQueue:     parsed.Level.ItemQueue,
	}
	if m := parsed.Level.Messages; m != nil {
		level.Messages = engine.LevelMessages{
			Welcome: m.Welcome,
			Victory: m.Victory,
			Stuck:   m.Stuck,
		}
	}
	return level, nil
}

// decodeMatrix walks a tuple of rows where each cell is either 0 or a
// [color, capacity] pair.
func decodeMatrix(expr hcl.Expression) ([][]engine.Cell, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if !isSequence(val.Type()) {
		return nil, fmt.Errorf("expected a list of rows, got %s", val.Type().FriendlyName())
	}

	var matrix [][]engine.Cell
	for rows := val.ElementIterator(); rows.Next(); {
		_, rowVal := rows.Element()
		r := len(matrix)
		if rowVal.IsNull() || !isSequence(rowVal.Type()) {
			return nil, fmt.Errorf("row %d: expected a list of cells", r)
		}
		row := []engine.Cell{}
		for cells := rowVal.ElementIterator(); cells.Next(); {
			_, cellVal := cells.Element()
			cell, err := decodeCell(cellVal)
			if err != nil {
				return nil, fmt.Errorf("cell (%d,%d): %w", r, len(row), err)
			}
			row = append(row, cell)
		}
		matrix = append(matrix, row)
	}
	return matrix, nil
}

func decodeCell(val cty.Value) (engine.Cell, error) {
	if val.IsNull() {
		return engine.Cell{}, nil
	}
	if val.Type() == cty.Number {
		var n int
		if err := gocty.FromCtyValue(val, &n); err != nil {
			return engine.Cell{}, err
		}
		if n != engine.NoColor {
			return engine.Cell{}, fmt.Errorf("bare number %d, want 0 or [color, capacity]", n)
		}
		return engine.Cell{}, nil
	}
	if !isSequence(val.Type()) {
		return engine.Cell{}, fmt.Errorf("unexpected %s", val.Type().FriendlyName())
	}

	list, err := convert.Convert(val, cty.List(cty.Number))
	if err != nil {
		return engine.Cell{}, err
	}
	var pair []int
	if err := gocty.FromCtyValue(list, &pair); err != nil {
		return engine.Cell{}, err
	}
	if len(pair) != 2 {
		return engine.Cell{}, fmt.Errorf("want [color, capacity], got %d values", len(pair))
	}
	return engine.Cell{Color: pair[0], Capacity: pair[1]}, nil
}

func isSequence(t cty.Type) bool {
	return t.IsTupleType() || t.IsListType()
}
