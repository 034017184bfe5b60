package graphicsstate

import (
	"errors"
	"fmt"

	"github.com/tsawler/pagedecode/contentstream"
	"github.com/tsawler/pagedecode/core"
	"github.com/tsawler/pagedecode/model"
)

// ErrNotStateOperator is returned by Apply for operators that need more
// than the graphics state, such as Tf, gs, cs or path painting.
var ErrNotStateOperator = errors.New("not a graphics state operator")

// ErrOperands is wrapped when an operator has the wrong operands.
var ErrOperands = errors.New("bad operands")

// Apply executes an operator that only reads and writes the graphics state.
func (gs *GraphicsState) Apply(op contentstream.Operation) error {
	args := op.Operands
	switch op.Operator {
	// Graphics state operators
	case "q":
		return gs.Save()
	case "Q":
		return gs.Restore()
	case "cm":
		m, err := operandsToMatrix(args)
		if err != nil {
			return operandError(op, err)
		}
		gs.Transform(m)
	case "w":
		w, err := numbers(args, 1)
		if err != nil {
			return operandError(op, err)
		}
		gs.SetLineWidth(w[0])
	case "J":
		v, err := numbers(args, 1)
		if err != nil {
			return operandError(op, err)
		}
		gs.LineCap = int(v[0])
	case "j":
		v, err := numbers(args, 1)
		if err != nil {
			return operandError(op, err)
		}
		gs.LineJoin = int(v[0])
	case "M":
		v, err := numbers(args, 1)
		if err != nil {
			return operandError(op, err)
		}
		gs.MiterLimit = v[0]
	case "d", "ri", "i":
		// Dash pattern, rendering intent and flatness do not affect output.

	// Color operators
	case "G", "g":
		v, err := numbers(args, 1)
		if err != nil {
			return operandError(op, err)
		}
		gs.setColor(op.Operator == "G", Color{Space: DeviceGray, Components: v})
	case "RG", "rg":
		v, err := numbers(args, 3)
		if err != nil {
			return operandError(op, err)
		}
		gs.setColor(op.Operator == "RG", Color{Space: DeviceRGB, Components: v})
	case "K", "k":
		v, err := numbers(args, 4)
		if err != nil {
			return operandError(op, err)
		}
		gs.setColor(op.Operator == "K", Color{Space: DeviceCMYK, Components: v})
	case "SC", "sc", "SCN", "scn":
		stroke := op.Operator == "SC" || op.Operator == "SCN"
		cur := gs.FillColor
		if stroke {
			cur = gs.StrokeColor
		}
		c := Color{Space: cur.Space}
		for _, a := range args {
			if n, ok := core.Number(a); ok {
				c.Components = append(c.Components, n)
			} else if name, ok := a.(core.Name); ok && (op.Operator == "SCN" || op.Operator == "scn") {
				c.Pattern = string(name)
			} else {
				return operandError(op, fmt.Errorf("%s operand", a.Kind()))
			}
		}
		gs.setColor(stroke, c)

	// Text state operators
	case "BT":
		gs.BeginText()
	case "ET":
	case "Tc":
		v, err := numbers(args, 1)
		if err != nil {
			return operandError(op, err)
		}
		gs.SetCharSpacing(v[0])
	case "Tw":
		v, err := numbers(args, 1)
		if err != nil {
			return operandError(op, err)
		}
		gs.SetWordSpacing(v[0])
	case "Tz":
		v, err := numbers(args, 1)
		if err != nil {
			return operandError(op, err)
		}
		gs.SetHorizontalScaling(v[0])
	case "TL":
		v, err := numbers(args, 1)
		if err != nil {
			return operandError(op, err)
		}
		gs.SetLeading(v[0])
	case "Tr":
		v, err := numbers(args, 1)
		if err != nil {
			return operandError(op, err)
		}
		gs.SetRenderingMode(int(v[0]))
	case "Ts":
		v, err := numbers(args, 1)
		if err != nil {
			return operandError(op, err)
		}
		gs.SetTextRise(v[0])
	case "Td":
		v, err := numbers(args, 2)
		if err != nil {
			return operandError(op, err)
		}
		gs.TranslateText(v[0], v[1])
	case "TD":
		v, err := numbers(args, 2)
		if err != nil {
			return operandError(op, err)
		}
		gs.TranslateTextSetLeading(v[0], v[1])
	case "Tm":
		m, err := operandsToMatrix(args)
		if err != nil {
			return operandError(op, err)
		}
		gs.SetTextMatrix(m)
	case "T*":
		gs.NextLine()
	default:
		return ErrNotStateOperator
	}
	return nil
}

func (gs *GraphicsState) setColor(stroke bool, c Color) {
	if stroke {
		gs.StrokeColor = c
	} else {
		gs.FillColor = c
	}
}

// ApplyExtGState applies the parameters of an ExtGState dictionary and
// returns the /Font entry, a [font size] array, when present.
func (gs *GraphicsState) ApplyExtGState(d core.Dict) (core.Array, bool) {
	if v, ok := d.Float("LW"); ok {
		gs.LineWidth = v
	}
	if v, ok := d.Int("LC"); ok {
		gs.LineCap = int(v)
	}
	if v, ok := d.Int("LJ"); ok {
		gs.LineJoin = int(v)
	}
	if v, ok := d.Float("ML"); ok {
		gs.MiterLimit = v
	}
	if v, ok := d.Float("CA"); ok {
		gs.StrokeAlpha = clamp01(v)
	}
	if v, ok := d.Float("ca"); ok {
		gs.FillAlpha = clamp01(v)
	}
	f, ok := d.Array("Font")
	if !ok || len(f) != 2 {
		return nil, false
	}
	return f, true
}

// OperandError reports an operator whose operands could not be used.
type OperandError struct {
	Operator string
	Offset   int
	Err      error
}

func (e *OperandError) Error() string {
	return fmt.Sprintf("operator %s at offset %d: %v", e.Operator, e.Offset, e.Err)
}

func (e *OperandError) Unwrap() error { return e.Err }

func operandError(op contentstream.Operation, err error) error {
	return &OperandError{Operator: op.Operator, Offset: op.Offset, Err: fmt.Errorf("%w: %v", ErrOperands, err)}
}

// Helper functions

func toFloat(obj core.Object) (float64, bool) {
	return core.Number(obj)
}

// numbers reads the last n operands as numbers. Extra leading operands are
// ignored.
func numbers(operands []core.Object, n int) ([]float64, error) {
	if len(operands) < n {
		return nil, fmt.Errorf("want %d operands, got %d", n, len(operands))
	}
	out := make([]float64, n)
	for i, obj := range operands[len(operands)-n:] {
		v, ok := toFloat(obj)
		if !ok {
			return nil, fmt.Errorf("operand %d is %s", i, obj.Kind())
		}
		out[i] = v
	}
	return out, nil
}

func operandsToMatrix(operands []core.Object) (model.Matrix, error) {
	vals, err := numbers(operands, 6)
	if err != nil {
		return model.Identity(), err
	}
	return model.Matrix(vals), nil
}
