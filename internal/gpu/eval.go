package gpu

import (
	"fmt"
	"math"

	"github.com/rql-db/rql/internal/exprparser/ast"
)

// lane is one row's execution context inside a workgroup: it sees the
// bound column buffers (read/write, by row index) and a scratch space
// for temporaries introduced by the kernel's `let` bindings. Assignment
// order within a single lane is sequential, a write to a bound column
// is visible to every assignment evaluated afterwards in the same
// lane, exactly as WGSL's own sequential statement semantics would
// make it.
type lane struct {
	index    int
	columns  map[string]*boundColumn
	locals   map[string]float64
}

type boundColumn struct {
	buf *Buffer
	dt  elementKind
}

type elementKind int

const (
	kindI32 elementKind = iota
	kindF32
)

func (l *lane) read(name string) (float64, bool) {
	if v, ok := l.locals[name]; ok {
		return v, true
	}
	if c, ok := l.columns[name]; ok {
		return readElement(c, l.index), true
	}
	return 0, false
}

func (l *lane) write(name string, value float64) {
	if c, ok := l.columns[name]; ok {
		writeElement(c, l.index, value)
		return
	}
	l.locals[name] = value
}

func readElement(c *boundColumn, row int) float64 {
	switch c.dt {
	case kindI32:
		bits := leUint32(c.buf.Bytes[row*elementSize:])
		return float64(int32(bits))
	default:
		bits := leUint32(c.buf.Bytes[row*elementSize:])
		return float64(math.Float32frombits(bits))
	}
}

func writeElement(c *boundColumn, row int, value float64) {
	switch c.dt {
	case kindI32:
		putLeUint32(c.buf.Bytes[row*elementSize:], uint32(int32(value)))
	default:
		putLeUint32(c.buf.Bytes[row*elementSize:], math.Float32bits(float32(value)))
	}
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putLeUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// evalNode evaluates an expression AST node against one lane's
// bindings and locals. It is the host-side stand-in for the shader
// compiler evaluating the same textual expression the kernel
// generator embedded in the WGSL source (internal/kernel).
func evalNode(n ast.Node, l *lane) (float64, error) {
	switch node := n.(type) {
	case *ast.NumberLiteral:
		var f float64
		if _, err := fmt.Sscanf(node.Value, "%g", &f); err != nil {
			return 0, fmt.Errorf("invalid numeric literal %q", node.Value)
		}
		return f, nil

	case *ast.Ident:
		v, ok := l.read(node.Name)
		if !ok {
			return 0, fmt.Errorf("unknown identifier %q", node.Name)
		}
		return v, nil

	case *ast.ParenExpr:
		return evalNode(node.Inner, l)

	case *ast.BinaryExpr:
		left, err := evalNode(node.Left, l)
		if err != nil {
			return 0, err
		}
		right, err := evalNode(node.Right, l)
		if err != nil {
			return 0, err
		}
		switch node.Op {
		case "+":
			return left + right, nil
		case "-":
			return left - right, nil
		case "*":
			return left * right, nil
		case "/":
			return left / right, nil
		default:
			return 0, fmt.Errorf("unknown operator %q", node.Op)
		}

	case *ast.CallExpr:
		args := make([]float64, len(node.Args))
		for i, a := range node.Args {
			v, err := evalNode(a, l)
			if err != nil {
				return 0, err
			}
			args[i] = v
		}
		return callShaderFunc(node.Name, args)

	default:
		return 0, fmt.Errorf("unhandled expression node %T", n)
	}
}

// callShaderFunc implements the small subset of the shading language's
// standard library RQL supports: sin, cos, sqrt, abs. Any other name
// is rejected, since an unknown name here means the UPDATE referenced
// a function that doesn't exist.
func callShaderFunc(name string, args []float64) (float64, error) {
	unary := func(f func(float64) float64) (float64, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("%s takes exactly one argument, got %d", name, len(args))
		}
		return f(args[0]), nil
	}
	switch name {
	case "sin":
		return unary(math.Sin)
	case "cos":
		return unary(math.Cos)
	case "sqrt":
		return unary(math.Sqrt)
	case "abs":
		return unary(math.Abs)
	default:
		return 0, fmt.Errorf("unsupported shader function %q", name)
	}
}
