// Package kernel generates the GPU compute-shader source for an
// UPDATE's assignment list. It has no idea what a GPU is:
// it only emits WGSL-flavored text with one storage binding per
// numeric column, an entry point guarded by arrayLength, and a
// word-boundary textual substitution of column references into
// per-lane array indexing.
package kernel

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rql-db/rql/internal/coldata"
	"github.com/rql-db/rql/internal/rqlerr"
	"github.com/rql-db/rql/internal/types"
)

const WorkgroupSize = 64

// EntryPoint is the name every generated kernel exposes, matching
// what the GPU executor looks up on the compute pipeline.
const EntryPoint = "main"

// Generate emits the compute-shader source for assignments against
// the numeric columns of cols. Returns rqlerr.KindInvalidInput if an
// assignment's variable or expression is empty, since that can only
// happen from a malformed caller, the expression parser itself never
// emits such an assignment.
func Generate(cols coldata.Set, assignments []types.Assignment) (string, error) {
	if len(cols.Columns) == 0 {
		return "", rqlerr.New(rqlerr.KindInvalidInput, "kernel.Generate", fmt.Errorf("no numeric columns to bind"))
	}

	var b strings.Builder

	// 1. Binding declarations, one per numeric column, in map-iteration
	// (here: schema) order; k increments from 0.
	for k, c := range cols.Columns {
		wgslType, err := wgslElementType(c.DataType)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "@group(0) @binding(%d) var<storage, read_write> %s: array<%s>;\n", k, c.Name, wgslType)
	}
	b.WriteByte('\n')

	// 2. Entry point.
	firstColumn := cols.Columns[0].Name
	fmt.Fprintf(&b, "@compute @workgroup_size(%d, 1, 1)\n", WorkgroupSize)
	fmt.Fprintf(&b, "fn %s(@builtin(global_invocation_id) gid: vec3<u32>, @builtin(local_invocation_id) lid: vec3<u32>, @builtin(workgroup_id) wid: vec3<u32>) {\n", EntryPoint)
	fmt.Fprintf(&b, "  let sys_index = wid.x * %du + lid.x;\n", WorkgroupSize)
	fmt.Fprintf(&b, "  if (sys_index < arrayLength(&%s)) {\n", firstColumn)

	// 3. Assignment translation.
	known := make(map[string]bool, len(cols.Columns))
	for _, c := range cols.Columns {
		known[c.Name] = true
	}
	for _, a := range assignments {
		if strings.TrimSpace(a.Variable) == "" || strings.TrimSpace(a.Expression) == "" {
			return "", rqlerr.New(rqlerr.KindInvalidInput, "kernel.Generate", fmt.Errorf("empty assignment"))
		}
		translated := substituteColumns(a.Expression, known)
		if known[a.Variable] {
			fmt.Fprintf(&b, "    %s[sys_index] = %s;\n", a.Variable, translated)
		} else {
			fmt.Fprintf(&b, "    let %s = %s;\n", a.Variable, translated)
		}
	}

	b.WriteString("  }\n}\n")
	return b.String(), nil
}

func wgslElementType(dt types.DataType) (string, error) {
	switch dt {
	case types.Integer:
		return "i32", nil
	case types.Float:
		return "f32", nil
	default:
		return "", rqlerr.New(rqlerr.KindInvalidInput, "kernel.wgslElementType", fmt.Errorf("data type %v cannot be bound to a GPU kernel", dt))
	}
}

var identifierRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// ReferencedIdentifiers returns the distinct word-boundary identifiers
// appearing in expr, in first-seen order. The engine uses this to
// check an assignment's right-hand side against the schema before
// a kernel is ever generated from it. A reference to a non-numeric
// column must be rejected there, not discovered as a bind failure.
func ReferencedIdentifiers(expr string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, word := range identifierRe.FindAllString(expr, -1) {
		if !seen[word] {
			seen[word] = true
			out = append(out, word)
		}
	}
	return out
}

// substituteColumns rewrites every word-boundary occurrence of a known
// column name in expr to `<col>[sys_index]`, leaving identifiers that
// merely share a prefix (e.g. "xy" when "x" is a column) untouched.
func substituteColumns(expr string, known map[string]bool) string {
	return identifierRe.ReplaceAllStringFunc(expr, func(word string) string {
		if known[word] {
			return word + "[sys_index]"
		}
		return word
	})
}
