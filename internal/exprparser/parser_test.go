package exprparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rql-db/rql/internal/exprparser/ast"
)

func TestParseSingleAssignment(t *testing.T) {
	assignments, err := Parse("price = price * 1.1")
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "price", assignments[0].Variable)
	assert.Equal(t, "price * 1.1", assignments[0].Expression)
}

func TestParseMultipleAssignmentsPreservesRawExpression(t *testing.T) {
	assignments, err := Parse("a = a * 2, b = b + a")
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	assert.Equal(t, "a * 2", assignments[0].Expression)
	assert.Equal(t, "b + a", assignments[1].Expression)
}

func TestParseFunctionCallExpression(t *testing.T) {
	assignments, err := Parse("x = sqrt(x) + abs(y - 1)")
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "sqrt(x) + abs(y - 1)", assignments[0].Expression)
}

func TestParseRejectsEmptySetClause(t *testing.T) {
	_, err := Parse("")
	require.Error(t, err)
}

func TestParseRejectsMalformedAssignment(t *testing.T) {
	_, err := Parse("x = ")
	require.Error(t, err)
}

func TestParseRejectsUnbalancedParens(t *testing.T) {
	_, err := Parse("x = (1 + 2")
	require.Error(t, err)
}

func TestParseExpressionReturnsEvaluableTree(t *testing.T) {
	node, err := ParseExpression("a * (b + 1)")
	require.NoError(t, err)
	bin, ok := node.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "*", bin.Op)
}

func TestParseExpressionRejectsTrailingTokens(t *testing.T) {
	_, err := ParseExpression("a + b)")
	require.Error(t, err)
}
