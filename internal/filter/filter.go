// Package filter compiles boolean expressions over record fields, such as
// `donor_id == "D1" && (age >= 18 || status != nil)`, into predicates that
// can be evaluated in memory or rendered as SQL over a jsonb data column.
package filter

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"

	"github.com/heartmarshall/submission-backend/internal/domain"
)

// Compile parses expression and resolves its identifiers against fields. An
// empty expression yields a nil predicate.
func Compile(expression string, fields map[string]domain.ValueType) (domain.RecordPredicate, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, nil
	}

	tree, err := parser.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("parse filter: %v: %w", err, domain.ErrBadRequest)
	}

	c := &compiler{fields: fields}
	p, err := c.node(tree.Node)
	if err != nil {
		return nil, fmt.Errorf("filter %q: %w", expression, err)
	}
	return p, nil
}

type compiler struct {
	fields map[string]domain.ValueType
}

func (c *compiler) node(n ast.Node) (predicate, error) {
	switch v := n.(type) {
	case *ast.BinaryNode:
		return c.binary(v)
	case *ast.UnaryNode:
		switch v.Operator {
		case "!", "not":
			inner, err := c.node(v.Node)
			if err != nil {
				return nil, err
			}
			return not{inner}, nil
		}
		return nil, badRequest("unsupported unary operator %q", v.Operator)
	case *ast.IdentifierNode:
		// a bare boolean field: `alive`
		t, err := c.field(v.Value)
		if err != nil {
			return nil, err
		}
		if t != domain.ValueTypeBoolean {
			return nil, badRequest("field %q is not boolean", v.Value)
		}
		return compare{field: v.Value, op: "==", value: true, kind: kindBool}, nil
	}
	return nil, badRequest("unsupported expression %T", n)
}

func (c *compiler) binary(b *ast.BinaryNode) (predicate, error) {
	switch b.Operator {
	case "&&", "and", "||", "or":
		left, err := c.node(b.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.node(b.Right)
		if err != nil {
			return nil, err
		}
		if b.Operator == "&&" || b.Operator == "and" {
			return and{left, right}, nil
		}
		return or{left, right}, nil
	case "in", "not in":
		p, err := c.in(b)
		if err != nil {
			return nil, err
		}
		if b.Operator == "not in" {
			return not{p}, nil
		}
		return p, nil
	case "==", "!=", "<", "<=", ">", ">=":
		return c.comparison(b)
	}
	return nil, badRequest("unsupported operator %q", b.Operator)
}

func (c *compiler) comparison(b *ast.BinaryNode) (predicate, error) {
	ident, lit, op := b.Left, b.Right, b.Operator
	if _, ok := ident.(*ast.IdentifierNode); !ok || isNil(ident) {
		ident, lit, op = b.Right, b.Left, flip(b.Operator)
	}
	id, ok := ident.(*ast.IdentifierNode)
	if !ok || isNil(id) {
		return nil, badRequest("comparison needs a field on one side")
	}
	t, err := c.field(id.Value)
	if err != nil {
		return nil, err
	}

	if isNil(lit) {
		switch op {
		case "==":
			return isNull{field: id.Value}, nil
		case "!=":
			return not{isNull{field: id.Value}}, nil
		}
		return nil, badRequest("operator %q cannot compare with nil", op)
	}

	value, k, err := literal(lit)
	if err != nil {
		return nil, err
	}
	if t.IsNumeric() && k != kindNumber {
		return nil, badRequest("field %q is numeric", id.Value)
	}
	if k == kindBool && op != "==" && op != "!=" {
		return nil, badRequest("operator %q cannot compare booleans", op)
	}
	return compare{field: id.Value, op: op, value: value, kind: k}, nil
}

func (c *compiler) in(b *ast.BinaryNode) (predicate, error) {
	id, ok := b.Left.(*ast.IdentifierNode)
	if !ok || isNil(id) {
		return nil, badRequest("left side of in must be a field")
	}
	t, err := c.field(id.Value)
	if err != nil {
		return nil, err
	}
	arr, ok := b.Right.(*ast.ArrayNode)
	if !ok {
		return nil, badRequest("right side of in must be a list")
	}
	if len(arr.Nodes) == 0 {
		return nil, badRequest("in list is empty")
	}

	values := make([]any, len(arr.Nodes))
	for i, n := range arr.Nodes {
		v, k, err := literal(n)
		if err != nil {
			return nil, err
		}
		if t.IsNumeric() && k != kindNumber {
			return nil, badRequest("field %q is numeric", id.Value)
		}
		values[i] = v
	}
	return in{field: id.Value, values: values}, nil
}

func (c *compiler) field(name string) (domain.ValueType, error) {
	t, ok := c.fields[name]
	if !ok {
		return "", badRequest("unknown field %q", name)
	}
	return t, nil
}

func literal(n ast.Node) (any, kind, error) {
	switch v := n.(type) {
	case *ast.StringNode:
		return v.Value, kindString, nil
	case *ast.IntegerNode:
		return float64(v.Value), kindNumber, nil
	case *ast.FloatNode:
		return v.Value, kindNumber, nil
	case *ast.BoolNode:
		return v.Value, kindBool, nil
	case *ast.UnaryNode:
		if v.Operator == "-" {
			inner, k, err := literal(v.Node)
			if err != nil || k != kindNumber {
				return nil, 0, badRequest("unary minus needs a number")
			}
			return -inner.(float64), kindNumber, nil
		}
	}
	return nil, 0, badRequest("expected a literal, got %T", n)
}

func isNil(n ast.Node) bool {
	if _, ok := n.(*ast.NilNode); ok {
		return true
	}
	if id, ok := n.(*ast.IdentifierNode); ok {
		v := strings.ToLower(id.Value)
		return v == "nil" || v == "null"
	}
	return false
}

func flip(op string) string {
	switch op {
	case "<":
		return ">"
	case "<=":
		return ">="
	case ">":
		return "<"
	case ">=":
		return "<="
	}
	return op
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), domain.ErrBadRequest)
}
