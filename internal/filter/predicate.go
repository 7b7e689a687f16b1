package filter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/heartmarshall/submission-backend/internal/domain"
)

// DataColumn is the jsonb column predicates render against.
const DataColumn = "data"

type kind int

const (
	kindString kind = iota
	kindNumber
	kindBool
)

// truth is SQL three-valued logic: a comparison against a missing field is
// unknown, and NOT unknown stays unknown.
type truth int

const (
	unknown truth = iota
	yes
	no
)

func truthOf(b bool) truth {
	if b {
		return yes
	}
	return no
}

type predicate interface {
	domain.RecordPredicate
	eval(rec domain.DataRecord) truth
}

type and []predicate

func (p and) Match(rec domain.DataRecord) bool { return p.eval(rec) == yes }

func (p and) eval(rec domain.DataRecord) truth {
	out := yes
	for _, sub := range p {
		switch sub.eval(rec) {
		case no:
			return no
		case unknown:
			out = unknown
		}
	}
	return out
}

func (p and) ToSql() (string, []any, error) {
	conj := make(sq.And, len(p))
	for i, sub := range p {
		conj[i] = sub
	}
	return conj.ToSql()
}

type or []predicate

func (p or) Match(rec domain.DataRecord) bool { return p.eval(rec) == yes }

func (p or) eval(rec domain.DataRecord) truth {
	out := no
	for _, sub := range p {
		switch sub.eval(rec) {
		case yes:
			return yes
		case unknown:
			out = unknown
		}
	}
	return out
}

func (p or) ToSql() (string, []any, error) {
	disj := make(sq.Or, len(p))
	for i, sub := range p {
		disj[i] = sub
	}
	return disj.ToSql()
}

type not struct {
	inner predicate
}

func (p not) Match(rec domain.DataRecord) bool { return p.eval(rec) == yes }

func (p not) eval(rec domain.DataRecord) truth {
	switch p.inner.eval(rec) {
	case yes:
		return no
	case no:
		return yes
	}
	return unknown
}

func (p not) ToSql() (string, []any, error) {
	sql, args, err := p.inner.ToSql()
	if err != nil {
		return "", nil, err
	}
	return "NOT (" + sql + ")", args, nil
}

type isNull struct {
	field string
}

func (p isNull) Match(rec domain.DataRecord) bool { return p.eval(rec) == yes }

func (p isNull) eval(rec domain.DataRecord) truth {
	v, ok := rec[p.field]
	return truthOf(!ok || v == nil)
}

func (p isNull) ToSql() (string, []any, error) {
	return DataColumn + "->>?::text IS NULL", []any{p.field}, nil
}

type compare struct {
	field string
	op    string
	value any
	kind  kind
}

func (p compare) Match(rec domain.DataRecord) bool { return p.eval(rec) == yes }

func (p compare) eval(rec domain.DataRecord) truth {
	v, ok := rec[p.field]
	if !ok || v == nil {
		return unknown
	}

	switch p.kind {
	case kindNumber:
		n, ok := toFloat(v)
		if !ok {
			return unknown
		}
		want := p.value.(float64)
		switch p.op {
		case "==":
			return truthOf(n == want)
		case "!=":
			return truthOf(n != want)
		case "<":
			return truthOf(n < want)
		case "<=":
			return truthOf(n <= want)
		case ">":
			return truthOf(n > want)
		case ">=":
			return truthOf(n >= want)
		}
	case kindBool:
		b, ok := v.(bool)
		if !ok {
			return truthOf(p.op == "!=")
		}
		eq := b == p.value.(bool)
		if p.op == "==" {
			return truthOf(eq)
		}
		return truthOf(!eq)
	default:
		c := strings.Compare(textOf(v), p.value.(string))
		switch p.op {
		case "==":
			return truthOf(c == 0)
		case "!=":
			return truthOf(c != 0)
		case "<":
			return truthOf(c < 0)
		case "<=":
			return truthOf(c <= 0)
		case ">":
			return truthOf(c > 0)
		case ">=":
			return truthOf(c >= 0)
		}
	}
	return unknown
}

func (p compare) ToSql() (string, []any, error) {
	op := p.op
	if op == "==" {
		op = "="
	}
	switch p.kind {
	case kindNumber:
		return "(CASE WHEN jsonb_typeof(" + DataColumn + "->?::text) = 'number' THEN (" + DataColumn + "->>?::text)::numeric END) " + op + " ?",
			[]any{p.field, p.field, p.value}, nil
	case kindBool:
		return DataColumn + "->>?::text " + op + " ?", []any{p.field, strconv.FormatBool(p.value.(bool))}, nil
	default:
		return DataColumn + "->>?::text " + op + " ?", []any{p.field, p.value}, nil
	}
}

type in struct {
	field  string
	values []any
}

func (p in) Match(rec domain.DataRecord) bool { return p.eval(rec) == yes }

func (p in) eval(rec domain.DataRecord) truth {
	v, ok := rec[p.field]
	if !ok || v == nil {
		return unknown
	}
	got := textOf(v)
	for _, want := range p.values {
		if got == textOf(want) {
			return yes
		}
	}
	return no
}

func (p in) ToSql() (string, []any, error) {
	args := make([]any, 0, len(p.values)+1)
	args = append(args, p.field)
	for _, v := range p.values {
		args = append(args, textOf(v))
	}
	return DataColumn + "->>?::text IN (" + sq.Placeholders(len(p.values)) + ")", args, nil
}

// textOf renders a value the way jsonb ->> does.
func textOf(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	}
	if n, ok := toFloat(v); ok {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
