// Package schemavalidator checks records against the restrictions and foreign
// keys declared by a dictionary.
package schemavalidator

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/heartmarshall/submission-backend/internal/datadiff"
	"github.com/heartmarshall/submission-backend/internal/domain"
)

// Reasons reported in domain.RecordFieldError.
const (
	ReasonMissingRequired    = "MISSING_REQUIRED_FIELD"
	ReasonInvalidType        = "INVALID_BY_TYPE"
	ReasonInvalidRegex       = "INVALID_BY_REGEX"
	ReasonInvalidEnum        = "INVALID_ENUM_VALUE"
	ReasonInvalidRange       = "INVALID_BY_RANGE"
	ReasonInvalidUnique      = "INVALID_BY_UNIQUE"
	ReasonInvalidUniqueKey   = "INVALID_BY_UNIQUE_KEY"
	ReasonInvalidForeignKey  = "INVALID_BY_FOREIGNKEY"
	ReasonUnrecognizedField  = "UNRECOGNIZED_FIELD"
	ReasonUnrecognizedEntity = "UNRECOGNIZED_ENTITY"
)

// Validator is safe for concurrent use. Compiled regular expressions are
// shared across calls.
type Validator struct {
	mu      sync.RWMutex
	regexps map[string]*regexp.Regexp
}

// New creates a Validator.
func New() *Validator {
	return &Validator{regexps: make(map[string]*regexp.Regexp)}
}

// Validate checks every record of data against dict. The result holds, per
// entity, one RecordError for each record with at least one violation, with
// Index pointing into the input slice. Records without violations are omitted.
func (v *Validator) Validate(dict *domain.Dictionary, data map[string][]domain.DataRecord) map[string][]domain.RecordError {
	out := make(map[string][]domain.RecordError)

	for entity, records := range data {
		if len(records) == 0 {
			continue
		}
		schema, ok := dict.Schema(entity)
		if !ok {
			errs := make([]domain.RecordError, len(records))
			for i := range records {
				errs[i] = domain.RecordError{Index: i, FieldErrors: []domain.RecordFieldError{{
					Reason:  ReasonUnrecognizedEntity,
					Message: fmt.Sprintf("entity %q is not defined in dictionary %s@%s", entity, dict.Name, dict.Version),
				}}}
			}
			out[entity] = errs
			continue
		}

		fieldErrs := make([][]domain.RecordFieldError, len(records))
		for i, rec := range records {
			fieldErrs[i] = v.validateRecord(schema, rec)
		}
		checkUnique(schema, records, fieldErrs)
		checkUniqueKey(schema, records, fieldErrs)
		checkForeignKeys(schema, records, data, fieldErrs)

		var errs []domain.RecordError
		for i, fe := range fieldErrs {
			if len(fe) > 0 {
				errs = append(errs, domain.RecordError{Index: i, FieldErrors: fe})
			}
		}
		if len(errs) > 0 {
			out[entity] = errs
		}
	}
	return out
}

func (v *Validator) validateRecord(schema *domain.Schema, rec domain.DataRecord) []domain.RecordFieldError {
	var errs []domain.RecordFieldError

	for _, name := range rec.Keys() {
		if _, ok := schema.Field(name); !ok && !datadiff.IsUndefined(rec[name]) {
			errs = append(errs, fieldError(name, ReasonUnrecognizedField, "field is not defined in schema "+schema.Name, nil))
		}
	}

	for _, f := range schema.Fields {
		value, present := rec[f.Name]
		if !present || isEmpty(value) {
			if f.Restrictions.Required {
				errs = append(errs, fieldError(f.Name, ReasonMissingRequired, "value is required", nil))
			}
			continue
		}

		values, ok := elements(f, value)
		if !ok {
			errs = append(errs, typeError(f, value))
			continue
		}

		if bad := firstBadType(f.ValueType, values); bad != nil {
			errs = append(errs, typeError(f, bad))
			continue
		}

		if f.Restrictions.Regex != "" {
			re, err := v.compile(f.Restrictions.Regex)
			if err != nil {
				errs = append(errs, fieldError(f.Name, ReasonInvalidRegex, "restriction pattern does not compile", map[string]any{"regex": f.Restrictions.Regex}))
			} else {
				for _, el := range values {
					if !re.MatchString(fmt.Sprint(el)) {
						errs = append(errs, fieldError(f.Name, ReasonInvalidRegex, "value does not match pattern", map[string]any{"regex": f.Restrictions.Regex, "value": el}))
						break
					}
				}
			}
		}

		if len(f.Restrictions.CodeList) > 0 {
			for _, el := range values {
				if !inCodeList(el, f.Restrictions.CodeList) {
					errs = append(errs, fieldError(f.Name, ReasonInvalidEnum, "value is not in the code list", map[string]any{"value": el, "codeList": f.Restrictions.CodeList}))
					break
				}
			}
		}

		if r := f.Restrictions.Range; r != nil && f.ValueType.IsNumeric() {
			for _, el := range values {
				n, _ := toFloat(el)
				if !inRange(n, r) {
					errs = append(errs, fieldError(f.Name, ReasonInvalidRange, "value is out of range", map[string]any{"value": el}))
					break
				}
			}
		}
	}
	return errs
}

func (v *Validator) compile(pattern string) (*regexp.Regexp, error) {
	v.mu.RLock()
	re, ok := v.regexps[pattern]
	v.mu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	v.mu.Lock()
	v.regexps[pattern] = re
	v.mu.Unlock()
	return re, nil
}

// checkUnique flags every record sharing a value of a unique field.
func checkUnique(schema *domain.Schema, records []domain.DataRecord, errs [][]domain.RecordFieldError) {
	for _, f := range schema.Fields {
		if !f.Restrictions.Unique {
			continue
		}
		seen := make(map[string][]int)
		for i, rec := range records {
			if v, ok := rec[f.Name]; ok && !isEmpty(v) {
				k := keyOf(v)
				seen[k] = append(seen[k], i)
			}
		}
		for _, idx := range seen {
			if len(idx) < 2 {
				continue
			}
			for _, i := range idx {
				errs[i] = append(errs[i], fieldError(f.Name, ReasonInvalidUnique, "value must be unique", map[string]any{"value": records[i][f.Name]}))
			}
		}
	}
}

// checkUniqueKey flags every record sharing the composite unique key.
func checkUniqueKey(schema *domain.Schema, records []domain.DataRecord, errs [][]domain.RecordFieldError) {
	if len(schema.UniqueKey) == 0 {
		return
	}
	seen := make(map[string][]int)
	for i, rec := range records {
		if k, ok := tupleKey(rec, schema.UniqueKey); ok {
			seen[k] = append(seen[k], i)
		}
	}
	for _, idx := range seen {
		if len(idx) < 2 {
			continue
		}
		for _, i := range idx {
			errs[i] = append(errs[i], fieldError(schema.UniqueKey[0], ReasonInvalidUniqueKey, "unique key must be unique", map[string]any{"uniqueKey": schema.UniqueKey}))
		}
	}
}

// checkForeignKeys flags records whose referenced tuple is absent from the
// target entity's records. Records with every local field empty reference
// nothing and pass.
func checkForeignKeys(schema *domain.Schema, records []domain.DataRecord, data map[string][]domain.DataRecord, errs [][]domain.RecordFieldError) {
	for _, fk := range schema.ForeignKeys {
		if len(fk.Mappings) == 0 {
			continue
		}
		locals := make([]string, len(fk.Mappings))
		foreigns := make([]string, len(fk.Mappings))
		for i, m := range fk.Mappings {
			locals[i] = m.Local
			foreigns[i] = m.Foreign
		}

		targets := make(map[string]struct{})
		for _, rec := range data[fk.Schema] {
			if k, ok := tupleKey(rec, foreigns); ok {
				targets[k] = struct{}{}
			}
		}

		for i, rec := range records {
			if allEmpty(rec, locals) {
				continue
			}
			k, ok := tupleKey(rec, locals)
			if ok {
				if _, found := targets[k]; found {
					continue
				}
			}
			info := map[string]any{"foreignSchema": fk.Schema, "foreignFields": foreigns}
			if len(locals) == 1 {
				info["value"] = rec[locals[0]]
			}
			errs[i] = append(errs[i], fieldError(locals[0], ReasonInvalidForeignKey,
				fmt.Sprintf("no %s record matches %s", fk.Schema, strings.Join(locals, ", ")), info))
		}
	}
}

func fieldError(field, reason, message string, info map[string]any) domain.RecordFieldError {
	return domain.RecordFieldError{FieldName: field, Reason: reason, Message: message, Info: info}
}

func typeError(f domain.Field, value any) domain.RecordFieldError {
	want := string(f.ValueType)
	if f.IsArray {
		want = "array of " + want
	}
	return fieldError(f.Name, ReasonInvalidType, "value is not of type "+want, map[string]any{"value": value})
}

// elements returns the values to check for f: the array items for array
// fields, the single value otherwise.
func elements(f domain.Field, value any) ([]any, bool) {
	arr, isArr := value.([]any)
	if f.IsArray != isArr {
		return nil, false
	}
	if isArr {
		return arr, true
	}
	return []any{value}, true
}

func firstBadType(t domain.ValueType, values []any) any {
	for _, v := range values {
		if !hasType(t, v) {
			return v
		}
	}
	return nil
}

func hasType(t domain.ValueType, v any) bool {
	switch t {
	case domain.ValueTypeString:
		_, ok := v.(string)
		return ok
	case domain.ValueTypeBoolean:
		_, ok := v.(bool)
		return ok
	case domain.ValueTypeNumber:
		_, ok := toFloat(v)
		return ok
	case domain.ValueTypeInteger:
		n, ok := toFloat(v)
		return ok && n == math.Trunc(n) && !math.IsInf(n, 0)
	}
	return false
}

func inCodeList(v any, codes []any) bool {
	k := keyOf(v)
	for _, c := range codes {
		if keyOf(c) == k {
			return true
		}
	}
	return false
}

func inRange(n float64, r *domain.NumberRange) bool {
	if r.Min != nil {
		if n < *r.Min || (r.ExclusiveMin && n == *r.Min) {
			return false
		}
	}
	if r.Max != nil {
		if n > *r.Max || (r.ExclusiveMax && n == *r.Max) {
			return false
		}
	}
	return true
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	}
	return datadiff.IsUndefined(v)
}

func allEmpty(rec domain.DataRecord, fields []string) bool {
	for _, f := range fields {
		if v, ok := rec[f]; ok && !isEmpty(v) {
			return false
		}
	}
	return true
}

// tupleKey joins the values of fields. It fails when any of them is empty.
func tupleKey(rec domain.DataRecord, fields []string) (string, bool) {
	parts := make([]string, len(fields))
	for i, f := range fields {
		v, ok := rec[f]
		if !ok || isEmpty(v) {
			return "", false
		}
		parts[i] = keyOf(v)
	}
	return strings.Join(parts, "\x1f"), true
}

// keyOf renders a value for equality comparison, tagged with its JSON kind
// so the string "1" and the number 1 never match. Numbers of different Go
// types with the same value render identically.
func keyOf(v any) string {
	if n, ok := toFloat(v); ok {
		return "n:" + strconv.FormatFloat(n, 'g', -1, 64)
	}
	switch x := v.(type) {
	case string:
		return "s:" + x
	case bool:
		return "b:" + strconv.FormatBool(x)
	case nil:
		return "z:"
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "v:" + fmt.Sprint(v)
	}
	return "j:" + string(raw)
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
