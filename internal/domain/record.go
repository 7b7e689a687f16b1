package domain

import "sort"

// DataRecord is one submitted record: field name to primitive value or array
// of primitives.
type DataRecord map[string]any

// Clone returns a copy of r. Array values are copied as well.
func (r DataRecord) Clone() DataRecord {
	if r == nil {
		return nil
	}
	out := make(DataRecord, len(r))
	for k, v := range r {
		if arr, ok := v.([]any); ok {
			v = append([]any(nil), arr...)
		}
		out[k] = v
	}
	return out
}

// Keys returns the field names of r in sorted order.
func (r DataRecord) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
