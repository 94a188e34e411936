package store

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Document is a decoded record as held by the in-memory backend.
type Document map[string]any

// Lookup resolves a dotted path such as "demographics.city".
func (d Document) Lookup(path string) (any, bool) {
	var cur any = map[string]any(d)
	for _, part := range splitPath(path) {
		var m map[string]any
		switch node := cur.(type) {
		case map[string]any:
			m = node
		case Document:
			m = node
		default:
			return nil, false
		}
		var ok bool
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func splitPath(path string) []string { return strings.Split(path, ".") }

// number accepts only genuine numeric types. Strings and booleans are not
// numbers here.
func number(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	}
	return 0, false
}

// normalizeKey folds every numeric representation of the same value into one
// key: integral values become int64, the rest float64.
func normalizeKey(v any) any {
	f, ok := number(v)
	if !ok {
		return v
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

func keyID(v any) string {
	return fmt.Sprintf("%T:%v", v, v)
}

// typeRank follows the BSON comparison order for the kinds of values stored in
// the record collections.
func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case int64, float64:
		return 1
	case string:
		return 2
	case bool:
		return 4
	}
	return 3
}

func compareKeys(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return ra - rb
	}
	switch x := a.(type) {
	case int64, float64:
		fa, _ := number(x)
		fb, _ := number(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case string:
		return strings.Compare(x, b.(string))
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	}
	return strings.Compare(keyID(a), keyID(b))
}

// equalValue is the type-sensitive equality used by OpIn.
func equalValue(a, b any) bool {
	fa, okA := number(a)
	fb, okB := number(b)
	if okA || okB {
		return okA && okB && fa == fb
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case nil:
		return b == nil
	}
	return false
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return parsed, err == nil
	}
	return time.Time{}, false
}

func isMissing(v any, ok bool) bool {
	if !ok || v == nil {
		return true
	}
	s, isString := v.(string)
	return isString && s == ""
}

func matches(doc Document, conds []Condition) bool {
	for _, c := range conds {
		v, ok := doc.Lookup(c.Field)
		switch c.Op {
		case OpNonEmpty:
			if isMissing(v, ok) {
				return false
			}
		case OpPositive:
			f, isNum := number(v)
			if !ok || !isNum || f <= 0 {
				return false
			}
		case OpIn:
			found := false
			for _, want := range c.Values {
				if ok && equalValue(v, want) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

// toDocument converts an arbitrary record into a Document through its JSON
// form, which is also how the postgres backend persists it.
func toDocument(doc any) (Document, error) {
	switch d := doc.(type) {
	case Document:
		return cloneMap(d), nil
	case map[string]any:
		return cloneMap(d), nil
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	var out Document
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	if out == nil {
		return nil, fmt.Errorf("document must encode to an object")
	}
	return out, nil
}

func cloneMap(m map[string]any) Document {
	out := make(Document, len(m))
	for k, v := range m {
		switch nested := v.(type) {
		case map[string]any:
			out[k] = map[string]any(cloneMap(nested))
			continue
		case Document:
			out[k] = map[string]any(cloneMap(nested))
			continue
		}
		out[k] = v
	}
	return out
}
