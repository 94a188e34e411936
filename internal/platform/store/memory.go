package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store. It is used by tests and by development runs
// with STORE_DRIVER=memory; data does not survive a restart.
type Memory struct {
	mu   sync.RWMutex
	docs map[Collection][]Document
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[Collection][]Document)}
}

func (m *Memory) Insert(_ context.Context, coll Collection, doc any) (string, error) {
	if err := coll.Validate(); err != nil {
		return "", err
	}
	d, err := toDocument(doc)
	if err != nil {
		return "", err
	}
	id, _ := d["_id"].(string)
	if id == "" {
		id = uuid.NewString()
		d["_id"] = id
	}
	m.mu.Lock()
	m.docs[coll] = append(m.docs[coll], d)
	m.mu.Unlock()
	return id, nil
}

// snapshot returns the documents of coll. Documents are never mutated after
// insert, so the slice header copy is enough.
func (m *Memory) snapshot(coll Collection) ([]Document, error) {
	if err := coll.Validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Document(nil), m.docs[coll]...), nil
}

func (m *Memory) Count(_ context.Context, coll Collection) (int64, error) {
	docs, err := m.snapshot(coll)
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

type tally struct {
	order  []string
	counts map[string]*Bucket
}

func newTally() *tally { return &tally{counts: make(map[string]*Bucket)} }

func (t *tally) add(key any) {
	id := keyID(key)
	b, ok := t.counts[id]
	if !ok {
		b = &Bucket{Key: key}
		t.counts[id] = b
		t.order = append(t.order, id)
	}
	b.Count++
}

func (t *tally) buckets() []Bucket {
	out := make([]Bucket, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.counts[id])
	}
	return out
}

func unwind(v any, ok bool) []any {
	if !ok || v == nil {
		return nil
	}
	switch arr := v.(type) {
	case []any:
		return arr
	case []string:
		out := make([]any, len(arr))
		for i, s := range arr {
			out[i] = s
		}
		return out
	}
	return []any{v}
}

func (m *Memory) Group(_ context.Context, coll Collection, q GroupQuery) ([]Bucket, error) {
	docs, err := m.snapshot(coll)
	if err != nil {
		return nil, err
	}
	t := newTally()
	for _, doc := range docs {
		v, ok := doc.Lookup(q.Field)
		rows := []Document{doc}
		if q.Unwind {
			rows = rows[:0]
			for _, member := range unwind(v, ok) {
				rows = append(rows, withField(doc, q.Field, member))
			}
		}
		for _, row := range rows {
			if !matches(row, q.Where) {
				continue
			}
			key, _ := row.Lookup(q.Field)
			if s, isString := key.(string); isString && q.Key == KeyUpper {
				key = upperASCII(s)
			}
			t.add(normalizeKey(key))
		}
	}
	out := t.buckets()
	switch q.Sort {
	case SortCountDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	case SortKeyAsc:
		sort.SliceStable(out, func(i, j int) bool { return compareKeys(out[i].Key, out[j].Key) < 0 })
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// withField returns a shallow view of doc where path resolves to v, leaving
// doc itself untouched.
func withField(doc Document, path string, v any) Document {
	out := make(Document, len(doc))
	for k, val := range doc {
		out[k] = val
	}
	cur := out
	parts := splitPath(path)
	for i, part := range parts {
		if i == len(parts)-1 {
			cur[part] = v
			break
		}
		var next map[string]any
		switch node := cur[part].(type) {
		case map[string]any:
			next = make(map[string]any, len(node))
			for k, val := range node {
				next[k] = val
			}
		default:
			next = make(map[string]any)
		}
		cur[part] = next
		cur = next
	}
	return out
}

func (m *Memory) Bucket(_ context.Context, coll Collection, q BucketQuery) ([]Bucket, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	docs, err := m.snapshot(coll)
	if err != nil {
		return nil, err
	}
	counts := make([]int64, len(q.Boundaries)-1)
	var other int64
	for _, doc := range docs {
		v, _ := doc.Lookup(q.Field)
		f, ok := number(v)
		idx := -1
		if ok {
			for i := 0; i < len(counts); i++ {
				if f >= float64(q.Boundaries[i]) && f < float64(q.Boundaries[i+1]) {
					idx = i
					break
				}
			}
		}
		if idx < 0 {
			other++
			continue
		}
		counts[idx]++
	}
	var out []Bucket
	for i, n := range counts {
		if n > 0 {
			out = append(out, Bucket{Key: int64(q.Boundaries[i]), Count: n})
		}
	}
	if other > 0 {
		out = append(out, Bucket{Key: q.Default, Count: other})
	}
	return out, nil
}

func (m *Memory) Classify(_ context.Context, coll Collection, q RangeQuery) ([]Bucket, error) {
	docs, err := m.snapshot(coll)
	if err != nil {
		return nil, err
	}
	t := newTally()
	for _, doc := range docs {
		v, _ := doc.Lookup(q.Field)
		t.add(classify(v, q))
	}
	out := t.buckets()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key.(string) < out[j].Key.(string) })
	return out, nil
}

func classify(v any, q RangeQuery) string {
	f, ok := Coerce(v)
	if !ok {
		return q.Default
	}
	for _, r := range q.Ranges {
		if r.Contains(f) {
			return r.Label
		}
	}
	return q.Default
}

func (m *Memory) Average(_ context.Context, coll Collection, field string) (float64, error) {
	docs, err := m.snapshot(coll)
	if err != nil {
		return 0, err
	}
	var sum float64
	var n int
	for _, doc := range docs {
		v, _ := doc.Lookup(field)
		if f, ok := number(v); ok {
			sum += f
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

func (m *Memory) MeanRatio(_ context.Context, coll Collection, q RatioQuery) (float64, error) {
	docs, err := m.snapshot(coll)
	if err != nil {
		return 0, err
	}
	var sum float64
	var n int
	for _, doc := range docs {
		rawNum, _ := doc.Lookup(q.Numerator)
		rawDen, _ := doc.Lookup(q.Denominator)
		num, okNum := Coerce(rawNum)
		den, okDen := Coerce(rawDen)
		if !okNum || !okDen || num <= 0 || den <= 0 {
			continue
		}
		sum += num / den
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

func (m *Memory) DailyCounts(_ context.Context, coll Collection, q DailyQuery) ([]Bucket, error) {
	docs, err := m.snapshot(coll)
	if err != nil {
		return nil, err
	}
	loc := q.location()
	t := newTally()
	for _, doc := range docs {
		v, _ := doc.Lookup(q.Field)
		ts, ok := asTime(v)
		if !ok || ts.Before(q.Since) {
			continue
		}
		t.add(ts.In(loc).Format("2006-01-02"))
	}
	out := t.buckets()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key.(string) < out[j].Key.(string) })
	return out, nil
}

func (m *Memory) Latest(_ context.Context, coll Collection, q LatestQuery, dst any) error {
	docs, err := m.snapshot(coll)
	if err != nil {
		return err
	}
	// Newest first; documents without a timestamp sort last.
	stamp := func(d Document) (time.Time, bool) {
		v, _ := d.Lookup(q.By)
		return asTime(v)
	}
	sort.SliceStable(docs, func(i, j int) bool {
		ti, okI := stamp(docs[i])
		tj, okJ := stamp(docs[j])
		if okI != okJ {
			return okI
		}
		return ti.After(tj)
	})
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	projected := make([]Document, 0, len(docs))
	for _, doc := range docs {
		projected = append(projected, project(doc, q.Fields))
	}
	raw, err := json.Marshal(projected)
	if err != nil {
		return fmt.Errorf("encoding latest %s: %w", coll, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decoding latest %s: %w", coll, err)
	}
	return nil
}

func project(doc Document, fields []string) Document {
	if len(fields) == 0 {
		return doc
	}
	out := Document{"_id": doc["_id"]}
	for _, f := range fields {
		if v, ok := doc.Lookup(f); ok {
			out = withField(out, f, v)
		}
	}
	return out
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close(context.Context) error { return nil }
