package store

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Op is a filter operator applied before grouping.
type Op int

const (
	// OpNonEmpty keeps values that are present, not null and not "".
	OpNonEmpty Op = iota + 1
	// OpPositive keeps numeric values strictly greater than zero. Numeric
	// strings do not match.
	OpPositive
	// OpIn keeps values equal to one of Values. Comparison is type sensitive:
	// "true" and true are different members.
	OpIn
)

// Condition filters documents on one field.
type Condition struct {
	Field  string
	Op     Op
	Values []any
}

func NonEmpty(field string) Condition { return Condition{Field: field, Op: OpNonEmpty} }

func Positive(field string) Condition { return Condition{Field: field, Op: OpPositive} }

func In(field string, values ...any) Condition {
	return Condition{Field: field, Op: OpIn, Values: values}
}

// KeyMode controls how the grouped value becomes a bucket key.
type KeyMode int

const (
	// KeyRaw groups on the stored value.
	KeyRaw KeyMode = iota
	// KeyUpper upper-cases string values (ASCII only); other values are kept.
	KeyUpper
)

// SortOrder orders grouped results.
type SortOrder int

const (
	SortNone SortOrder = iota
	SortCountDesc
	SortKeyAsc
)

// GroupQuery counts documents per distinct value of Field. When Unwind is set
// and Field holds an array, every member is counted on its own; missing, null
// and empty arrays contribute nothing. Conditions are evaluated after the
// unwind.
type GroupQuery struct {
	Field  string
	Where  []Condition
	Key    KeyMode
	Unwind bool
	Sort   SortOrder
	Limit  int
}

// TopDistinct is the "top n values of field" query shared by every ranking
// metric: empty values are dropped, the rest counted and the n most frequent
// returned. Ties keep no particular order.
func TopDistinct(field string, n int) GroupQuery {
	return GroupQuery{
		Field: field,
		Where: []Condition{NonEmpty(field)},
		Sort:  SortCountDesc,
		Limit: n,
	}
}

// BucketQuery partitions Field by ascending Boundaries into half-open ranges
// [b[i], b[i+1]). The bucket key is the lower bound. Non-numeric, missing or
// out-of-range values fall into Default. Empty buckets are omitted.
type BucketQuery struct {
	Field      string
	Boundaries []int
	Default    string
}

// Validate checks that boundaries are strictly ascending.
func (q BucketQuery) Validate() error {
	if len(q.Boundaries) < 2 {
		return fmt.Errorf("bucket %s: need at least two boundaries", q.Field)
	}
	for i := 1; i < len(q.Boundaries); i++ {
		if q.Boundaries[i] <= q.Boundaries[i-1] {
			return fmt.Errorf("bucket %s: boundaries must ascend", q.Field)
		}
	}
	return nil
}

// Range is a labelled interval (Above, UpTo]. A nil edge is unbounded.
type Range struct {
	Label string
	Above *float64
	UpTo  *float64
}

// Contains reports whether v lies inside the range.
func (r Range) Contains(v float64) bool {
	if r.Above != nil && v <= *r.Above {
		return false
	}
	if r.UpTo != nil && v > *r.UpTo {
		return false
	}
	return true
}

// RangeQuery coerces Field to a number and labels it with the first matching
// range. Values that cannot be coerced, or that match no range, get Default.
// Results are ordered by label.
type RangeQuery struct {
	Field   string
	Ranges  []Range
	Default string
}

// RatioQuery averages Numerator/Denominator over documents whose coerced
// values are both strictly positive.
type RatioQuery struct {
	Numerator   string
	Denominator string
}

// DailyQuery counts documents with Field >= Since per calendar day (YYYY-MM-DD)
// in Location, ascending. Days without documents are absent.
type DailyQuery struct {
	Field    string
	Since    time.Time
	Location *time.Location
}

func (q DailyQuery) location() *time.Location {
	if q.Location == nil {
		return time.UTC
	}
	return q.Location
}

// LatestQuery selects the Limit documents with the greatest timestamp in By,
// projected to Fields. The document id is always included as "_id".
type LatestQuery struct {
	By     string
	Limit  int
	Fields []string
}

// NumericPattern is the accepted shape of numeric strings. It is shared by the
// SQL backend so every driver excludes the same inputs.
const NumericPattern = `^[+-]?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][+-]?[0-9]+)?$`

var numericRe = regexp.MustCompile(NumericPattern)

// Coerce converts a stored value to a number the way the aggregation
// pipelines do: numbers pass, booleans become 1 or 0, decimal strings are
// parsed. Anything else is excluded rather than reported.
func Coerce(v any) (float64, bool) {
	switch t := v.(type) {
	case string:
		if !numericRe.MatchString(t) {
			return 0, false
		}
		f, err := strconv.ParseFloat(t, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	default:
		return number(v)
	}
}

// AsInt returns the integer value of a numeric bucket key.
func AsInt(v any) (int, bool) {
	f, ok := number(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// upperASCII mirrors $toUpper, which only maps ASCII letters.
func upperASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' {
			return r - ('a' - 'A')
		}
		return r
	}, s)
}
