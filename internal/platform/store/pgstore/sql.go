package pgstore

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nutes/frontdesk/internal/platform/store"
)

var fieldRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// jsonPath renders a dotted field as a jsonb path expression over doc. Field
// names come from code, but are still checked so nothing else reaches the SQL.
func jsonPath(field string) (string, error) {
	if !fieldRe.MatchString(field) {
		return "", fmt.Errorf("invalid field path %q", field)
	}
	return fmt.Sprintf("(doc #> '{%s}')", strings.ReplaceAll(field, ".", ",")), nil
}

func textPath(field string) (string, error) {
	if !fieldRe.MatchString(field) {
		return "", fmt.Errorf("invalid field path %q", field)
	}
	return fmt.Sprintf("(doc #>> '{%s}')", strings.ReplaceAll(field, ".", ",")), nil
}

// args collects positional parameters while a statement is built.
type args []any

func (a *args) add(v any) string {
	*a = append(*a, v)
	return "$" + strconv.Itoa(len(*a))
}

const upperASCII = `translate(%[1]s #>> '{}', 'abcdefghijklmnopqrstuvwxyz', 'ABCDEFGHIJKLMNOPQRSTUVWXYZ')`

// numeric converts a jsonb value to float8 following store.Coerce; anything
// else is NULL. Strings beyond the float8 range become NULL and strings
// below it become 0, so a stray "1e999" never aborts the statement. The
// nested CASEs keep the casts from being evaluated ahead of their guards.
func numeric(expr string) string {
	return fmt.Sprintf(`(CASE jsonb_typeof(%[1]s)
		WHEN 'number' THEN (%[1]s)::float8
		WHEN 'boolean' THEN CASE WHEN (%[1]s)::boolean THEN 1 ELSE 0 END
		WHEN 'string' THEN CASE WHEN %[3]s ~ '%[2]s' THEN CASE
			WHEN %[3]s ~ '^[+-]?[0.]*([eE].*)?$' THEN 0
			WHEN %[3]s ~ '[eE]-0*[0-9]{4,}$' THEN 0
			WHEN %[3]s ~ '[eE]\+?0*[0-9]{4,}$' THEN NULL
			WHEN abs(%[3]s::numeric) > %[4]s THEN NULL
			WHEN abs(%[3]s::numeric) < %[5]s THEN 0
			ELSE %[3]s::float8
		END END
	END)`, expr, strings.ReplaceAll(store.NumericPattern, `'`, `''`), "("+expr+" #>> '{}')", float8Max, float8Min)
}

// Bounds of the finite, non-zero float8 values as numeric literals.
const (
	float8Max = "1.7976931348623157e308"
	float8Min = "4.9406564584124654e-324"
)

func conditionSQL(expr string, c store.Condition, a *args) (string, error) {
	switch c.Op {
	case store.OpNonEmpty:
		return fmt.Sprintf(`(COALESCE(jsonb_typeof(%[1]s), 'null') <> 'null' AND %[1]s <> '""'::jsonb)`, expr), nil
	case store.OpPositive:
		return fmt.Sprintf(`(CASE WHEN jsonb_typeof(%[1]s) = 'number' THEN (%[1]s)::numeric > 0 ELSE false END)`, expr), nil
	case store.OpIn:
		members := make([]string, 0, len(c.Values))
		for _, v := range c.Values {
			raw, err := json.Marshal(v)
			if err != nil {
				return "", fmt.Errorf("encode condition value: %w", err)
			}
			members = append(members, string(raw))
		}
		return fmt.Sprintf(`(%s = ANY(%s::text[]::jsonb[]))`, expr, a.add(members)), nil
	}
	return "", fmt.Errorf("unsupported condition op %d", c.Op)
}

func groupSQL(table string, q store.GroupQuery) (string, []any, error) {
	path, err := jsonPath(q.Field)
	if err != nil {
		return "", nil, err
	}
	var a args
	from := table
	value := path
	var where []string
	if q.Unwind {
		from = fmt.Sprintf(`%s CROSS JOIN LATERAL jsonb_array_elements(
			CASE WHEN jsonb_typeof(%[2]s) = 'array' THEN %[2]s ELSE jsonb_build_array(%[2]s) END) AS u(elem)`, table, path)
		value = "u.elem"
		where = append(where, fmt.Sprintf(`COALESCE(jsonb_typeof(%s), 'null') <> 'null'`, path))
	}
	for _, c := range q.Where {
		expr := value
		if c.Field != q.Field {
			if expr, err = jsonPath(c.Field); err != nil {
				return "", nil, err
			}
		}
		clause, err := conditionSQL(expr, c, &a)
		if err != nil {
			return "", nil, err
		}
		where = append(where, clause)
	}

	key := fmt.Sprintf(`COALESCE(%s, 'null'::jsonb)`, value)
	if q.Key == store.KeyUpper {
		key = fmt.Sprintf(`CASE WHEN jsonb_typeof(%[1]s) = 'string' THEN to_jsonb(`+upperASCII+`) ELSE COALESCE(%[1]s, 'null'::jsonb) END`, value)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `SELECT g.key::text, count(*) FROM (SELECT %s AS key FROM %s`, key, from)
	if len(where) > 0 {
		fmt.Fprintf(&b, ` WHERE %s`, strings.Join(where, " AND "))
	}
	b.WriteString(`) g GROUP BY g.key`)
	switch q.Sort {
	case store.SortCountDesc:
		b.WriteString(` ORDER BY count(*) DESC`)
	case store.SortKeyAsc:
		b.WriteString(` ORDER BY g.key`)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, ` LIMIT %d`, q.Limit)
	}
	return b.String(), a, nil
}

func bucketSQL(table string, q store.BucketQuery) (string, []any, error) {
	path, err := jsonPath(q.Field)
	if err != nil {
		return "", nil, err
	}
	var a args
	def := a.add(q.Default)
	var cases strings.Builder
	for i := 0; i+1 < len(q.Boundaries); i++ {
		lo, hi := q.Boundaries[i], q.Boundaries[i+1]
		fmt.Fprintf(&cases, ` WHEN (%[1]s)::numeric >= %[2]d AND (%[1]s)::numeric < %[3]d THEN %[4]d`, path, lo, hi, i)
	}
	other := len(q.Boundaries) - 1
	keys := make([]string, 0, len(q.Boundaries))
	for i := 0; i+1 < len(q.Boundaries); i++ {
		keys = append(keys, fmt.Sprintf(`WHEN %d THEN to_jsonb(%d)`, i, q.Boundaries[i]))
	}
	sql := fmt.Sprintf(`SELECT (CASE b.ord %[1]s ELSE to_jsonb(%[2]s::text) END)::text, b.n FROM (
		SELECT ord, count(*) AS n FROM (
			SELECT CASE WHEN jsonb_typeof(%[3]s) IS DISTINCT FROM 'number' THEN %[4]d
				ELSE CASE%[5]s ELSE %[4]d END END AS ord
			FROM %[6]s
		) r GROUP BY ord
	) b ORDER BY b.ord`, strings.Join(keys, " "), def, path, other, cases.String(), table)
	return sql, a, nil
}

func classifySQL(table string, q store.RangeQuery) (string, []any, error) {
	path, err := jsonPath(q.Field)
	if err != nil {
		return "", nil, err
	}
	var a args
	def := a.add(q.Default)
	var cases strings.Builder
	fmt.Fprintf(&cases, `WHEN v IS NULL THEN %s::text`, def)
	for _, r := range q.Ranges {
		var tests []string
		if r.Above != nil {
			tests = append(tests, "v > "+a.add(*r.Above)+"::float8")
		}
		if r.UpTo != nil {
			tests = append(tests, "v <= "+a.add(*r.UpTo)+"::float8")
		}
		if len(tests) == 0 {
			tests = append(tests, "true")
		}
		fmt.Fprintf(&cases, ` WHEN %s THEN %s::text`, strings.Join(tests, " AND "), a.add(r.Label))
	}
	sql := fmt.Sprintf(`SELECT to_jsonb(label)::text, count(*) FROM (
		SELECT CASE %s ELSE %s::text END AS label FROM (SELECT %s AS v FROM %s) s
	) c GROUP BY label ORDER BY label COLLATE "C"`, cases.String(), def, numeric(path), table)
	return sql, a, nil
}

func averageSQL(table, field string) (string, error) {
	path, err := jsonPath(field)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`SELECT COALESCE(avg(CASE WHEN jsonb_typeof(%[1]s) = 'number' THEN (%[1]s)::float8 END), 0) FROM %[2]s`, path, table), nil
}

func ratioSQL(table string, q store.RatioQuery) (string, error) {
	num, err := jsonPath(q.Numerator)
	if err != nil {
		return "", err
	}
	den, err := jsonPath(q.Denominator)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`SELECT COALESCE(avg(n / d), 0) FROM (SELECT %s AS n, %s AS d FROM %s) s WHERE n > 0 AND d > 0`,
		numeric(num), numeric(den), table), nil
}

func dailySQL(table string, q store.DailyQuery) (string, []any, error) {
	path, err := textPath(q.Field)
	if err != nil {
		return "", nil, err
	}
	tz := "UTC"
	if q.Location != nil {
		tz = q.Location.String()
	}
	var a args
	since := a.add(q.Since)
	zone := a.add(tz)
	sql := fmt.Sprintf(`SELECT to_jsonb(day)::text, count(*) FROM (
		SELECT to_char((%[1]s)::timestamptz AT TIME ZONE %[2]s, 'YYYY-MM-DD') AS day
		FROM %[3]s WHERE (%[1]s)::timestamptz >= %[4]s
	) d GROUP BY day ORDER BY day`, path, zone, table, since)
	return sql, a, nil
}

func latestSQL(table string, q store.LatestQuery) (string, error) {
	by, err := textPath(q.By)
	if err != nil {
		return "", err
	}
	doc := "doc"
	if len(q.Fields) > 0 {
		pairs := make([]string, 0, len(q.Fields))
		for _, f := range q.Fields {
			p, err := jsonPath(f)
			if err != nil {
				return "", err
			}
			pairs = append(pairs, fmt.Sprintf(`'%s', %s`, f, p))
		}
		doc = fmt.Sprintf(`jsonb_strip_nulls(jsonb_build_object(%s))`, strings.Join(pairs, ", "))
	}
	limit := ""
	if q.Limit > 0 {
		limit = fmt.Sprintf(" LIMIT %d", q.Limit)
	}
	return fmt.Sprintf(`SELECT (%s || jsonb_build_object('_id', id::text))::text FROM %s
		ORDER BY (%s)::timestamptz DESC NULLS LAST%s`, doc, table, by, limit), nil
}

// insertSQL stores an encoded document. A caller-supplied "_id" becomes the
// row id (it must be a UUID); otherwise the table default assigns one.
func insertSQL(table string, raw []byte) (string, []any, error) {
	var head struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return "", nil, fmt.Errorf("read document id: %w", err)
	}
	if head.ID == "" {
		return fmt.Sprintf(`INSERT INTO %s (doc) VALUES ($1::jsonb) RETURNING id::text`, table),
			[]any{string(raw)}, nil
	}
	return fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES ($1::uuid, $2::jsonb) RETURNING id::text`, table),
		[]any{head.ID, string(raw)}, nil
}
