package mongostore

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/nutes/frontdesk/internal/platform/store"
)

func fieldRef(path string) string { return "$" + path }

// toDouble coerces an expression the way numeric free-text fields are read:
// anything that does not convert becomes null and is excluded downstream.
func toDouble(expr interface{}) bson.D {
	return bson.D{{Key: "$convert", Value: bson.D{
		{Key: "input", Value: expr},
		{Key: "to", Value: "double"},
		{Key: "onError", Value: nil},
		{Key: "onNull", Value: nil},
	}}}
}

func condition(c store.Condition) bson.E {
	switch c.Op {
	case store.OpPositive:
		return bson.E{Key: c.Field, Value: bson.D{{Key: "$gt", Value: 0}}}
	case store.OpIn:
		return bson.E{Key: c.Field, Value: bson.D{{Key: "$in", Value: bson.A(c.Values)}}}
	default:
		// $nin with null also rejects absent fields.
		return bson.E{Key: c.Field, Value: bson.D{{Key: "$nin", Value: bson.A{"", nil}}}}
	}
}

func matchStage(conds []store.Condition) bson.D {
	if len(conds) == 1 {
		return bson.D{{Key: "$match", Value: bson.D{condition(conds[0])}}}
	}
	clauses := make(bson.A, 0, len(conds))
	for _, c := range conds {
		clauses = append(clauses, bson.D{condition(c)})
	}
	return bson.D{{Key: "$match", Value: bson.D{{Key: "$and", Value: clauses}}}}
}

func groupKey(q store.GroupQuery) interface{} {
	ref := fieldRef(q.Field)
	if q.Key != store.KeyUpper {
		return ref
	}
	return bson.D{{Key: "$cond", Value: bson.A{
		bson.D{{Key: "$eq", Value: bson.A{bson.D{{Key: "$type", Value: ref}}, "string"}}},
		bson.D{{Key: "$toUpper", Value: ref}},
		ref,
	}}}
}

func groupPipeline(q store.GroupQuery) mongo.Pipeline {
	var p mongo.Pipeline
	if q.Unwind {
		p = append(p, bson.D{{Key: "$unwind", Value: fieldRef(q.Field)}})
	}
	if len(q.Where) > 0 {
		p = append(p, matchStage(q.Where))
	}
	p = append(p, bson.D{{Key: "$group", Value: bson.D{
		{Key: "_id", Value: groupKey(q)},
		{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
	}}})
	switch q.Sort {
	case store.SortCountDesc:
		p = append(p, bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}})
	case store.SortKeyAsc:
		p = append(p, bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}})
	}
	if q.Limit > 0 {
		p = append(p, bson.D{{Key: "$limit", Value: q.Limit}})
	}
	return p
}

func bucketPipeline(q store.BucketQuery) mongo.Pipeline {
	boundaries := make(bson.A, len(q.Boundaries))
	for i, b := range q.Boundaries {
		boundaries[i] = b
	}
	return mongo.Pipeline{
		{{Key: "$bucket", Value: bson.D{
			{Key: "groupBy", Value: fieldRef(q.Field)},
			{Key: "boundaries", Value: boundaries},
			{Key: "default", Value: q.Default},
			{Key: "output", Value: bson.D{{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}}}},
		}}},
	}
}

func rangeCase(r store.Range) bson.D {
	var tests bson.A
	if r.Above != nil {
		tests = append(tests, bson.D{{Key: "$gt", Value: bson.A{"$value", *r.Above}}})
	}
	if r.UpTo != nil {
		tests = append(tests, bson.D{{Key: "$lte", Value: bson.A{"$value", *r.UpTo}}})
	}
	var test interface{} = true
	switch len(tests) {
	case 1:
		test = tests[0]
	case 2:
		test = bson.D{{Key: "$and", Value: tests}}
	}
	return bson.D{{Key: "case", Value: test}, {Key: "then", Value: r.Label}}
}

func classifyPipeline(q store.RangeQuery) mongo.Pipeline {
	// null must be caught first: it compares lower than every number.
	branches := bson.A{bson.D{
		{Key: "case", Value: bson.D{{Key: "$eq", Value: bson.A{"$value", nil}}}},
		{Key: "then", Value: q.Default},
	}}
	for _, r := range q.Ranges {
		branches = append(branches, rangeCase(r))
	}
	return mongo.Pipeline{
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "value", Value: toDouble(fieldRef(q.Field))},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$switch", Value: bson.D{
				{Key: "branches", Value: branches},
				{Key: "default", Value: q.Default},
			}}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}

func averagePipeline(field string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "value", Value: bson.D{{Key: "$avg", Value: fieldRef(field)}}},
		}}},
	}
}

func ratioPipeline(q store.RatioQuery) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "num", Value: toDouble(fieldRef(q.Numerator))},
			{Key: "den", Value: toDouble(fieldRef(q.Denominator))},
		}}},
		{{Key: "$match", Value: bson.D{
			{Key: "num", Value: bson.D{{Key: "$gt", Value: 0}}},
			{Key: "den", Value: bson.D{{Key: "$gt", Value: 0}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "value", Value: bson.D{{Key: "$avg", Value: bson.D{{Key: "$divide", Value: bson.A{"$num", "$den"}}}}}},
		}}},
	}
}

func dailyPipeline(q store.DailyQuery) mongo.Pipeline {
	tz := "UTC"
	if q.Location != nil {
		tz = q.Location.String()
	}
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: q.Field, Value: bson.D{{Key: "$gte", Value: q.Since}}}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$dateToString", Value: bson.D{
				{Key: "format", Value: "%Y-%m-%d"},
				{Key: "date", Value: fieldRef(q.Field)},
				{Key: "timezone", Value: tz},
			}}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}

func latestProjection(fields []string) bson.D {
	proj := make(bson.D, 0, len(fields))
	for _, f := range fields {
		proj = append(proj, bson.E{Key: f, Value: 1})
	}
	return proj
}
