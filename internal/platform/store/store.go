// Package store is the Record Store: the document collections populated by the
// intake flows and read by the analytics dashboards.
//
// Aggregations are described with small typed queries (GroupQuery, BucketQuery,
// RangeQuery, RatioQuery, DailyQuery, LatestQuery) which the mongo, postgres
// and in-memory backends all answer with the same semantics.
package store

import (
	"context"
	"errors"
	"fmt"
)

// Collection names a logical record collection.
type Collection string

const (
	// Anamneses holds remote-intake submissions.
	Anamneses Collection = "anamneses"
	// CohortRecords holds denormalized registration snapshots.
	CohortRecords Collection = "patientanalytics"
)

// Collections lists every collection known to the store.
var Collections = []Collection{Anamneses, CohortRecords}

var ErrUnknownCollection = errors.New("unknown collection")

// Validate returns ErrUnknownCollection for names outside Collections.
func (c Collection) Validate() error {
	for _, known := range Collections {
		if c == known {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownCollection, string(c))
}

// Bucket is one row of a grouped result. Key is whatever raw value was grouped
// on (string, number, bool or nil) or a synthetic bucket label.
type Bucket struct {
	Key   any    `json:"_id" bson:"_id"`
	Count int64  `json:"count" bson:"count"`
	Label string `json:"label,omitempty" bson:"-"`
}

// Store is the contract the dashboards and intake flows consume. Every call is
// independent: no transaction spans several calls.
type Store interface {
	// Insert stores doc and returns the identifier assigned to it.
	Insert(ctx context.Context, coll Collection, doc any) (string, error)
	// Count returns the number of documents in coll.
	Count(ctx context.Context, coll Collection) (int64, error)
	// Group counts documents per distinct key.
	Group(ctx context.Context, coll Collection, q GroupQuery) ([]Bucket, error)
	// Bucket partitions a numeric field by fixed boundaries.
	Bucket(ctx context.Context, coll Collection, q BucketQuery) ([]Bucket, error)
	// Classify coerces a field to a number and counts it per labelled range.
	Classify(ctx context.Context, coll Collection, q RangeQuery) ([]Bucket, error)
	// Average returns the mean of the numeric values of field, or 0.
	Average(ctx context.Context, coll Collection, field string) (float64, error)
	// MeanRatio returns the mean of per-document ratios, or 0.
	MeanRatio(ctx context.Context, coll Collection, q RatioQuery) (float64, error)
	// DailyCounts counts documents per calendar day since q.Since.
	DailyCounts(ctx context.Context, coll Collection, q DailyQuery) ([]Bucket, error)
	// Latest decodes the most recent documents into dst, a pointer to a slice.
	Latest(ctx context.Context, coll Collection, q LatestQuery, dst any) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// OrEmpty returns b, or an empty slice when b is nil, so that results always
// encode as a JSON array.
func OrEmpty(b []Bucket) []Bucket {
	if b == nil {
		return []Bucket{}
	}
	return b
}
