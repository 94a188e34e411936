package cohort

import (
	"context"

	"github.com/nutes/frontdesk/internal/platform/store"
)

// RecordReader is the part of the record store the cohort dashboard reads.
type RecordReader interface {
	Count(ctx context.Context, coll store.Collection) (int64, error)
	Group(ctx context.Context, coll store.Collection, q store.GroupQuery) ([]store.Bucket, error)
	Bucket(ctx context.Context, coll store.Collection, q store.BucketQuery) ([]store.Bucket, error)
	Classify(ctx context.Context, coll store.Collection, q store.RangeQuery) ([]store.Bucket, error)
	MeanRatio(ctx context.Context, coll store.Collection, q store.RatioQuery) (float64, error)
}
