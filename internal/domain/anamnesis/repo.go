package anamnesis

import (
	"context"

	"github.com/nutes/frontdesk/internal/platform/store"
)

// RecordReader is the part of the record store the dashboard reads from.
type RecordReader interface {
	Count(ctx context.Context, coll store.Collection) (int64, error)
	Group(ctx context.Context, coll store.Collection, q store.GroupQuery) ([]store.Bucket, error)
	Average(ctx context.Context, coll store.Collection, field string) (float64, error)
	DailyCounts(ctx context.Context, coll store.Collection, q store.DailyQuery) ([]store.Bucket, error)
	Latest(ctx context.Context, coll store.Collection, q store.LatestQuery, dst any) error
}
