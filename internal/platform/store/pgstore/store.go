// Package pgstore implements the record store on PostgreSQL, keeping each
// record as a jsonb document. The tables are created by the migrations in
// /migrations.
package pgstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nutes/frontdesk/internal/platform/store"
)

type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func table(coll store.Collection) (string, error) {
	if err := coll.Validate(); err != nil {
		return "", err
	}
	return pgx.Identifier{string(coll)}.Sanitize(), nil
}

func (s *Store) Insert(ctx context.Context, coll store.Collection, doc any) (string, error) {
	t, err := table(coll)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode %s document: %w", coll, err)
	}
	sql, params, err := insertSQL(t, raw)
	if err != nil {
		return "", fmt.Errorf("insert into %s: %w", coll, err)
	}
	var id string
	err = s.pool.QueryRow(ctx, sql, params...).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert into %s: %w", coll, err)
	}
	return id, nil
}

func (s *Store) Count(ctx context.Context, coll store.Collection) (int64, error) {
	t, err := table(coll)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, t)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", coll, err)
	}
	return n, nil
}

// decodeKey turns a jsonb key rendered as text back into a Go value, with
// integral numbers as int64.
func decodeKey(raw string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		return f, err
	}
	return v, nil
}

func (s *Store) queryBuckets(ctx context.Context, coll store.Collection, sql string, params []any) ([]store.Bucket, error) {
	rows, err := s.pool.Query(ctx, sql, params...)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", coll, err)
	}
	defer rows.Close()

	var out []store.Bucket
	for rows.Next() {
		var raw string
		var n int64
		if err := rows.Scan(&raw, &n); err != nil {
			return nil, fmt.Errorf("scan %s aggregation: %w", coll, err)
		}
		key, err := decodeKey(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s group key: %w", coll, err)
		}
		out = append(out, store.Bucket{Key: key, Count: n})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s aggregation: %w", coll, err)
	}
	return out, nil
}

func (s *Store) queryScalar(ctx context.Context, coll store.Collection, sql string) (float64, error) {
	var v float64
	if err := s.pool.QueryRow(ctx, sql).Scan(&v); err != nil {
		return 0, fmt.Errorf("aggregate %s: %w", coll, err)
	}
	return v, nil
}

func (s *Store) Group(ctx context.Context, coll store.Collection, q store.GroupQuery) ([]store.Bucket, error) {
	t, err := table(coll)
	if err != nil {
		return nil, err
	}
	sql, params, err := groupSQL(t, q)
	if err != nil {
		return nil, err
	}
	return s.queryBuckets(ctx, coll, sql, params)
}

func (s *Store) Bucket(ctx context.Context, coll store.Collection, q store.BucketQuery) ([]store.Bucket, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	t, err := table(coll)
	if err != nil {
		return nil, err
	}
	sql, params, err := bucketSQL(t, q)
	if err != nil {
		return nil, err
	}
	return s.queryBuckets(ctx, coll, sql, params)
}

func (s *Store) Classify(ctx context.Context, coll store.Collection, q store.RangeQuery) ([]store.Bucket, error) {
	t, err := table(coll)
	if err != nil {
		return nil, err
	}
	sql, params, err := classifySQL(t, q)
	if err != nil {
		return nil, err
	}
	return s.queryBuckets(ctx, coll, sql, params)
}

func (s *Store) Average(ctx context.Context, coll store.Collection, field string) (float64, error) {
	t, err := table(coll)
	if err != nil {
		return 0, err
	}
	sql, err := averageSQL(t, field)
	if err != nil {
		return 0, err
	}
	return s.queryScalar(ctx, coll, sql)
}

func (s *Store) MeanRatio(ctx context.Context, coll store.Collection, q store.RatioQuery) (float64, error) {
	t, err := table(coll)
	if err != nil {
		return 0, err
	}
	sql, err := ratioSQL(t, q)
	if err != nil {
		return 0, err
	}
	return s.queryScalar(ctx, coll, sql)
}

func (s *Store) DailyCounts(ctx context.Context, coll store.Collection, q store.DailyQuery) ([]store.Bucket, error) {
	t, err := table(coll)
	if err != nil {
		return nil, err
	}
	sql, params, err := dailySQL(t, q)
	if err != nil {
		return nil, err
	}
	return s.queryBuckets(ctx, coll, sql, params)
}

func (s *Store) Latest(ctx context.Context, coll store.Collection, q store.LatestQuery, dst any) error {
	t, err := table(coll)
	if err != nil {
		return err
	}
	sql, err := latestSQL(t, q)
	if err != nil {
		return err
	}
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return fmt.Errorf("find latest %s: %w", coll, err)
	}
	defer rows.Close()

	docs := make([]json.RawMessage, 0, q.Limit)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return fmt.Errorf("scan latest %s: %w", coll, err)
		}
		docs = append(docs, json.RawMessage(raw))
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate latest %s: %w", coll, err)
	}
	encoded, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode latest %s: %w", coll, err)
	}
	if err := json.Unmarshal(encoded, dst); err != nil {
		return fmt.Errorf("decode latest %s: %w", coll, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close(context.Context) error {
	s.pool.Close()
	return nil
}
