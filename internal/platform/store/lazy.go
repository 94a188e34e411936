package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Opener connects a backend.
type Opener func(ctx context.Context) (Store, error)

var ErrClosed = errors.New("store closed")

// Lazy is the process-wide store connection. The backend is opened on first
// use and reused afterwards. A failed open is not remembered, so the next call
// tries again. Close releases the backend; later calls return ErrClosed.
type Lazy struct {
	open Opener

	mu     sync.Mutex
	store  Store
	closed bool
}

func NewLazy(open Opener) *Lazy {
	return &Lazy{open: open}
}

func (l *Lazy) get(ctx context.Context) (Store, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrClosed
	}
	if l.store != nil {
		return l.store, nil
	}
	s, err := l.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("connecting store: %w", err)
	}
	l.store = s
	return s, nil
}

func (l *Lazy) Insert(ctx context.Context, coll Collection, doc any) (string, error) {
	s, err := l.get(ctx)
	if err != nil {
		return "", err
	}
	return s.Insert(ctx, coll, doc)
}

func (l *Lazy) Count(ctx context.Context, coll Collection) (int64, error) {
	s, err := l.get(ctx)
	if err != nil {
		return 0, err
	}
	return s.Count(ctx, coll)
}

func (l *Lazy) Group(ctx context.Context, coll Collection, q GroupQuery) ([]Bucket, error) {
	s, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return s.Group(ctx, coll, q)
}

func (l *Lazy) Bucket(ctx context.Context, coll Collection, q BucketQuery) ([]Bucket, error) {
	s, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return s.Bucket(ctx, coll, q)
}

func (l *Lazy) Classify(ctx context.Context, coll Collection, q RangeQuery) ([]Bucket, error) {
	s, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return s.Classify(ctx, coll, q)
}

func (l *Lazy) Average(ctx context.Context, coll Collection, field string) (float64, error) {
	s, err := l.get(ctx)
	if err != nil {
		return 0, err
	}
	return s.Average(ctx, coll, field)
}

func (l *Lazy) MeanRatio(ctx context.Context, coll Collection, q RatioQuery) (float64, error) {
	s, err := l.get(ctx)
	if err != nil {
		return 0, err
	}
	return s.MeanRatio(ctx, coll, q)
}

func (l *Lazy) DailyCounts(ctx context.Context, coll Collection, q DailyQuery) ([]Bucket, error) {
	s, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return s.DailyCounts(ctx, coll, q)
}

func (l *Lazy) Latest(ctx context.Context, coll Collection, q LatestQuery, dst any) error {
	s, err := l.get(ctx)
	if err != nil {
		return err
	}
	return s.Latest(ctx, coll, q, dst)
}

func (l *Lazy) Ping(ctx context.Context) error {
	s, err := l.get(ctx)
	if err != nil {
		return err
	}
	return s.Ping(ctx)
}

// Close releases the backend if one was opened. It is safe to call more than
// once.
func (l *Lazy) Close(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.store == nil {
		return nil
	}
	s := l.store
	l.store = nil
	return s.Close(ctx)
}
