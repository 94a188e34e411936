package store

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeCounter struct {
	*Memory
	closes int
}

func (c *closeCounter) Close(context.Context) error {
	c.closes++
	return nil
}

func TestLazy_OpensOnceAndReuses(t *testing.T) {
	opens := 0
	backend := &closeCounter{Memory: NewMemory()}
	l := NewLazy(func(context.Context) (Store, error) {
		opens++
		return backend, nil
	})
	ctx := context.Background()

	assert.Equal(t, 0, opens, "nothing opens before first use")

	_, err := l.Insert(ctx, Anamneses, Document{"patientId": "p1"})
	require.NoError(t, err)
	n, err := l.Count(ctx, Anamneses)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, opens)
}

func TestLazy_FailedOpenIsRetried(t *testing.T) {
	attempts := 0
	l := NewLazy(func(context.Context) (Store, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("connection refused")
		}
		return NewMemory(), nil
	})
	ctx := context.Background()

	_, err := l.Count(ctx, Anamneses)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	_, err = l.Count(ctx, Anamneses)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestLazy_CloseReleasesOnce(t *testing.T) {
	backend := &closeCounter{Memory: NewMemory()}
	l := NewLazy(func(context.Context) (Store, error) { return backend, nil })
	ctx := context.Background()

	require.NoError(t, l.Ping(ctx))
	require.NoError(t, l.Close(ctx))
	require.NoError(t, l.Close(ctx))
	assert.Equal(t, 1, backend.closes)

	_, err := l.Count(ctx, Anamneses)
	require.ErrorIs(t, err, ErrClosed)
}

func TestLazy_CloseWithoutOpen(t *testing.T) {
	l := NewLazy(func(context.Context) (Store, error) {
		t.Fatal("open must not be called by Close")
		return nil, nil
	})
	require.NoError(t, l.Close(context.Background()))
}

func TestLazy_ConcurrentFirstUse(t *testing.T) {
	var mu sync.Mutex
	opens := 0
	l := NewLazy(func(context.Context) (Store, error) {
		mu.Lock()
		opens++
		mu.Unlock()
		return NewMemory(), nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.Count(context.Background(), CohortRecords)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, opens)
}

type failingPinger struct{ err error }

func (f failingPinger) Ping(context.Context) error { return f.err }

func TestHealthHandler(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/health/store", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, HealthHandler("memory", NewMemory())(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)

	req = httptest.NewRequest(http.MethodGet, "/health/store", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	require.NoError(t, HealthHandler("mongo", failingPinger{err: errors.New("no reachable servers")})(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "no reachable servers")
}
