package mongostore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/nutes/frontdesk/internal/platform/store"
)

// openTestStore connects to FRONTDESK_TEST_MONGODB_URI using a throwaway
// database that is dropped when the test ends.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("FRONTDESK_TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("FRONTDESK_TEST_MONGODB_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := Open(ctx, uri, fmt.Sprintf("frontdesk_test_%d", time.Now().UnixNano()), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.db.Drop(context.Background())
		_ = s.Close(context.Background())
	})
	return s
}

func TestStore_Integration(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	docs := []bson.M{
		{"complaint": "dor", "painLevel": 3, "createdAt": now, "flag": "sim", "specialties": bson.A{"Ortopedia", ""}},
		{"complaint": "dor", "painLevel": 5, "createdAt": now.Add(-time.Hour), "flag": true, "specialties": "Neurologia"},
		{"complaint": "", "painLevel": "x", "createdAt": now.AddDate(0, 0, -10), "flag": "SIM"},
		{"complaint": "febre", "income": "3000", "residents": 3},
	}
	for _, d := range docs {
		_, err := s.Insert(ctx, store.Anamneses, d)
		require.NoError(t, err)
	}

	n, err := s.Count(ctx, store.Anamneses)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	top, err := s.Group(ctx, store.Anamneses, store.TopDistinct("complaint", 5))
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "dor", top[0].Key)
	assert.Equal(t, int64(2), top[0].Count)

	upper, err := s.Group(ctx, store.Anamneses, store.GroupQuery{Field: "flag", Key: store.KeyUpper, Sort: store.SortCountDesc})
	require.NoError(t, err)
	assert.Equal(t, "SIM", upper[0].Key)
	assert.Equal(t, int64(2), upper[0].Count)

	unwound := store.TopDistinct("specialties", 5)
	unwound.Unwind = true
	specialties, err := s.Group(ctx, store.Anamneses, unwound)
	require.NoError(t, err)
	assert.Len(t, specialties, 2)

	avg, err := s.Average(ctx, store.Anamneses, "painLevel")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, avg, 1e-9)

	ratio, err := s.MeanRatio(ctx, store.Anamneses, store.RatioQuery{Numerator: "income", Denominator: "residents"})
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, ratio, 1e-9)

	daily, err := s.DailyCounts(ctx, store.Anamneses, store.DailyQuery{Field: "createdAt", Since: now.AddDate(0, 0, -7)})
	require.NoError(t, err)
	var total int64
	for _, b := range daily {
		total += b.Count
	}
	assert.Equal(t, int64(2), total)

	var latest []struct {
		ID        string `bson:"_id"`
		Complaint string `bson:"complaint"`
	}
	require.NoError(t, s.Latest(ctx, store.Anamneses, store.LatestQuery{By: "createdAt", Limit: 1, Fields: []string{"complaint"}}, &latest))
	require.Len(t, latest, 1)
	assert.NotEmpty(t, latest[0].ID)
}
