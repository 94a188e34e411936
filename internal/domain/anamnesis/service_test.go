package anamnesis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutes/frontdesk/internal/platform/store"
)

var fixedNow = time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

func newTestService(r RecordReader) *Service {
	svc := NewService(r, time.UTC)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func pain(v int) *int { return &v }

func insert(t *testing.T, m *store.Memory, records ...Record) {
	t.Helper()
	for _, r := range records {
		_, err := m.Insert(context.Background(), store.Anamneses, r)
		require.NoError(t, err)
	}
}

func TestDashboard_EmptyCollection(t *testing.T) {
	d, err := newTestService(store.NewMemory()).Dashboard(context.Background())
	require.NoError(t, err)

	assert.Zero(t, d.TotalCount)
	assert.Zero(t, d.AveragePainLevel)
	assert.Zero(t, d.NewToday)
	assert.NotNil(t, d.PainDistribution)
	assert.Empty(t, d.PainDistribution)
	assert.Empty(t, d.DailyVolume)
	assert.Empty(t, d.RecentEntries)
	assert.Empty(t, d.TopComplaints)
}

func TestDashboard_Aggregates(t *testing.T) {
	m := store.NewMemory()
	insert(t, m,
		Record{PatientID: "1", PatientName: "Ana", Complaint: "a", History: "h1", Goals: "g", PainLevel: pain(3), CreatedAt: fixedNow.Add(-time.Hour)},
		Record{PatientID: "2", PatientName: "Bia", Complaint: "a", History: "", Medications: "m", PainLevel: pain(4), CreatedAt: fixedNow.Add(-2 * time.Hour)},
		Record{PatientID: "3", PatientName: "Caio", Complaint: "b", PainLevel: pain(4), CreatedAt: fixedNow.AddDate(0, 0, -3)},
		Record{PatientID: "4", PatientName: "Davi", Complaint: "", PainLevel: pain(10), CreatedAt: fixedNow.AddDate(0, 0, -8)},
	)

	d, err := newTestService(m).Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(4), d.TotalCount)
	assert.Equal(t, 5.3, d.AveragePainLevel)
	assert.Equal(t, int64(2), d.NewToday)

	assert.Equal(t, []store.Bucket{{Key: "a", Count: 2}, {Key: "b", Count: 1}}, d.TopComplaints)
	assert.Equal(t, []store.Bucket{{Key: "h1", Count: 1}}, d.TopHistory)
	assert.Equal(t, []store.Bucket{{Key: "m", Count: 1}}, d.TopMedications)

	assert.Equal(t, []store.Bucket{
		{Key: int64(3), Count: 1},
		{Key: int64(4), Count: 2},
		{Key: int64(10), Count: 1},
	}, d.PainDistribution)

	assert.Equal(t, []store.Bucket{
		{Key: "2025-03-07", Count: 1},
		{Key: "2025-03-10", Count: 2},
	}, d.DailyVolume)

	require.Len(t, d.RecentEntries, 4)
	assert.Equal(t, "Ana", d.RecentEntries[0].PatientName)
	assert.Equal(t, "Davi", d.RecentEntries[3].PatientName)
	assert.Equal(t, 3, *d.RecentEntries[0].PainLevel)
}

func TestDashboard_RecentEntriesLimitedToFive(t *testing.T) {
	m := store.NewMemory()
	for i := 0; i < 8; i++ {
		insert(t, m, Record{PatientID: "p", PatientName: string(rune('A' + i)), CreatedAt: fixedNow.Add(-time.Duration(i) * time.Minute)})
	}

	d, err := newTestService(m).Dashboard(context.Background())
	require.NoError(t, err)
	require.Len(t, d.RecentEntries, 5)
	assert.Equal(t, "A", d.RecentEntries[0].PatientName)
	assert.Equal(t, "E", d.RecentEntries[4].PatientName)
}

func TestDashboard_NewTodayIgnoresEarlierDays(t *testing.T) {
	m := store.NewMemory()
	insert(t, m, Record{PatientID: "1", CreatedAt: fixedNow.AddDate(0, 0, -1)})

	d, err := newTestService(m).Dashboard(context.Background())
	require.NoError(t, err)
	assert.Zero(t, d.NewToday)
	assert.Len(t, d.DailyVolume, 1)
}

func TestDashboard_DailyVolumeWindow(t *testing.T) {
	m := store.NewMemory()
	insert(t, m,
		Record{PatientID: "1", CreatedAt: fixedNow.AddDate(0, 0, -7).Add(-time.Second)},
		Record{PatientID: "2", CreatedAt: fixedNow.AddDate(0, 0, -7)},
		Record{PatientID: "3", CreatedAt: fixedNow.AddDate(0, 0, -2)},
	)

	d, err := newTestService(m).Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []store.Bucket{
		{Key: "2025-03-03", Count: 1},
		{Key: "2025-03-08", Count: 1},
	}, d.DailyVolume)
}

// failingReader fails Group calls for one field and counts every call.
type failingReader struct {
	*store.Memory
	failField string
	calls     atomic.Int32
}

func (f *failingReader) Group(ctx context.Context, coll store.Collection, q store.GroupQuery) ([]store.Bucket, error) {
	f.calls.Add(1)
	if q.Field == f.failField {
		return nil, errors.New("connection reset")
	}
	return f.Memory.Group(ctx, coll, q)
}

func (f *failingReader) Count(ctx context.Context, coll store.Collection) (int64, error) {
	f.calls.Add(1)
	return f.Memory.Count(ctx, coll)
}

func TestDashboard_AnyFailureFailsWholePage(t *testing.T) {
	r := &failingReader{Memory: store.NewMemory(), failField: FieldGoals}

	d, err := newTestService(r).Dashboard(context.Background())
	require.Error(t, err)
	assert.Nil(t, d)
	assert.Contains(t, err.Error(), "top goals")
	assert.Contains(t, err.Error(), "connection reset")
	// every sibling still ran: count + pain distribution + four tops
	assert.Equal(t, int32(6), r.calls.Load())
}
