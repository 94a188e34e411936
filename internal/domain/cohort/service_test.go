package cohort

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutes/frontdesk/internal/platform/store"
)

var fixedNow = time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

func newTestService(r RecordReader) *Service {
	svc := NewService(r, 0)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func age(v int) *int { return &v }

func seed(t *testing.T, records ...Record) *store.Memory {
	t.Helper()
	m := store.NewMemory()
	for _, r := range records {
		_, err := m.Insert(context.Background(), store.CohortRecords, r)
		require.NoError(t, err)
	}
	return m
}

func TestDashboard_EmptyCollection(t *testing.T) {
	d, err := newTestService(store.NewMemory()).Dashboard(context.Background())
	require.NoError(t, err)

	assert.Zero(t, d.TotalCount)
	assert.Zero(t, d.Socioeconomic.PerCapitaIncome)
	assert.NotNil(t, d.Demographics.AgeBuckets)
	assert.Empty(t, d.Demographics.AgeBuckets)
	assert.NotNil(t, d.Socioeconomic.UfpeAffiliationNormalized)
	assert.Empty(t, d.Triage.TopSpecialties)
	assert.Equal(t, fixedNow, d.GeneratedAt)
}

func TestDashboard_PerCapitaIncomeIsMeanOfRatios(t *testing.T) {
	m := seed(t,
		Record{Socioeconomic: Socioeconomic{FamilyIncome: "1000", ResidentsCount: 2}},
		Record{Socioeconomic: Socioeconomic{FamilyIncome: "3000", ResidentsCount: 3}},
		Record{Socioeconomic: Socioeconomic{FamilyIncome: "abc", ResidentsCount: 2}},
		Record{Socioeconomic: Socioeconomic{FamilyIncome: "900", ResidentsCount: 0}},
		Record{Socioeconomic: Socioeconomic{FamilyIncome: "", ResidentsCount: 4}},
	)

	d, err := newTestService(m).Dashboard(context.Background())
	require.NoError(t, err)
	// (500 + 1000) / 2; a ratio of sums would give 800.
	assert.Equal(t, 750.0, d.Socioeconomic.PerCapitaIncome)
}

func TestDashboard_IncomeBrackets(t *testing.T) {
	m := seed(t,
		Record{Socioeconomic: Socioeconomic{FamilyIncome: "1518"}},
		Record{Socioeconomic: Socioeconomic{FamilyIncome: "0"}},
		Record{Socioeconomic: Socioeconomic{FamilyIncome: "1518.01"}},
		Record{Socioeconomic: Socioeconomic{FamilyIncome: "6072"}},
		Record{Socioeconomic: Socioeconomic{FamilyIncome: "6072.5"}},
		Record{Socioeconomic: Socioeconomic{FamilyIncome: "dois salários"}},
		Record{},
	)

	d, err := newTestService(m).Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []store.Bucket{
		{Key: "Até 1 Salário Mínimo", Count: 2},
		{Key: "Até 2 Salário Mínimo", Count: 1},
		{Key: "Até 4 Salário Mínimo", Count: 1},
		{Key: "Mais de 4 Salário Mínimo", Count: 1},
		{Key: "Não Informado / Outros", Count: 2},
	}, d.Socioeconomic.IncomeBrackets)
}

func TestIncomeRanges_FollowMinimumWage(t *testing.T) {
	r := IncomeRanges(1000)
	require.Len(t, r, 5)
	assert.True(t, r[0].Contains(1000))
	assert.False(t, r[0].Contains(1000.5))
	assert.True(t, r[1].Contains(1000.5))
	assert.True(t, r[4].Contains(1e9))
	assert.Nil(t, r[4].UpTo)
}

func TestDashboard_AgeBuckets(t *testing.T) {
	m := seed(t,
		Record{Demographics: Demographics{AgeAtRegistration: age(0)}},
		Record{Demographics: Demographics{AgeAtRegistration: age(18)}},
		Record{Demographics: Demographics{AgeAtRegistration: age(19)}},
		Record{Demographics: Demographics{AgeAtRegistration: age(60)}},
		Record{Demographics: Demographics{AgeAtRegistration: age(61)}},
		Record{Demographics: Demographics{AgeAtRegistration: age(149)}},
		Record{Demographics: Demographics{AgeAtRegistration: age(200)}},
		Record{},
	)

	d, err := newTestService(m).Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []store.Bucket{
		{Key: int64(0), Count: 2, Label: "0-18"},
		{Key: int64(19), Count: 1, Label: "19-30"},
		{Key: int64(46), Count: 1, Label: "46-60"},
		{Key: int64(61), Count: 2, Label: "60+"},
		{Key: "Outros", Count: 2},
	}, d.Demographics.AgeBuckets)
}

func TestDashboard_AgeBucketsUpperEdge(t *testing.T) {
	var recs []Record
	for _, a := range []int{0, 18, 19, 30, 31, 150, 200} {
		recs = append(recs, Record{Demographics: Demographics{AgeAtRegistration: age(a)}})
	}

	d, err := newTestService(seed(t, recs...)).Dashboard(context.Background())
	require.NoError(t, err)
	// 150 is outside the half-open [61,150) bucket.
	assert.Equal(t, []store.Bucket{
		{Key: int64(0), Count: 2, Label: "0-18"},
		{Key: int64(19), Count: 2, Label: "19-30"},
		{Key: int64(31), Count: 1, Label: "31-45"},
		{Key: "Outros", Count: 2},
	}, d.Demographics.AgeBuckets)
}

func TestDashboard_NeighborhoodsAreNotMerged(t *testing.T) {
	m := seed(t,
		Record{Demographics: Demographics{Neighborhood: "Boa Vista"}},
		Record{Demographics: Demographics{Neighborhood: "Boa Vista/PE"}},
		Record{Demographics: Demographics{Neighborhood: "Boa Vista/PE"}},
		Record{Demographics: Demographics{Neighborhood: ""}},
	)

	d, err := newTestService(m).Dashboard(context.Background())
	require.NoError(t, err)
	want := []store.Bucket{
		{Key: "Boa Vista", Count: 2, Label: "Boa Vista"},
		{Key: "Boa Vista", Count: 1, Label: "Boa Vista"},
	}
	assert.Equal(t, want, d.Demographics.TopNeighborhoods)
	assert.Equal(t, want, d.Demographics.NeighborhoodDensity)
}

func TestDashboard_UfpeAffiliation(t *testing.T) {
	m := seed(t,
		Record{Socioeconomic: Socioeconomic{IsUfpeCommunity: "Sim", UfpeLinkType: "Aluno"}},
		Record{Socioeconomic: Socioeconomic{IsUfpeCommunity: "SIM", UfpeLinkType: "Aluno"}},
		Record{Socioeconomic: Socioeconomic{IsUfpeCommunity: "sim", UfpeLinkType: "Servidor"}},
		Record{Socioeconomic: Socioeconomic{IsUfpeCommunity: true, UfpeLinkType: "Aluno"}},
		Record{Socioeconomic: Socioeconomic{IsUfpeCommunity: "true", UfpeLinkType: ""}},
		Record{Socioeconomic: Socioeconomic{IsUfpeCommunity: "Não", UfpeLinkType: "Aluno"}},
		Record{},
	)

	d, err := newTestService(m).Dashboard(context.Background())
	require.NoError(t, err)

	summary := map[any]int64{}
	for _, b := range d.Socioeconomic.UfpeAffiliationSummary {
		summary[b.Key] = b.Count
	}
	assert.Equal(t, int64(3), summary["SIM"])
	assert.Equal(t, int64(1), summary[true])
	assert.Equal(t, int64(1), summary["TRUE"])
	assert.Equal(t, int64(1), summary["NãO"])
	assert.Equal(t, int64(1), summary[nil])

	assert.Equal(t, []store.Bucket{
		{Key: "yes", Count: 5, Label: "Sim"},
		{Key: "no", Count: 1, Label: "Não"},
		{Key: "unknown", Count: 1, Label: "Não informado"},
	}, d.Socioeconomic.UfpeAffiliationNormalized)

	assert.Equal(t, []store.Bucket{
		{Key: "Aluno", Count: 3},
		{Key: "Servidor", Count: 1},
	}, d.Socioeconomic.UfpeAffiliationTypeBreakdown)
}

func TestDashboard_SocioeconomicGroupings(t *testing.T) {
	m := seed(t,
		Record{Socioeconomic: Socioeconomic{MaritalStatus: "Casado", ResidentsCount: 3}},
		Record{Socioeconomic: Socioeconomic{MaritalStatus: "Solteiro", ResidentsCount: 1}},
		Record{Socioeconomic: Socioeconomic{MaritalStatus: "Solteiro", ResidentsCount: 3}},
		Record{Socioeconomic: Socioeconomic{MaritalStatus: "", ResidentsCount: 0}},
	)

	d, err := newTestService(m).Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []store.Bucket{{Key: "Solteiro", Count: 2}, {Key: "Casado", Count: 1}}, d.Socioeconomic.MaritalStatus)
	assert.Equal(t, []store.Bucket{{Key: int64(1), Count: 1}, {Key: int64(3), Count: 2}}, d.Socioeconomic.ResidentsDistribution)
}

func TestDashboard_TopSpecialtiesUnwound(t *testing.T) {
	m := seed(t,
		Record{Triage: Triage{Specialties: []string{"Fisioterapia", "Nutrição"}, Priority: "Alta"}},
		Record{Triage: Triage{Specialties: []string{"Fisioterapia", ""}, Priority: "Normal"}},
		Record{Triage: Triage{Priority: "Normal"}},
	)

	d, err := newTestService(m).Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []store.Bucket{
		{Key: "Fisioterapia", Count: 2},
		{Key: "Nutrição", Count: 1},
	}, d.Triage.TopSpecialties)
	assert.Equal(t, []store.Bucket{{Key: "Normal", Count: 2}, {Key: "Alta", Count: 1}}, d.Triage.PriorityDistribution)
}

type failingReader struct {
	*store.Memory
}

func (f failingReader) MeanRatio(context.Context, store.Collection, store.RatioQuery) (float64, error) {
	return 0, errors.New("server selection timeout")
}

func TestDashboard_AnyFailureFailsWholePage(t *testing.T) {
	d, err := newTestService(failingReader{store.NewMemory()}).Dashboard(context.Background())
	require.Error(t, err)
	assert.Nil(t, d)
	assert.Contains(t, err.Error(), "cohort dashboard: per capita income")
}
