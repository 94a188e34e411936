package cohort

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/nutes/frontdesk/internal/platform/store"
)

// DefaultMinimumWage is the 2025 Brazilian minimum wage in BRL.
const DefaultMinimumWage = 1518

const topLimit = 5

var (
	ageBoundaries = []int{0, 19, 31, 46, 61, 150}
	ageLabels     = map[int]string{0: "0-18", 19: "19-30", 31: "31-45", 46: "46-60", 61: "60+"}
)

const (
	ageOutside     = "Outros"
	incomeUnknown  = "Não Informado / Outros"
	neighborSuffix = "/PE"
)

// ufpeYesValues are the representations of "yes" the type breakdown accepts.
// The list is kept literal so the breakdown matches the historical reports.
var ufpeYesValues = []any{"SIM", "Sim", "sim", true, "true"}

type Service struct {
	records     RecordReader
	minimumWage float64
	now         func() time.Time
}

// NewService builds the cohort aggregator. minimumWage drives the income
// brackets; zero or less selects DefaultMinimumWage.
func NewService(records RecordReader, minimumWage float64) *Service {
	if minimumWage <= 0 {
		minimumWage = DefaultMinimumWage
	}
	return &Service{records: records, minimumWage: minimumWage, now: time.Now}
}

// IncomeRanges returns the family income brackets for wage w. Upper edges are
// inclusive and the first bracket also takes zero and negative incomes.
func IncomeRanges(w float64) []store.Range {
	edge := func(n float64) *float64 { v := n * w; return &v }
	return []store.Range{
		{Label: "Até 1 Salário Mínimo", UpTo: edge(1)},
		{Label: "Até 2 Salário Mínimo", Above: edge(1), UpTo: edge(2)},
		{Label: "Até 3 Salário Mínimo", Above: edge(2), UpTo: edge(3)},
		{Label: "Até 4 Salário Mínimo", Above: edge(3), UpTo: edge(4)},
		{Label: "Mais de 4 Salário Mínimo", Above: edge(4)},
	}
}

func (s *Service) group(ctx context.Context, q store.GroupQuery, name string, dst *[]store.Bucket) func() error {
	return func() error {
		b, err := s.records.Group(ctx, store.CohortRecords, q)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = b
		return nil
	}
}

func byCount(field string) store.GroupQuery {
	return store.GroupQuery{Field: field, Sort: store.SortCountDesc}
}

func nonEmptyByCount(field string) store.GroupQuery {
	return store.GroupQuery{Field: field, Where: []store.Condition{store.NonEmpty(field)}, Sort: store.SortCountDesc}
}

// Dashboard runs every cohort metric concurrently and waits for all of them.
// A single failure fails the page.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	d := &Dashboard{GeneratedAt: s.now().UTC()}
	demo, socio, tri := &d.Demographics, &d.Socioeconomic, &d.Triage

	var g errgroup.Group
	g.Go(func() error {
		n, err := s.records.Count(ctx, store.CohortRecords)
		if err != nil {
			return fmt.Errorf("total count: %w", err)
		}
		d.TotalCount = n
		return nil
	})

	// demographics
	g.Go(func() error {
		b, err := s.records.Bucket(ctx, store.CohortRecords, store.BucketQuery{
			Field:      FieldAge,
			Boundaries: ageBoundaries,
			Default:    ageOutside,
		})
		if err != nil {
			return fmt.Errorf("age buckets: %w", err)
		}
		demo.AgeBuckets = b
		return nil
	})
	g.Go(s.group(ctx, byCount(FieldGender), "gender distribution", &demo.GenderDistribution))
	g.Go(s.group(ctx, store.TopDistinct(FieldCity, topLimit), "top cities", &demo.TopCities))
	g.Go(s.group(ctx, store.TopDistinct(FieldNeighborhood, topLimit), "top neighborhoods", &demo.TopNeighborhoods))
	g.Go(s.group(ctx, nonEmptyByCount(FieldNeighborhood), "neighborhood density", &demo.NeighborhoodDensity))

	// socioeconomic
	g.Go(func() error {
		v, err := s.records.MeanRatio(ctx, store.CohortRecords, store.RatioQuery{
			Numerator:   FieldFamilyIncome,
			Denominator: FieldResidentsCount,
		})
		if err != nil {
			return fmt.Errorf("per capita income: %w", err)
		}
		socio.PerCapitaIncome = v
		return nil
	})
	g.Go(func() error {
		b, err := s.records.Classify(ctx, store.CohortRecords, store.RangeQuery{
			Field:   FieldFamilyIncome,
			Ranges:  IncomeRanges(s.minimumWage),
			Default: incomeUnknown,
		})
		if err != nil {
			return fmt.Errorf("income brackets: %w", err)
		}
		socio.IncomeBrackets = b
		return nil
	})
	g.Go(s.group(ctx, nonEmptyByCount(FieldMaritalStatus), "marital status", &socio.MaritalStatus))
	g.Go(s.group(ctx, nonEmptyByCount(FieldHousingStatus), "housing status", &socio.HousingStatus))
	g.Go(s.group(ctx, nonEmptyByCount(FieldTransportType), "transport type", &socio.TransportType))
	g.Go(s.group(ctx, nonEmptyByCount(FieldEducationLevel), "education level", &socio.EducationLevel))
	g.Go(s.group(ctx, store.GroupQuery{
		Field: FieldResidentsCount,
		Where: []store.Condition{store.Positive(FieldResidentsCount)},
		Sort:  store.SortKeyAsc,
	}, "residents distribution", &socio.ResidentsDistribution))
	g.Go(s.group(ctx, store.GroupQuery{
		Field: FieldUfpeCommunity,
		Key:   store.KeyUpper,
		Sort:  store.SortCountDesc,
	}, "ufpe affiliation", &socio.UfpeAffiliationSummary))
	g.Go(s.group(ctx, store.GroupQuery{
		Field: FieldUfpeLinkType,
		Where: []store.Condition{
			store.In(FieldUfpeCommunity, ufpeYesValues...),
			store.NonEmpty(FieldUfpeLinkType),
		},
		Sort: store.SortCountDesc,
	}, "ufpe link type", &socio.UfpeAffiliationTypeBreakdown))

	// triage
	g.Go(s.group(ctx, byCount(FieldPriority), "priority distribution", &tri.PriorityDistribution))
	g.Go(s.group(ctx, store.TopDistinct(FieldTriageComplaint, topLimit), "top complaints", &tri.TopComplaints))
	g.Go(s.group(ctx, store.TopDistinct(FieldReferralSource, topLimit), "top referral sources", &tri.TopReferralSources))
	g.Go(s.group(ctx, store.TopDistinct(FieldLifestyle, topLimit), "top lifestyle notes", &tri.TopLifestyleNotes))
	specialties := store.TopDistinct(FieldSpecialties, topLimit)
	specialties.Unwind = true
	g.Go(s.group(ctx, specialties, "top specialties", &tri.TopSpecialties))

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("cohort dashboard: %w", err)
	}

	demo.AgeBuckets = lo.Map(demo.AgeBuckets, func(b store.Bucket, _ int) store.Bucket {
		if n, ok := store.AsInt(b.Key); ok {
			b.Label = ageLabels[n]
		}
		return b
	})
	demo.TopNeighborhoods = lo.Map(demo.TopNeighborhoods, stripNeighborhood)
	demo.NeighborhoodDensity = lo.Map(demo.NeighborhoodDensity, stripNeighborhood)
	socio.UfpeAffiliationNormalized = normalizeAffiliation(socio.UfpeAffiliationSummary)

	for _, l := range []*[]store.Bucket{
		&demo.AgeBuckets, &demo.GenderDistribution, &demo.TopCities, &demo.TopNeighborhoods, &demo.NeighborhoodDensity,
		&socio.IncomeBrackets, &socio.MaritalStatus, &socio.HousingStatus, &socio.TransportType, &socio.EducationLevel,
		&socio.ResidentsDistribution, &socio.UfpeAffiliationSummary, &socio.UfpeAffiliationNormalized,
		&socio.UfpeAffiliationTypeBreakdown,
		&tri.PriorityDistribution, &tri.TopComplaints, &tri.TopReferralSources, &tri.TopLifestyleNotes, &tri.TopSpecialties,
	} {
		*l = store.OrEmpty(*l)
	}
	return d, nil
}

// stripNeighborhood drops the state suffix from the key and label after
// counting. "Boa Vista" and "Boa Vista/PE" stay separate rows.
func stripNeighborhood(b store.Bucket, _ int) store.Bucket {
	if s, ok := b.Key.(string); ok {
		b.Key = strings.TrimSuffix(s, neighborSuffix)
		b.Label = b.Key.(string)
	}
	return b
}
