package anamnesis

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/nutes/frontdesk/internal/platform/store"
)

const (
	topLimit    = 5
	recentLimit = 5
	windowDays  = 7
)

type Service struct {
	records RecordReader
	loc     *time.Location
	now     func() time.Time
}

// NewService builds the dashboard aggregator. Daily volume is bucketed by
// calendar date in loc (UTC when nil).
func NewService(records RecordReader, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{records: records, loc: loc, now: time.Now}
}

// Dashboard runs every sub-query concurrently and waits for all of them. Any
// failure fails the whole dashboard; nothing partial is returned.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	now := s.now()
	d := &Dashboard{GeneratedAt: now.UTC()}

	var g errgroup.Group
	g.Go(func() error {
		n, err := s.records.Count(ctx, store.Anamneses)
		if err != nil {
			return fmt.Errorf("total count: %w", err)
		}
		d.TotalCount = n
		return nil
	})
	g.Go(func() error {
		avg, err := s.records.Average(ctx, store.Anamneses, FieldPainLevel)
		if err != nil {
			return fmt.Errorf("average pain: %w", err)
		}
		d.AveragePainLevel = math.Round(avg*10) / 10
		return nil
	})
	g.Go(func() error {
		b, err := s.records.Group(ctx, store.Anamneses, store.GroupQuery{Field: FieldPainLevel, Sort: store.SortKeyAsc})
		if err != nil {
			return fmt.Errorf("pain distribution: %w", err)
		}
		d.PainDistribution = b
		return nil
	})
	g.Go(func() error {
		b, err := s.records.DailyCounts(ctx, store.Anamneses, store.DailyQuery{
			Field:    FieldCreatedAt,
			Since:    now.AddDate(0, 0, -windowDays),
			Location: s.loc,
		})
		if err != nil {
			return fmt.Errorf("daily volume: %w", err)
		}
		d.DailyVolume = b
		return nil
	})
	g.Go(func() error {
		var recent []RecentEntry
		err := s.records.Latest(ctx, store.Anamneses, store.LatestQuery{
			By:     FieldCreatedAt,
			Limit:  recentLimit,
			Fields: []string{FieldPatientName, FieldComplaint, FieldPainLevel, FieldCreatedAt},
		}, &recent)
		if err != nil {
			return fmt.Errorf("recent entries: %w", err)
		}
		d.RecentEntries = recent
		return nil
	})

	tops := []struct {
		field string
		dst   *[]store.Bucket
	}{
		{FieldComplaint, &d.TopComplaints},
		{FieldHistory, &d.TopHistory},
		{FieldMedications, &d.TopMedications},
		{FieldGoals, &d.TopGoals},
	}
	for _, top := range tops {
		g.Go(func() error {
			b, err := s.records.Group(ctx, store.Anamneses, store.TopDistinct(top.field, topLimit))
			if err != nil {
				return fmt.Errorf("top %s: %w", top.field, err)
			}
			*top.dst = b
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("anamnesis dashboard: %w", err)
	}

	today := now.In(s.loc).Format("2006-01-02")
	if b, ok := lo.Find(d.DailyVolume, func(b store.Bucket) bool { return b.Key == today }); ok {
		d.NewToday = b.Count
	}

	d.PainDistribution = store.OrEmpty(d.PainDistribution)
	d.DailyVolume = store.OrEmpty(d.DailyVolume)
	d.TopComplaints = store.OrEmpty(d.TopComplaints)
	d.TopHistory = store.OrEmpty(d.TopHistory)
	d.TopMedications = store.OrEmpty(d.TopMedications)
	d.TopGoals = store.OrEmpty(d.TopGoals)
	if d.RecentEntries == nil {
		d.RecentEntries = []RecentEntry{}
	}
	return d, nil
}
