package service

import (
	"alcyxob/adherence-app/internal/domain"
	"alcyxob/adherence-app/internal/repository"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StreakSummary reports the current run of active days.
type StreakSummary struct {
	AsOf         time.Time `json:"asOf"`
	Days         int       `json:"days"`
	LookbackDays int       `json:"lookbackDays"`
	Capped       bool      `json:"capped"` // the streak reached the lookback bound
}

// RollupOptions tunes summaries.
type RollupOptions struct {
	CountUnit          CountUnit
	StreakLookbackDays int
}

// RollupService derives adherence summaries from the calendar and ledger. It never writes.
type RollupService interface {
	Day(ctx context.Context, subjectID primitive.ObjectID, date time.Time) (*DaySummary, error)
	// Week summarizes the Monday..Sunday week containing date.
	Week(ctx context.Context, subjectID primitive.ObjectID, date time.Time) (*WeekSummary, error)
	Streak(ctx context.Context, subjectID primitive.ObjectID, asOf time.Time) (*StreakSummary, error)
}

type rollupService struct {
	calendarRepo repository.CalendarRepository
	trackingRepo repository.TrackingRepository
	opts         RollupOptions
}

// NewRollupService creates a rollup service over one plan kind's repositories.
func NewRollupService(calendarRepo repository.CalendarRepository, trackingRepo repository.TrackingRepository, opts RollupOptions) RollupService {
	if opts.CountUnit == "" {
		opts.CountUnit = CountItems
	}
	if opts.StreakLookbackDays <= 0 {
		opts.StreakLookbackDays = 90
	}
	return &rollupService{calendarRepo: calendarRepo, trackingRepo: trackingRepo, opts: opts}
}

func (s *rollupService) Day(ctx context.Context, subjectID primitive.ObjectID, date time.Time) (*DaySummary, error) {
	days, err := s.summarizeRange(ctx, subjectID, date, date)
	if err != nil {
		return nil, err
	}
	return &days[0], nil
}

func (s *rollupService) Week(ctx context.Context, subjectID primitive.ObjectID, date time.Time) (*WeekSummary, error) {
	start := domain.WeekStart(date)
	end := start.AddDate(0, 0, domain.DaysPerWeek-1)
	days, err := s.summarizeRange(ctx, subjectID, start, end)
	if err != nil {
		return nil, err
	}
	week := &WeekSummary{WeekStart: start, WeekEnd: end, Days: days}
	for _, d := range days {
		week.CompletedCount += d.CompletedCount
		week.TotalCount += d.TotalCount
	}
	week.Percentage = Percentage(week.CompletedCount, week.TotalCount)
	return week, nil
}

// Streak walks back from asOf. A day without completions, asOf included, ends it.
func (s *rollupService) Streak(ctx context.Context, subjectID primitive.ObjectID, asOf time.Time) (*StreakSummary, error) {
	asOf = domain.DateOnly(asOf)
	lookback := s.opts.StreakLookbackDays
	days, err := s.summarizeRange(ctx, subjectID, asOf.AddDate(0, 0, -(lookback-1)), asOf)
	if err != nil {
		return nil, err
	}
	completed := make([]int, len(days))
	for i := range days {
		completed[len(days)-1-i] = days[i].SessionsCompleted
	}
	n := Streak(completed)
	return &StreakSummary{AsOf: asOf, Days: n, LookbackDays: lookback, Capped: n == lookback}, nil
}

// summarizeRange returns one summary per date in [from, to], oldest first.
func (s *rollupService) summarizeRange(ctx context.Context, subjectID primitive.ObjectID, from, to time.Time) ([]DaySummary, error) {
	from, to = domain.DateOnly(from), domain.DateOnly(to)
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	entries, err := s.calendarRepo.ListBySubjectAndRange(ctx, subjectID, from, to)
	if err != nil {
		return nil, err
	}
	records, err := s.trackingRepo.ListBySubjectAndRange(ctx, subjectID, from, to)
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]*domain.CalendarEntry, len(entries))
	for i := range entries {
		byDate[entries[i].Date.Format(domain.DateLayout)] = &entries[i]
	}
	byEntry := make(map[primitive.ObjectID][]domain.TrackingRecord)
	for _, rec := range records {
		byEntry[rec.EntryID] = append(byEntry[rec.EntryID], rec)
	}

	var out []DaySummary
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		entry := byDate[d.Format(domain.DateLayout)]
		var recs []domain.TrackingRecord
		if entry != nil {
			recs = byEntry[entry.ID]
		}
		out = append(out, SummarizeDay(d, entry, recs, s.opts.CountUnit))
	}
	return out, nil
}
