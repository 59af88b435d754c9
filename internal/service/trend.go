package service

import (
	"alcyxob/adherence-app/internal/domain"
	"alcyxob/adherence-app/internal/repository"
	"context"
	"math"
	"strings"
	"time"
	"unicode/utf16"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// maxTrendWeeks bounds a trend query.
const maxTrendWeeks = 52

// TrendLabelLayout formats week-ending dates on chart axes, e.g. "12 Jan".
const TrendLabelLayout = "2 Jan"

// MetricRange bounds a synthetic value and sets its rounding.
type MetricRange struct {
	Min       float64
	Max       float64
	Precision int // decimal places
}

// FallbackStrategy fills weeks that have no real data. Implementations must be
// pure: the same seed and range always give the same value.
type FallbackStrategy interface {
	// Value returns the substitute for seed; ok=false leaves the week empty.
	Value(seed string, r MetricRange) (value float64, ok bool)
}

// SeededFallback derives a stable, plausible-looking value from the seed.
type SeededFallback struct{}

// Value maps SeedHash(seed) onto r: (|h| mod 1000)/1000 scaled into [Min, Max].
func (SeededFallback) Value(seed string, r MetricRange) (float64, bool) {
	h := int64(SeedHash(seed))
	if h < 0 {
		h = -h
	}
	n := float64(h%1000) / 1000
	return roundTo(r.Min+n*(r.Max-r.Min), r.Precision), true
}

// NoFallback leaves weeks without data empty.
type NoFallback struct{}

func (NoFallback) Value(string, MetricRange) (float64, bool) { return 0, false }

// SeedHash is the 32-bit polynomial string hash h = h*31 + c over UTF-16 code
// units, wrapping as a signed 32-bit integer. Values match the same hash
// computed in a browser, so server and client charts agree.
func SeedHash(seed string) int32 {
	var h int32
	for _, c := range utf16.Encode([]rune(seed)) {
		h = h*31 + int32(c)
	}
	return h
}

func roundTo(v float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	return math.Round(v*p) / p
}

// --- Metric sources ---

// Observation is one real measurement of a metric.
type Observation struct {
	At    time.Time
	Value float64
}

// MetricSource yields real observations with from <= At < to.
type MetricSource interface {
	Observations(ctx context.Context, subjectID primitive.ObjectID, metric string, from, to time.Time) ([]Observation, error)
}

type progressSource struct {
	repo repository.ProgressRepository
}

// NewProgressSource reads logged body/performance samples.
func NewProgressSource(repo repository.ProgressRepository) MetricSource {
	return &progressSource{repo: repo}
}

func (p *progressSource) Observations(ctx context.Context, subjectID primitive.ObjectID, metric string, from, to time.Time) ([]Observation, error) {
	samples, err := p.repo.ListBySubjectAndRange(ctx, subjectID, metric, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]Observation, len(samples))
	for i, s := range samples {
		out[i] = Observation{At: s.MeasuredAt, Value: s.Value}
	}
	return out, nil
}

// Extractor pulls one metric out of a record's actual measurements.
type Extractor func(domain.Measurements) (float64, bool)

type ledgerSource struct {
	repo    repository.TrackingRepository
	extract Extractor
}

// NewLedgerSource turns tracked actuals into one observation per day: the sum
// over that day's non-skipped records.
func NewLedgerSource(repo repository.TrackingRepository, extract Extractor) MetricSource {
	return &ledgerSource{repo: repo, extract: extract}
}

func (l *ledgerSource) Observations(ctx context.Context, subjectID primitive.ObjectID, _ string, from, to time.Time) ([]Observation, error) {
	records, err := l.repo.ListBySubjectAndRange(ctx, subjectID, domain.DateOnly(from), domain.DateOnly(to).AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}
	var out []Observation
	index := make(map[time.Time]int)
	for _, rec := range records {
		if rec.Status == domain.StatusSkipped {
			continue
		}
		v, ok := l.extract(rec.Actual)
		if !ok {
			continue
		}
		day := domain.DateOnly(rec.TrackedDate)
		if i, seen := index[day]; seen {
			out[i].Value += v
			continue
		}
		index[day] = len(out)
		out = append(out, Observation{At: day, Value: v})
	}
	return out, nil
}

// MealLedgerMetrics are the metrics summed from the meal ledger.
func MealLedgerMetrics() map[string]Extractor {
	macro := func(pick func(*domain.MealMeasures) *float64) Extractor {
		return func(m domain.Measurements) (float64, bool) {
			if m.Meal == nil || pick(m.Meal) == nil {
				return 0, false
			}
			return *pick(m.Meal), true
		}
	}
	return map[string]Extractor{
		"calories": macro(func(m *domain.MealMeasures) *float64 { return m.Calories }),
		"protein":  macro(func(m *domain.MealMeasures) *float64 { return m.Protein }),
		"carbs":    macro(func(m *domain.MealMeasures) *float64 { return m.Carbs }),
		"fat":      macro(func(m *domain.MealMeasures) *float64 { return m.Fat }),
	}
}

// ExerciseLedgerMetrics are the metrics summed from the exercise ledger.
func ExerciseLedgerMetrics() map[string]Extractor {
	return map[string]Extractor{
		// volume is reps x weight over every performed slot
		"volume": func(m domain.Measurements) (float64, bool) {
			if m.Exercise == nil {
				return 0, false
			}
			total, found := 0.0, false
			for _, s := range m.Exercise.Slots {
				if s.Reps != nil && s.Weight != nil {
					total += float64(*s.Reps) * *s.Weight
					found = true
				}
			}
			return total, found
		},
		"duration": func(m domain.Measurements) (float64, bool) {
			if m.Exercise == nil || m.Exercise.DurationSeconds == nil {
				return 0, false
			}
			return float64(*m.Exercise.DurationSeconds), true
		},
	}
}

// --- Service ---

// TrendPoint is one week of a series. Value is nil for an empty week when no
// fallback is configured.
type TrendPoint struct {
	WeekEnding  time.Time `json:"weekEnding"`
	Label       string    `json:"label"`
	Value       *float64  `json:"value"`
	SampleCount int       `json:"sampleCount"`
	Synthetic   bool      `json:"synthetic"`
}

// TrendSeries is the chart data of one metric, oldest week first.
type TrendSeries struct {
	Metric string       `json:"metric"`
	Points []TrendPoint `json:"points"`
}

// TrendOptions configures the synthesizer.
type TrendOptions struct {
	Ranges       map[string]MetricRange
	DefaultRange MetricRange
	DefaultWeeks int
	Fallback     FallbackStrategy
}

// TrendService computes rolling weekly averages. It reads only; synthetic
// values are never written anywhere.
type TrendService interface {
	Trends(ctx context.Context, subjectID primitive.ObjectID, metrics []string, to time.Time, weeks int) ([]TrendSeries, error)
}

type trendService struct {
	sources       map[string]MetricSource
	defaultSource MetricSource
	opts          TrendOptions
}

// NewTrendService routes each metric to its source; unlisted metrics use defaultSource.
func NewTrendService(defaultSource MetricSource, sources map[string]MetricSource, opts TrendOptions) TrendService {
	if opts.Fallback == nil {
		opts.Fallback = NoFallback{}
	}
	if opts.DefaultWeeks <= 0 {
		opts.DefaultWeeks = 8
	}
	if opts.DefaultRange == (MetricRange{}) {
		opts.DefaultRange = MetricRange{Min: 0, Max: 100, Precision: 1}
	}
	return &trendService{sources: sources, defaultSource: defaultSource, opts: opts}
}

func (s *trendService) Trends(ctx context.Context, subjectID primitive.ObjectID, metrics []string, to time.Time, weeks int) ([]TrendSeries, error) {
	if weeks == 0 {
		weeks = s.opts.DefaultWeeks
	}
	if weeks < 1 || weeks > maxTrendWeeks {
		return nil, invalid("weeks", "must be between 1 and %d", maxTrendWeeks)
	}
	if len(metrics) == 0 {
		return nil, invalid("metrics", "at least one metric is required")
	}

	out := make([]TrendSeries, 0, len(metrics))
	for _, raw := range metrics {
		metric := strings.ToLower(strings.TrimSpace(raw))
		if metric == "" {
			return nil, invalid("metrics", "metric names must not be empty")
		}
		series, err := s.series(ctx, subjectID, metric, domain.DateOnly(to), weeks)
		if err != nil {
			return nil, err
		}
		out = append(out, series)
	}
	return out, nil
}

// series builds weeks points; week i ends on to - 7*(weeks-1-i) days and
// covers the seven days up to and including its end.
func (s *trendService) series(ctx context.Context, subjectID primitive.ObjectID, metric string, to time.Time, weeks int) (TrendSeries, error) {
	source, ok := s.sources[metric]
	if !ok {
		source = s.defaultSource
	}
	r, ok := s.opts.Ranges[metric]
	if !ok {
		r = s.opts.DefaultRange
	}

	first := to.AddDate(0, 0, -7*(weeks-1)-6)
	end := to.AddDate(0, 0, 1)
	obs, err := source.Observations(ctx, subjectID, metric, first, end)
	if err != nil {
		return TrendSeries{}, err
	}

	series := TrendSeries{Metric: metric, Points: make([]TrendPoint, weeks)}
	for i := 0; i < weeks; i++ {
		weekEnd := to.AddDate(0, 0, -7*(weeks-1-i))
		weekStart := weekEnd.AddDate(0, 0, -6)
		next := weekEnd.AddDate(0, 0, 1)
		pt := TrendPoint{WeekEnding: weekEnd, Label: weekEnd.Format(TrendLabelLayout)}

		var sum float64
		for _, o := range obs {
			if !o.At.Before(weekStart) && o.At.Before(next) {
				sum += o.Value
				pt.SampleCount++
			}
		}
		if pt.SampleCount > 0 {
			avg := roundTo(sum/float64(pt.SampleCount), r.Precision)
			pt.Value = &avg
		} else if v, ok := s.opts.Fallback.Value(pt.Label+"-"+metric, r); ok {
			pt.Value = &v
			pt.Synthetic = true
			trendSyntheticPoints.WithLabelValues(metric).Inc()
		}
		series.Points[i] = pt
	}
	return series, nil
}
