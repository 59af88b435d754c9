package service

import (
	"alcyxob/adherence-app/internal/domain"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CountUnit selects what a day's headline completed/total counts.
type CountUnit string

const (
	CountItems    CountUnit = "items"
	CountSessions CountUnit = "sessions"
)

// ParseCountUnit maps a config value to a CountUnit.
func ParseCountUnit(s string) (CountUnit, error) {
	switch CountUnit(s) {
	case CountItems, CountSessions:
		return CountUnit(s), nil
	}
	return "", fmt.Errorf("unknown count unit %q", s)
}

// SessionSummary is the rolled-up state of one calendar session.
type SessionSummary struct {
	SessionID      primitive.ObjectID      `json:"sessionId"`
	Name           string                  `json:"name"`
	Status         domain.CompletionStatus `json:"status"`
	Explicit       bool                    `json:"explicit"` // status came from a tracking record, not derivation
	ItemsCompleted int                     `json:"itemsCompleted"`
	ItemsTotal     int                     `json:"itemsTotal"`
}

// DaySummary is the adherence of one date.
type DaySummary struct {
	Date              time.Time           `json:"date"`
	EntryID           *primitive.ObjectID `json:"entryId,omitempty"`
	Materialized      bool                `json:"materialized"`
	IsRestDay         bool                `json:"isRestDay"`
	Sessions          []SessionSummary    `json:"sessions"`
	ItemsCompleted    int                 `json:"itemsCompleted"`
	ItemsTotal        int                 `json:"itemsTotal"`
	SessionsCompleted int                 `json:"sessionsCompleted"`
	SessionsTotal     int                 `json:"sessionsTotal"`
	CompletedCount    int                 `json:"completedCount"`
	TotalCount        int                 `json:"totalCount"`
	Percentage        int                 `json:"percentage"`
}

// WeekSummary aggregates Monday through Sunday.
type WeekSummary struct {
	WeekStart      time.Time    `json:"weekStart"`
	WeekEnd        time.Time    `json:"weekEnd"`
	Days           []DaySummary `json:"days"`
	CompletedCount int          `json:"completedCount"`
	TotalCount     int          `json:"totalCount"`
	Percentage     int          `json:"percentage"`
}

// Percentage is completed/total*100 rounded half away from zero, and 0 for an empty window.
func Percentage(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) * 100 / float64(total)))
}

// DeriveSessionStatus resolves a session's status. An explicit session-level
// status always wins. Otherwise items decide: all completed is completed, all
// skipped is skipped, any completed is partial, anything else is pending.
// items holds one status per item, pending for untracked ones.
func DeriveSessionStatus(explicit *domain.CompletionStatus, items []domain.CompletionStatus) domain.CompletionStatus {
	if explicit != nil {
		return *explicit
	}
	if len(items) == 0 {
		return domain.StatusPending
	}
	var completed, skipped int
	for _, st := range items {
		switch st {
		case domain.StatusCompleted:
			completed++
		case domain.StatusSkipped:
			skipped++
		}
	}
	switch {
	case completed == len(items):
		return domain.StatusCompleted
	case skipped == len(items):
		return domain.StatusSkipped
	case completed > 0:
		return domain.StatusPartial
	}
	return domain.StatusPending
}

// Streak counts consecutive days with at least one completed session.
// completedSessions[0] is the most recent day; counting stops at the first zero.
func Streak(completedSessions []int) int {
	n := 0
	for _, c := range completedSessions {
		if c == 0 {
			break
		}
		n++
	}
	return n
}

// entryLedger indexes one entry's tracking records by key level.
type entryLedger struct {
	day      *domain.TrackingRecord
	sessions map[primitive.ObjectID]*domain.TrackingRecord
	items    map[primitive.ObjectID]*domain.TrackingRecord
}

func indexLedger(records []domain.TrackingRecord) map[primitive.ObjectID]*entryLedger {
	out := make(map[primitive.ObjectID]*entryLedger)
	for i := range records {
		rec := &records[i]
		l, ok := out[rec.EntryID]
		if !ok {
			l = &entryLedger{
				sessions: make(map[primitive.ObjectID]*domain.TrackingRecord),
				items:    make(map[primitive.ObjectID]*domain.TrackingRecord),
			}
			out[rec.EntryID] = l
		}
		switch {
		case rec.IsItemLevel():
			l.items[*rec.ItemID] = rec
		case rec.IsSessionLevel():
			l.sessions[*rec.SessionID] = rec
		default:
			l.day = rec
		}
	}
	return out
}

// SummarizeDay rolls up one date. entry may be nil when the date was never
// materialized; records may contain records of other entries.
func SummarizeDay(date time.Time, entry *domain.CalendarEntry, records []domain.TrackingRecord, unit CountUnit) DaySummary {
	sum := DaySummary{Date: domain.DateOnly(date), Sessions: []SessionSummary{}}
	if entry == nil {
		return sum
	}
	id := entry.ID
	sum.EntryID = &id
	sum.Materialized = true
	sum.IsRestDay = entry.IsRestDay

	ledger := indexLedger(records)[entry.ID]
	if ledger == nil {
		ledger = &entryLedger{}
	}
	for _, sess := range entry.Sessions {
		ss := summarizeSession(sess, ledger)
		sum.Sessions = append(sum.Sessions, ss)
		sum.ItemsCompleted += ss.ItemsCompleted
		sum.ItemsTotal += ss.ItemsTotal
		sum.SessionsTotal++
		if ss.Status == domain.StatusCompleted {
			sum.SessionsCompleted++
		}
	}

	if unit == CountSessions {
		sum.CompletedCount, sum.TotalCount = sum.SessionsCompleted, sum.SessionsTotal
	} else {
		sum.CompletedCount, sum.TotalCount = sum.ItemsCompleted, sum.ItemsTotal
	}
	sum.Percentage = Percentage(sum.CompletedCount, sum.TotalCount)
	return sum
}

func summarizeSession(sess domain.CalendarSession, ledger *entryLedger) SessionSummary {
	ss := SessionSummary{SessionID: sess.ID, Name: sess.Name, ItemsTotal: len(sess.Items)}

	// A session record wins; a whole-day completed or skipped record stands in for it.
	var explicit *domain.CompletionStatus
	if rec, ok := ledger.sessions[sess.ID]; ok {
		explicit = &rec.Status
	} else if ledger.day != nil && (ledger.day.Status == domain.StatusCompleted || ledger.day.Status == domain.StatusSkipped) {
		explicit = &ledger.day.Status
	}

	statuses := make([]domain.CompletionStatus, len(sess.Items))
	itemsCompleted := 0
	for i, it := range sess.Items {
		statuses[i] = domain.StatusPending
		if rec, ok := ledger.items[it.ID]; ok {
			statuses[i] = rec.Status
			if rec.Status == domain.StatusCompleted {
				itemsCompleted++
			}
		}
	}

	ss.Status = DeriveSessionStatus(explicit, statuses)
	ss.Explicit = explicit != nil
	switch {
	case explicit != nil && *explicit == domain.StatusCompleted:
		ss.ItemsCompleted = ss.ItemsTotal
	case explicit != nil && *explicit == domain.StatusSkipped:
		ss.ItemsCompleted = 0
	default:
		ss.ItemsCompleted = itemsCompleted
	}
	return ss
}
