package tokens

import "time"

// Period selects a reporting window for the stats collector.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodAll     Period = "all"
)

// inPeriod reports whether ts falls inside the period ending at now.
func inPeriod(ts time.Time, p Period, now time.Time) bool {
	switch p {
	case PeriodDaily:
		return now.Sub(ts) < 24*time.Hour
	case PeriodWeekly:
		return now.Sub(ts) < 7*24*time.Hour
	case PeriodMonthly:
		return now.Sub(ts) < 30*24*time.Hour
	default:
		return true
	}
}

// StatsCollector filters tracker records by period and aggregates them.
type StatsCollector struct {
	tracker *Tracker
	now     func() time.Time
}

// NewStatsCollector wraps a tracker.
func NewStatsCollector(tracker *Tracker) *StatsCollector {
	return &StatsCollector{tracker: tracker, now: time.Now}
}

// Collect aggregates records inside the period.
func (s *StatsCollector) Collect(p Period) Summary {
	now := s.now()
	out := Summary{
		ByProvider: make(map[string]Breakdown),
		ByPhase:    make(map[int]Breakdown),
		ByTask:     make(map[string]Breakdown),
	}
	for _, u := range s.tracker.Records() {
		if !inPeriod(u.Timestamp, p, now) {
			continue
		}
		out.Total.add(u)

		bp := out.ByProvider[u.Provider]
		bp.add(u)
		out.ByProvider[u.Provider] = bp

		ph := out.ByPhase[u.Phase]
		ph.add(u)
		out.ByPhase[u.Phase] = ph

		bt := out.ByTask[u.Task]
		bt.add(u)
		out.ByTask[u.Task] = bt
	}
	return out
}
