package tokens

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"aigenflow/internal/logging"
)

// Usage is an immutable record of one provider transaction.
type Usage struct {
	Provider     string    `json:"provider"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	TotalTokens  int       `json:"total_tokens"`
	CostUSD      float64   `json:"cost_usd"`
	Phase        int       `json:"phase"`
	Task         string    `json:"task"`
	Timestamp    time.Time `json:"timestamp"`
}

// Breakdown holds aggregated counters for one dimension value.
type Breakdown struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	Requests     int     `json:"requests"`
}

func (b *Breakdown) add(u Usage) {
	b.InputTokens += u.InputTokens
	b.OutputTokens += u.OutputTokens
	b.TotalTokens += u.TotalTokens
	b.CostUSD += u.CostUSD
	b.Requests++
}

// Summary aggregates usage across dimensions.
type Summary struct {
	Total      Breakdown            `json:"total"`
	ByProvider map[string]Breakdown `json:"by_provider"`
	ByPhase    map[int]Breakdown    `json:"by_phase"`
	ByTask     map[string]Breakdown `json:"by_task"`
}

// Budgets holds USD spending budgets per period.
type Budgets struct {
	DailyUSD   float64 `json:"daily_usd"`
	WeeklyUSD  float64 `json:"weekly_usd"`
	MonthlyUSD float64 `json:"monthly_usd"`
}

// DefaultBudgets returns the default USD budgets.
func DefaultBudgets() Budgets {
	return Budgets{DailyUSD: 10, WeeklyUSD: 50, MonthlyUSD: 200}
}

// BudgetAlert reports a crossed spending threshold. The tracker reports,
// it never enforces.
type BudgetAlert struct {
	Period    Period  `json:"period"`
	Threshold int     `json:"threshold_percent"` // 50, 75, 90, 100
	SpentUSD  float64 `json:"spent_usd"`
	BudgetUSD float64 `json:"budget_usd"`
}

var alertThresholds = []int{50, 75, 90, 100}

// trackerFile is the persisted shape of the usage log.
type trackerFile struct {
	Version string  `json:"version"`
	Records []Usage `json:"records"`
}

// Tracker records token usage per (provider, phase, task) with debounced
// JSON persistence. The log is append-only; Summary takes a snapshot.
type Tracker struct {
	mu       sync.Mutex
	records  []Usage
	cost     *CostCalculator
	budgets  Budgets
	filePath string
	dirty    bool
	now      func() time.Time
}

// NewTracker creates a tracker persisting to <dir>/usage.json. Existing
// records are loaded if present; a corrupt file starts the log empty.
func NewTracker(dir string, cost *CostCalculator, budgets Budgets) (*Tracker, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create usage dir: %w", err)
	}
	t := &Tracker{
		cost:     cost,
		budgets:  budgets,
		filePath: filepath.Join(dir, "usage.json"),
		now:      time.Now,
	}
	if err := t.load(); err != nil {
		logging.Tokens("usage log unreadable, starting empty: %v", err)
	}
	return t, nil
}

func (t *Tracker) load() error {
	data, err := os.ReadFile(t.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var tf trackerFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return err
	}
	t.records = tf.Records
	return nil
}

// Save writes the usage log to disk.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saveLocked()
}

func (t *Tracker) saveLocked() error {
	data, err := json.MarshalIndent(trackerFile{Version: "1.0", Records: t.records}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(t.filePath, data, 0644)
}

// Track records one usage event. Total and cost are derived here so every
// stored record satisfies total == input + output.
func (t *Tracker) Track(provider string, inputTokens, outputTokens, phase int, task string) Usage {
	u := Usage{
		Provider:     provider,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		TotalTokens:  inputTokens + outputTokens,
		Phase:        phase,
		Task:         task,
		Timestamp:    t.now(),
	}
	if t.cost != nil {
		u.CostUSD = t.cost.Calculate(inputTokens, outputTokens, provider)
	}

	t.mu.Lock()
	t.records = append(t.records, u)
	schedule := !t.dirty
	if schedule {
		t.dirty = true
	}
	t.mu.Unlock()

	logging.TokensDebug("tracked %s phase=%d task=%s in=%d out=%d cost=%.6f",
		provider, phase, task, inputTokens, outputTokens, u.CostUSD)

	// Debounced auto-save.
	if schedule {
		time.AfterFunc(2*time.Second, t.flush)
	}
	return u
}

// flush writes the log and clears the dirty flag under one lock, so a
// Track racing the flush re-arms the debounce for its own record.
func (t *Tracker) flush() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dirty = false
	if err := t.saveLocked(); err != nil {
		logging.Tokens("usage auto-save failed: %v", err)
	}
}

// Records returns a snapshot of the usage log.
func (t *Tracker) Records() []Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Usage, len(t.records))
	copy(out, t.records)
	return out
}

// Summarize aggregates usage. An empty provider filter covers all records.
func (t *Tracker) Summarize(provider string) Summary {
	s := Summary{
		ByProvider: make(map[string]Breakdown),
		ByPhase:    make(map[int]Breakdown),
		ByTask:     make(map[string]Breakdown),
	}
	for _, u := range t.Records() {
		if provider != "" && u.Provider != provider {
			continue
		}
		s.Total.add(u)

		bp := s.ByProvider[u.Provider]
		bp.add(u)
		s.ByProvider[u.Provider] = bp

		ph := s.ByPhase[u.Phase]
		ph.add(u)
		s.ByPhase[u.Phase] = ph

		bt := s.ByTask[u.Task]
		bt.add(u)
		s.ByTask[u.Task] = bt
	}
	return s
}

// CheckBudget returns one alert per threshold crossed, for each period.
func (t *Tracker) CheckBudget() []BudgetAlert {
	now := t.now()
	spent := map[Period]float64{}
	for _, u := range t.Records() {
		for _, p := range []Period{PeriodDaily, PeriodWeekly, PeriodMonthly} {
			if inPeriod(u.Timestamp, p, now) {
				spent[p] += u.CostUSD
			}
		}
	}

	budgets := map[Period]float64{
		PeriodDaily:   t.budgets.DailyUSD,
		PeriodWeekly:  t.budgets.WeeklyUSD,
		PeriodMonthly: t.budgets.MonthlyUSD,
	}

	var alerts []BudgetAlert
	for _, p := range []Period{PeriodDaily, PeriodWeekly, PeriodMonthly} {
		budget := budgets[p]
		if budget <= 0 {
			continue
		}
		pct := spent[p] / budget * 100
		for _, th := range alertThresholds {
			if pct >= float64(th) {
				alerts = append(alerts, BudgetAlert{
					Period:    p,
					Threshold: th,
					SpentUSD:  spent[p],
					BudgetUSD: budget,
				})
			}
		}
	}
	return alerts
}
