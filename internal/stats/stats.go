// Package stats tracks per-session metrics for baldi (provider, model,
// outcome, guard trips, time to first delta and total duration) and persists
// them to ~/.baldionna/stats.json.
package stats

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/baldionna/baldi/internal/ai"
	"github.com/baldionna/baldi/internal/config"
)

const (
	fileName   = "stats.json"
	maxRecords = 1000
)

// Record is a single instrumented completion session.
type Record struct {
	Timestamp    time.Time `json:"timestamp"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	Persona      string    `json:"persona,omitempty"`
	Outcome      string    `json:"outcome"`
	Trip         string    `json:"trip,omitempty"`
	FirstDeltaMs int64     `json:"first_delta_ms"`
	DurationMs   int64     `json:"duration_ms"`
	Deltas       int       `json:"deltas"`
	Chars        int       `json:"chars"`
	Web          bool      `json:"web,omitempty"`
	Subcommand   string    `json:"subcommand,omitempty"` // "ask", "chat", "serve"
}

// FromOutcome fills the measured fields of a record from a session outcome.
func FromOutcome(out ai.Outcome) Record {
	return Record{
		Outcome:      string(out.Kind),
		Trip:         string(out.Trip),
		FirstDeltaMs: out.FirstDelta.Milliseconds(),
		DurationMs:   out.Duration.Milliseconds(),
		Deltas:       out.Deltas,
		Chars:        utf8.RuneCountInString(out.Text) - utf8.RuneCountInString(out.Marker),
	}
}

// Summary is the aggregated stats dashboard.
type Summary struct {
	TotalSessions    int            `json:"total_sessions"`
	CompletionRate   float64        `json:"completion_rate"`
	AvgFirstDeltaMs  int64          `json:"avg_first_delta_ms"`
	AvgDurationMs    int64          `json:"avg_duration_ms"`
	TotalChars       int            `json:"total_chars"`
	OutcomeBreakdown map[string]int `json:"outcome_breakdown"`
	TripBreakdown    map[string]int `json:"trip_breakdown"`
	SubcmdBreakdown  map[string]int `json:"subcmd_breakdown"`
	TopModels        []ModelCount   `json:"top_models"`
	TodayCount       int            `json:"today_count"`
	ThisWeekCount    int            `json:"this_week_count"`
}

// ModelCount pairs a provider/model with its usage count.
type ModelCount struct {
	Model string `json:"model"`
	Count int    `json:"count"`
}

var fileMu sync.Mutex

func statsPath() string {
	return filepath.Join(config.Dir(), fileName)
}

// Save appends a new record to the stats file.
func Save(r Record) error {
	fileMu.Lock()
	defer fileMu.Unlock()

	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}

	records, _ := loadAll()
	records = append(records, r)
	if len(records) > maxRecords {
		records = records[len(records)-maxRecords:]
	}

	if err := os.MkdirAll(config.Dir(), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(statsPath(), data, 0o600)
}

// LoadAll returns all stored records.
func LoadAll() ([]Record, error) {
	return loadAll()
}

func loadAll() ([]Record, error) {
	data, err := os.ReadFile(statsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Summarize computes aggregated stats from all records.
func Summarize() (*Summary, error) {
	records, err := loadAll()
	if err != nil {
		return nil, err
	}
	return summarize(records, time.Now()), nil
}

func summarize(records []Record, now time.Time) *Summary {
	s := &Summary{
		TotalSessions:    len(records),
		OutcomeBreakdown: map[string]int{},
		TripBreakdown:    map[string]int{},
		SubcmdBreakdown:  map[string]int{},
	}
	if len(records) == 0 {
		return s
	}

	var totalFirst, totalDur int64
	var firstCount, completed int
	modelFreq := map[string]int{}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekAgo := now.AddDate(0, 0, -7)

	for _, r := range records {
		s.OutcomeBreakdown[r.Outcome]++
		if r.Outcome == string(ai.Completed) {
			completed++
		}
		if r.Trip != "" {
			s.TripBreakdown[r.Trip]++
		}
		if r.Subcommand != "" {
			s.SubcmdBreakdown[r.Subcommand]++
		}
		// Sessions that never produced a delta have no first-delta latency.
		if r.Deltas > 0 {
			totalFirst += r.FirstDeltaMs
			firstCount++
		}
		totalDur += r.DurationMs
		s.TotalChars += r.Chars
		if r.Model != "" {
			modelFreq[r.Provider+"/"+r.Model]++
		}
		if !r.Timestamp.Before(today) {
			s.TodayCount++
		}
		if r.Timestamp.After(weekAgo) {
			s.ThisWeekCount++
		}
	}

	s.CompletionRate = float64(completed) / float64(len(records)) * 100
	s.AvgDurationMs = totalDur / int64(len(records))
	if firstCount > 0 {
		s.AvgFirstDeltaMs = totalFirst / int64(firstCount)
	}
	s.TopModels = topN(modelFreq, 5)
	return s
}

func topN(freq map[string]int, n int) []ModelCount {
	all := make([]ModelCount, 0, len(freq))
	for m, count := range freq {
		all = append(all, ModelCount{Model: m, Count: count})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Count != all[j].Count {
			return all[i].Count > all[j].Count
		}
		return all[i].Model < all[j].Model
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}
