package stats

import (
	"testing"
	"time"

	"github.com/baldionna/baldi/internal/ai"
)

func setupTestDir(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
}

func rec(outcome ai.OutcomeKind, firstMs, durMs int64, deltas int) Record {
	return Record{
		Provider:     "openrouter",
		Model:        "deepseek/deepseek-chat",
		Outcome:      string(outcome),
		FirstDeltaMs: firstMs,
		DurationMs:   durMs,
		Deltas:       deltas,
		Subcommand:   "ask",
	}
}

func TestSaveAndLoadAll(t *testing.T) {
	setupTestDir(t)

	err := Save(rec(ai.Completed, 300, 1200, 42))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	records, err := LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Deltas != 42 || records[0].Outcome != "completed" {
		t.Errorf("unexpected record: %+v", records[0])
	}
	if records[0].Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestFromOutcome(t *testing.T) {
	out := ai.Outcome{
		Kind:       ai.TruncatedByGuard,
		Trip:       ai.TripLocalRepetition,
		Text:       "ñandú" + ai.TripLocalRepetition.Marker(),
		Marker:     ai.TripLocalRepetition.Marker(),
		Deltas:     3,
		FirstDelta: 250 * time.Millisecond,
		Duration:   2 * time.Second,
	}
	r := FromOutcome(out)
	if r.Outcome != "truncated" || r.Trip != "local_repetition" {
		t.Errorf("unexpected outcome fields: %+v", r)
	}
	if r.FirstDeltaMs != 250 || r.DurationMs != 2000 {
		t.Errorf("unexpected timings: %+v", r)
	}
	if r.Chars != 5 {
		t.Errorf("expected 5 chars without the marker, got %d", r.Chars)
	}
}

func TestSummarize_Empty(t *testing.T) {
	setupTestDir(t)

	s, err := Summarize()
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if s.TotalSessions != 0 {
		t.Errorf("expected 0 sessions, got %d", s.TotalSessions)
	}
	if s.OutcomeBreakdown == nil {
		t.Error("expected initialized breakdown map")
	}
}

func TestSummarize_WithData(t *testing.T) {
	setupTestDir(t)

	Save(rec(ai.Completed, 200, 1000, 10))
	Save(rec(ai.Completed, 400, 3000, 20))
	tr := rec(ai.TruncatedByGuard, 300, 2000, 5)
	tr.Trip = string(ai.TripWordFrequency)
	tr.Subcommand = "chat"
	Save(tr)
	// Failed before any delta: excluded from the first-delta average.
	Save(rec(ai.Failed, 0, 2000, 0))

	s, err := Summarize()
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if s.TotalSessions != 4 {
		t.Errorf("expected 4 sessions, got %d", s.TotalSessions)
	}
	if s.CompletionRate != 50 {
		t.Errorf("expected 50%% completion rate, got %.0f%%", s.CompletionRate)
	}
	if s.OutcomeBreakdown["completed"] != 2 || s.OutcomeBreakdown["truncated"] != 1 || s.OutcomeBreakdown["failed"] != 1 {
		t.Errorf("unexpected outcome breakdown: %v", s.OutcomeBreakdown)
	}
	if s.TripBreakdown["word_frequency"] != 1 {
		t.Errorf("unexpected trip breakdown: %v", s.TripBreakdown)
	}
	if s.SubcmdBreakdown["ask"] != 3 || s.SubcmdBreakdown["chat"] != 1 {
		t.Errorf("unexpected subcommand breakdown: %v", s.SubcmdBreakdown)
	}
	if s.AvgFirstDeltaMs != 300 {
		t.Errorf("expected avg first delta 300ms, got %d", s.AvgFirstDeltaMs)
	}
	if s.AvgDurationMs != 2000 {
		t.Errorf("expected avg duration 2000ms, got %d", s.AvgDurationMs)
	}
	if len(s.TopModels) != 1 || s.TopModels[0].Model != "openrouter/deepseek/deepseek-chat" || s.TopModels[0].Count != 4 {
		t.Errorf("unexpected top models: %+v", s.TopModels)
	}
	if s.TodayCount != 4 || s.ThisWeekCount != 4 {
		t.Errorf("expected 4 today and this week, got %d/%d", s.TodayCount, s.ThisWeekCount)
	}
}

func TestSummarize_Windows(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	records := []Record{
		{Outcome: "completed", Timestamp: now.Add(-time.Hour)},
		{Outcome: "completed", Timestamp: now.Add(-20 * time.Hour)},
		{Outcome: "completed", Timestamp: now.AddDate(0, 0, -3)},
		{Outcome: "completed", Timestamp: now.AddDate(0, 0, -30)},
	}
	s := summarize(records, now)
	if s.TodayCount != 1 {
		t.Errorf("expected 1 today, got %d", s.TodayCount)
	}
	if s.ThisWeekCount != 3 {
		t.Errorf("expected 3 this week, got %d", s.ThisWeekCount)
	}
}

func TestLoadAll_NoFile(t *testing.T) {
	setupTestDir(t)

	records, err := LoadAll()
	if err != nil {
		t.Fatalf("LoadAll on missing file should not error: %v", err)
	}
	if records != nil {
		t.Errorf("expected nil records, got %v", records)
	}
}

func TestSave_CapsAt1000(t *testing.T) {
	setupTestDir(t)

	for i := 0; i < 1010; i++ {
		Save(rec(ai.Completed, 1, 1, 1))
	}

	records, _ := LoadAll()
	if len(records) > 1000 {
		t.Errorf("expected at most 1000 records, got %d", len(records))
	}
}

func TestTopN_Order(t *testing.T) {
	freq := map[string]int{"a": 1, "b": 5, "c": 3, "d": 3, "e": 2, "f": 9}
	result := topN(freq, 5)
	if len(result) != 5 {
		t.Fatalf("expected 5 results, got %d", len(result))
	}
	want := []string{"f", "b", "c", "d", "e"}
	for i, w := range want {
		if result[i].Model != w {
			t.Errorf("position %d: expected %q, got %q", i, w, result[i].Model)
		}
	}
}

func TestTopN_Empty(t *testing.T) {
	result := topN(map[string]int{}, 5)
	if len(result) != 0 {
		t.Errorf("expected 0 results for empty map, got %d", len(result))
	}
}
