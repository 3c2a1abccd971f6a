package core

import (
	"testing"
	"time"
)

func historyRecord(name string) TaskExecutionRecord {
	now := time.Now()
	return TaskExecutionRecord{
		Name:       name,
		QueueName:  "history-test",
		QueueType:  "serial",
		StartedAt:  now,
		FinishedAt: now,
	}
}

// TestExecutionHistory_RingWraps verifies the fixed-capacity ring
// Given: A history of capacity 3
// When: Five records are added
// Then: Only the newest three remain, newest-first
func TestExecutionHistory_RingWraps(t *testing.T) {
	h := newExecutionHistory(3)

	for _, name := range []string{"a", "b", "c", "d", "e"} {
		h.Add(historyRecord(name))
	}

	recent := h.Recent(10)
	if len(recent) != 3 {
		t.Fatalf("len(Recent) = %d, want 3", len(recent))
	}

	want := []string{"e", "d", "c"}
	for i, rec := range recent {
		if rec.Name != want[i] {
			t.Errorf("Recent[%d].Name = %q, want %q", i, rec.Name, want[i])
		}
	}
}

// TestExecutionHistory_Limit verifies the Recent limit parameter
// Given: A history holding three records
// When: Recent is called with limit 2
// Then: Only the two newest are returned
func TestExecutionHistory_Limit(t *testing.T) {
	h := newExecutionHistory(5)
	for _, name := range []string{"a", "b", "c"} {
		h.Add(historyRecord(name))
	}

	recent := h.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("len(Recent(2)) = %d, want 2", len(recent))
	}
	if recent[0].Name != "c" || recent[1].Name != "b" {
		t.Errorf("Recent(2) = [%q %q], want [c b]", recent[0].Name, recent[1].Name)
	}
}

// TestExecutionHistory_Last verifies the Last accessor
// Given: An empty history, then one record
// When: Last is called before and after the add
// Then: It reports absence, then the record
func TestExecutionHistory_Last(t *testing.T) {
	h := newExecutionHistory(2)

	if _, ok := h.Last(); ok {
		t.Error("Last() on empty history = true, want false")
	}

	h.Add(historyRecord("only"))
	last, ok := h.Last()
	if !ok {
		t.Fatal("Last() after add = false, want true")
	}
	if last.Name != "only" {
		t.Errorf("Last().Name = %q, want only", last.Name)
	}
}

// TestExecutionHistory_InvalidCapacityFallsBack verifies capacity defaults
// Given: A requested capacity of 0
// When: The history is created
// Then: It uses the default capacity and accepts records
func TestExecutionHistory_InvalidCapacityFallsBack(t *testing.T) {
	h := newExecutionHistory(0)
	h.Add(historyRecord("x"))

	if _, ok := h.Last(); !ok {
		t.Error("history with fallback capacity dropped the record")
	}
}
