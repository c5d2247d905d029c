package monitor

import (
	"testing"
	"time"

	"github.com/rewired-gh/mobatips/internal/models"
)

func TestRateWindow(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	w := newRateWindow(2, time.Hour)

	if !w.TryReserve(t0) || !w.TryReserve(t0.Add(time.Minute)) {
		t.Fatal("first two reservations should succeed")
	}
	if w.TryReserve(t0.Add(2 * time.Minute)) {
		t.Error("third reservation inside the window should fail")
	}
	if w.Available(t0.Add(59 * time.Minute)) {
		t.Error("window should still be full")
	}
	if !w.Available(t0.Add(time.Hour)) {
		t.Error("oldest stamp should have left the window")
	}
	if got := w.Len(t0.Add(time.Hour)); got != 1 {
		t.Errorf("Len = %d, want 1", got)
	}
}

func TestMapRegistry(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	forever := newMapRegistry(0)
	forever.MarkProcessed("lck:a-vs-b:g1", t0)
	if !forever.Contains("lck:a-vs-b:g1", t0.Add(1000*time.Hour)) {
		t.Error("zero ttl should keep entries forever")
	}
	if forever.Prune(t0.Add(1000*time.Hour)) != 0 {
		t.Error("zero ttl should never prune")
	}

	r := newMapRegistry(time.Hour)
	r.MarkProcessed("m", t0)
	if !r.Contains("m", t0.Add(59*time.Minute)) {
		t.Error("entry should be present before ttl")
	}
	if r.Contains("m", t0.Add(time.Hour)) {
		t.Error("entry should be expired at ttl")
	}
	if got := r.Prune(t0.Add(time.Hour)); got != 1 {
		t.Errorf("Prune = %d, want 1", got)
	}

	r.MarkProcessed("x", t0)
	r.MarkProcessed("y", t0)
	if got := r.Clear(); got != 2 || r.Len() != 0 {
		t.Errorf("Clear = %d, Len = %d", got, r.Len())
	}
}

func TestTTLCache(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := newTTLCache[int](time.Minute)

	c.Put("a", 1, t0)
	if v, ok := c.Get("a", t0.Add(30*time.Second)); !ok || v != 1 {
		t.Errorf("Get = %d, %v", v, ok)
	}
	if _, ok := c.Get("a", t0.Add(time.Minute)); ok {
		t.Error("entry should expire at ttl")
	}
	if got := c.Prune(t0.Add(time.Minute)); got != 1 {
		t.Errorf("Prune = %d, want 1", got)
	}

	disabled := newTTLCache[int](0)
	disabled.Put("a", 1, t0)
	if disabled.Len() != 0 {
		t.Error("zero ttl cache should not store")
	}
}

func TestTipTableSorted(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	table := newTipTable()
	table.Put(models.NewGeneratedTip(models.ProfessionalTip{ID: "b"}, models.TelemetrySnapshot{}, t0.Add(time.Minute)))
	table.Put(models.NewGeneratedTip(models.ProfessionalTip{ID: "c"}, models.TelemetrySnapshot{}, t0))
	table.Put(models.NewGeneratedTip(models.ProfessionalTip{ID: "a"}, models.TelemetrySnapshot{}, t0))

	var ids []string
	for _, gt := range table.Sorted() {
		ids = append(ids, gt.Tip.ID)
	}
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "c" || ids[2] != "b" {
		t.Errorf("Sorted order = %v, want [a c b]", ids)
	}

	table.Delete("c")
	if table.Len() != 2 {
		t.Errorf("Len = %d, want 2", table.Len())
	}
}
