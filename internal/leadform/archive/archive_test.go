package archive

import (
	"testing"
	"time"
)

func TestObjectKeySortsChronologically(t *testing.T) {
	base := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	first := ObjectKey(base)
	second := ObjectKey(base.Add(time.Millisecond))
	later := ObjectKey(base.Add(48 * time.Hour))

	if first != "lead-form-config/20260314T092653000000000Z.json" {
		t.Fatalf("unexpected key %q", first)
	}
	if !(first < second && second < later) {
		t.Fatalf("keys do not sort chronologically: %q %q %q", first, second, later)
	}
}

func TestObjectKeyUsesUTC(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	at := time.Date(2026, 3, 14, 6, 0, 0, 0, loc)

	if got := ObjectKey(at); got != "lead-form-config/20260314T090000000000000Z.json" {
		t.Fatalf("expected UTC key, got %q", got)
	}
}

func TestNewestFirstLimits(t *testing.T) {
	snaps := []Snapshot{
		{Key: ObjectKey(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))},
		{Key: ObjectKey(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))},
		{Key: ObjectKey(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))},
	}

	got := newestFirst(snaps, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(got))
	}
	if got[0].Key != ObjectKey(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected newest first, got %q", got[0].Key)
	}
}
