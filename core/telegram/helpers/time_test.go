package helpers

import (
	"testing"
	"time"
)

func TestPrettyDate(t *testing.T) {
	if got := PrettyDate(nil); got != "N/A" {
		t.Fatalf("nil date: got %q", got)
	}
	ts := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	if got := PrettyDate(&ts); got != "Tuesday, 05 Mar 2024" {
		t.Fatalf("unexpected format: %q", got)
	}
}
