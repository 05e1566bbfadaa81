package logger

import (
	"testing"
	"time"
)

func TestIDPreview(t *testing.T) {
	attr := IDPreview("failed_ids", []int64{7, 9, 12, 40, 41}, 3)
	if attr.Key != "failed_ids" || attr.Value.String() != "7, 9, 12 (+2 more)" {
		t.Fatalf("unexpected preview %s=%q", attr.Key, attr.Value.String())
	}
	if got := IDPreview("ids", nil, 3).Value.String(); got != "" {
		t.Fatalf("empty list must render empty, got %q", got)
	}
}

func TestSummarizeStrings(t *testing.T) {
	got, truncated := SummarizeStrings([]string{"0001_init.sql", "0002_voices.sql"}, 1)
	if got != "0001_init.sql" || !truncated {
		t.Fatalf("unexpected summary %q %v", got, truncated)
	}
	if _, truncated := SummarizeStrings([]string{"a"}, -1); !truncated {
		t.Fatalf("negative limit shows nothing")
	}
}

func TestRoundMS(t *testing.T) {
	if RoundMS(-time.Second) != 0 {
		t.Fatalf("negative durations must clamp to zero")
	}
	if RoundMS(1499*time.Microsecond) != time.Millisecond {
		t.Fatalf("expected rounding to 1ms")
	}
}
