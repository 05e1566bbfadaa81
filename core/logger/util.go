package logger

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// RoundMS rounds d to whole milliseconds; negative durations become zero.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// Took is RoundMS(time.Since(start)).
func Took(start time.Time) time.Duration {
	return RoundMS(time.Since(start))
}

// SummarizeStrings joins up to limit values and reports whether any were left out.
func SummarizeStrings(values []string, limit int) (string, bool) {
	shown, rest := head(values, limit)
	return strings.Join(shown, ", "), rest > 0
}

// IDPreview lists up to limit user ids under key, for example "7, 9, 12 (+40 more)".
func IDPreview(key string, ids []int64, limit int) slog.Attr {
	shown, rest := head(ids, limit)
	parts := make([]string, 0, len(shown))
	for _, id := range shown {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	out := strings.Join(parts, ", ")
	if rest > 0 {
		out += fmt.Sprintf(" (+%d more)", rest)
	}
	return slog.String(key, out)
}

func head[T any](values []T, limit int) ([]T, int) {
	limit = max(limit, 0)
	if len(values) <= limit {
		return values, 0
	}
	return values[:limit], len(values) - limit
}
