package logger

import (
	"strconv"
	"strings"
	"sync"
)

// maxSampledEvents bounds the number of event names with their own counter;
// names beyond it share one.
const maxSampledEvents = 256

// eventSampler lets num out of every den calls through, counted per event
// name so a chatty event does not use up the budget of a rare one. A zero
// ratio lets everything through.
type eventSampler struct {
	mu       sync.Mutex
	num, den int
	seen     map[string]int
}

func newEventSampler(num, den int) *eventSampler {
	s := &eventSampler{}
	s.Set(num, den)
	return s
}

// Set changes the ratio and restarts every counter.
func (s *eventSampler) Set(num, den int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if num <= 0 || den <= 0 {
		num, den = 0, 0
	}
	s.num, s.den = min(num, den), den
	s.seen = make(map[string]int)
}

// Allow reports whether this occurrence of event should be logged.
func (s *eventSampler) Allow(event string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.den == 0 {
		return true
	}
	if _, ok := s.seen[event]; !ok && len(s.seen) >= maxSampledEvents {
		event = ""
	}
	n := s.seen[event]%s.den + 1
	s.seen[event] = n
	return n <= s.num
}

// parseRatioSpec reads "N/D" or "D" (meaning 1/D). Anything else, and
// non-positive values, yield 0/0.
func parseRatioSpec(spec string) (int, int) {
	spec = strings.TrimSpace(spec)
	if a, b, ok := strings.Cut(spec, "/"); ok {
		num, err1 := strconv.Atoi(strings.TrimSpace(a))
		den, err2 := strconv.Atoi(strings.TrimSpace(b))
		if err1 != nil || err2 != nil {
			return 0, 0
		}
		return num, den
	}
	if v, err := strconv.Atoi(spec); err == nil && v > 0 {
		return 1, v
	}
	return 0, 0
}
