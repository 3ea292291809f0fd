package proctor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureRecorder struct {
	mu         sync.Mutex
	violations []Violation
}

func (r *captureRecorder) Record(v Violation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.violations = append(r.violations, v)
}

func (r *captureRecorder) ofType(vtype string) []Violation {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Violation
	for _, v := range r.violations {
		if v.Type == vtype {
			out = append(out, v)
		}
	}
	return out
}

type captureSubmitter struct {
	mu      sync.Mutex
	reasons []string
}

func (s *captureSubmitter) ForceSubmit(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reasons = append(s.reasons, reason)
}

func (s *captureSubmitter) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.reasons...)
}

func newTestMonitor(remaining func(time.Time) time.Duration) (*Monitor, *captureRecorder, *captureSubmitter, time.Time) {
	recorder := &captureRecorder{}
	submitter := &captureSubmitter{}
	m := NewMonitor(DefaultConfig(), remaining, recorder, submitter)
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	m.Start(start)
	return m, recorder, submitter, start
}

func TestBlurThresholdTerminatesExactlyOnce(t *testing.T) {
	m, recorder, submitter, start := newTestMonitor(nil)

	// 5 blurs spaced beyond the debounce window.
	at := start
	for i := 0; i < 5; i++ {
		m.ObserveBlur(at)
		at = at.Add(time.Second)
	}
	m.Flush(at)

	assert.Equal(t, StateTerminated, m.State())
	tab, _ := m.Counters()
	assert.Equal(t, 5, tab)
	require.Len(t, submitter.calls(), 1)
	assert.Equal(t, "Too many tab switches/window blurs", submitter.calls()[0])
	assert.Len(t, recorder.ofType(ViolationTermination), 1)

	// A 6th event after termination has no observable effect.
	m.ObserveBlur(at.Add(time.Second))
	m.Flush(at.Add(5 * time.Second))
	m.ObserveVisibilityHidden(at.Add(6 * time.Second))

	assert.Len(t, submitter.calls(), 1, "no duplicate submission call")
	tab, _ = m.Counters()
	assert.Equal(t, 5, tab)
}

func TestBlurDebounceCancelledByQuickFocus(t *testing.T) {
	m, recorder, _, start := newTestMonitor(nil)

	m.ObserveBlur(start)
	m.ObserveFocus(start.Add(200 * time.Millisecond)) // inside the 500ms window

	m.Flush(start.Add(time.Second))
	tab, _ := m.Counters()
	assert.Equal(t, 0, tab, "transient focus loss must not count")
	assert.Empty(t, recorder.ofType(ViolationWindowBlur))
}

func TestVisibilityHiddenCountsImmediately(t *testing.T) {
	m, recorder, _, start := newTestMonitor(nil)

	m.ObserveVisibilityHidden(start)

	tab, _ := m.Counters()
	assert.Equal(t, 1, tab)
	assert.Len(t, recorder.ofType(ViolationTabHidden), 1)
}

func TestCopyPasteCountersAreIndependent(t *testing.T) {
	m, _, submitter, start := newTestMonitor(nil)

	at := start
	for i := 0; i < 4; i++ {
		assert.True(t, m.ObserveCopy(at))
		at = at.Add(time.Second)
	}
	m.ObserveVisibilityHidden(at)

	tab, copies := m.Counters()
	assert.Equal(t, 1, tab)
	assert.Equal(t, 4, copies)
	assert.Empty(t, submitter.calls(), "neither counter crossed the threshold")

	// The 5th copy violation crosses its own threshold.
	assert.True(t, m.ObservePaste(at.Add(time.Second)))
	assert.Equal(t, StateTerminated, m.State())
	require.Len(t, submitter.calls(), 1)
	assert.Equal(t, "Excessive paste attempts", submitter.calls()[0])
}

func TestForbiddenKeys(t *testing.T) {
	m, recorder, _, start := newTestMonitor(nil)

	assert.True(t, m.ObserveKey("c", true, start))
	assert.True(t, m.ObserveKey("p", true, start.Add(time.Second)))
	assert.True(t, m.ObserveKey("F5", false, start.Add(2*time.Second)))
	assert.False(t, m.ObserveKey("a", true, start.Add(3*time.Second)))
	assert.False(t, m.ObserveKey("c", false, start.Add(4*time.Second)), "plain c is not a shortcut")

	_, copies := m.Counters()
	assert.Equal(t, 1, copies, "only copy/paste shortcuts count as copy violations")
	assert.Len(t, recorder.ofType(ViolationForbiddenKey), 3)
}

func TestContextMenuPreventedButNeverCounted(t *testing.T) {
	m, recorder, _, start := newTestMonitor(nil)

	assert.True(t, m.ObserveContextMenu(start))

	tab, copies := m.Counters()
	assert.Zero(t, tab)
	assert.Zero(t, copies)
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	assert.Empty(t, recorder.violations)
}

func TestAnswerSpeedClassification(t *testing.T) {
	tests := []struct {
		name      string
		remaining time.Duration
		want      string
	}{
		{"main phase flags suspicious speed", 300 * time.Second, ViolationSuspiciousSpeed},
		{"deadline rush is classified as panic", 60 * time.Second, ViolationPanicRush},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, recorder, _, start := newTestMonitor(func(time.Time) time.Duration { return tt.remaining })

			m.QuestionShown(start)
			m.ObserveAnswer(1, start.Add(2*time.Second))

			assert.Len(t, recorder.ofType(tt.want), 1)
			other := ViolationPanicRush
			if tt.want == ViolationPanicRush {
				other = ViolationSuspiciousSpeed
			}
			assert.Empty(t, recorder.ofType(other))
		})
	}
}

func TestAnswerSpeedIgnoredWhenTimeExpired(t *testing.T) {
	m, recorder, _, start := newTestMonitor(func(time.Time) time.Duration { return 0 })

	m.QuestionShown(start)
	m.ObserveAnswer(1, start.Add(time.Second))

	assert.Empty(t, recorder.ofType(ViolationSuspiciousSpeed))
	assert.Empty(t, recorder.ofType(ViolationPanicRush))
}

func TestSlowAnswerNotFlagged(t *testing.T) {
	m, recorder, _, start := newTestMonitor(func(time.Time) time.Duration { return 300 * time.Second })

	m.QuestionShown(start)
	m.ObserveAnswer(1, start.Add(10*time.Second))

	assert.Empty(t, recorder.ofType(ViolationSuspiciousSpeed))
}

func TestRapidStreakResetsWindow(t *testing.T) {
	m, recorder, _, start := newTestMonitor(nil)

	// 4 answers inside a 5-second window: exactly one streak.
	for i := 0; i < 4; i++ {
		m.ObserveAnswer(uint(i+1), start.Add(time.Duration(i)*time.Second))
	}
	require.Len(t, recorder.ofType(ViolationRapidStreak), 1)

	// The window reset: a 5th rapid answer does not immediately re-trigger.
	m.ObserveAnswer(5, start.Add(4*time.Second))
	assert.Len(t, recorder.ofType(ViolationRapidStreak), 1)
}

func TestEventsBeforeStartAreNoOps(t *testing.T) {
	recorder := &captureRecorder{}
	submitter := &captureSubmitter{}
	m := NewMonitor(DefaultConfig(), nil, recorder, submitter)
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	m.ObserveBlur(now)
	m.ObserveVisibilityHidden(now.Add(time.Second))
	assert.True(t, m.ObserveCopy(now.Add(2*time.Second)), "clipboard is still prevented pre-start")
	m.Flush(now.Add(5 * time.Second))

	assert.Equal(t, StateNotStarted, m.State())
	tab, copies := m.Counters()
	assert.Zero(t, tab)
	assert.Zero(t, copies)
	assert.Empty(t, submitter.calls())
}

func TestNormalSubmitLatches(t *testing.T) {
	m, _, submitter, start := newTestMonitor(nil)

	m.NormalSubmit(start.Add(time.Minute))
	assert.Equal(t, StateSubmitted, m.State())

	// Violations after a normal submission no longer count or terminate.
	at := start.Add(2 * time.Minute)
	for i := 0; i < 6; i++ {
		m.ObserveVisibilityHidden(at)
		at = at.Add(time.Second)
	}
	tab, _ := m.Counters()
	assert.Zero(t, tab)
	assert.Empty(t, submitter.calls())
}
