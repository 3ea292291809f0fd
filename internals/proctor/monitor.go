// Package proctor implements the exam-session integrity monitor: an
// event-driven state machine that classifies and counts violations during a
// timed attempt and can unilaterally force submission. Every observation
// carries its own timestamp, so the machine is unit-testable without a
// rendering environment or a real clock.
package proctor

import (
	"fmt"
	"sync"
	"time"
)

// Violation type tags, matched by the integrity log table.
const (
	ViolationWindowBlur      = "window_blur"
	ViolationTabHidden       = "tab_hidden"
	ViolationForbiddenCopy   = "forbidden_copy"
	ViolationForbiddenPaste  = "forbidden_paste"
	ViolationForbiddenKey    = "forbidden_key_press"
	ViolationSuspiciousSpeed = "suspicious_answering_speed"
	ViolationPanicRush       = "exam_panic_rush"
	ViolationRapidStreak     = "rapid_answering_streak"
	ViolationTermination     = "automatic_termination"
)

// State is the monitor lifecycle. Active self-loops on every event that does
// not cross a violation threshold; any crossing is a one-way edge to
// Terminated.
type State int

const (
	StateNotStarted State = iota
	StateActive
	StateTerminated
	StateSubmitted
)

// Violation is one detected integrity signal. Records are fire-and-forget:
// the recorder must never block the event path.
type Violation struct {
	Type     string
	At       time.Time
	Metadata map[string]interface{}
}

// Recorder receives violations as they are detected.
type Recorder interface {
	Record(v Violation)
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(v Violation)

func (f RecorderFunc) Record(v Violation) { f(v) }

// Submitter receives the single forced-submission call on termination.
type Submitter interface {
	ForceSubmit(reason string)
}

// SubmitterFunc adapts a function to the Submitter interface.
type SubmitterFunc func(reason string)

func (f SubmitterFunc) ForceSubmit(reason string) { f(reason) }

// Config holds the proctoring policy constants.
type Config struct {
	// BlurDebounce coalesces transient focus loss; a blur only counts if no
	// focus returns within this window.
	BlurDebounce time.Duration
	// ViolationLimit is the per-counter threshold that triggers termination.
	ViolationLimit int
	// FastAnswer is the elapsed time below which an answer is flagged.
	FastAnswer time.Duration
	// PanicWindow splits fast answers into suspicious (more time remaining)
	// and panic rush (deadline close, expected behavior).
	PanicWindow time.Duration
	// StreakWindow and StreakSize define the rapid-answering detector: a
	// streak fires when StreakSize answers land within StreakWindow.
	StreakWindow time.Duration
	StreakSize   int
}

func DefaultConfig() Config {
	return Config{
		BlurDebounce:   500 * time.Millisecond,
		ViolationLimit: 5,
		FastAnswer:     3 * time.Second,
		PanicWindow:    120 * time.Second,
		StreakWindow:   5 * time.Second,
		StreakSize:     4,
	}
}

// Monitor owns the violation counters and the termination latch for one
// attempt. It is safe for concurrent use.
type Monitor struct {
	mu        sync.Mutex
	cfg       Config
	recorder  Recorder
	submitter Submitter
	// remaining reports exam time left at a given instant; nil disables the
	// answer-speed classification.
	remaining func(now time.Time) time.Duration

	state           State
	tabViolations   int
	copyViolations  int
	pendingBlurAt   *time.Time
	questionShownAt time.Time
	answerTimes     []time.Time
}

func NewMonitor(cfg Config, remaining func(now time.Time) time.Duration, recorder Recorder, submitter Submitter) *Monitor {
	if recorder == nil {
		recorder = RecorderFunc(func(Violation) {})
	}
	if submitter == nil {
		submitter = SubmitterFunc(func(string) {})
	}
	return &Monitor{
		cfg:       cfg,
		recorder:  recorder,
		submitter: submitter,
		remaining: remaining,
	}
}

// Start acknowledges the disclaimer and arms the monitor. Before Start every
// observation is a no-op.
func (m *Monitor) Start(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateNotStarted {
		return
	}
	m.state = StateActive
	m.questionShownAt = now
}

// State returns the current lifecycle state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Counters returns the independent tab and copy violation counters.
func (m *Monitor) Counters() (tab, copies int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tabViolations, m.copyViolations
}

// ObserveBlur notes a window blur. The blur is pending until the debounce
// window elapses without a focus event; only then does it count.
func (m *Monitor) ObserveBlur(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolvePendingBlur(now)
	if m.state != StateActive {
		return
	}
	t := now
	m.pendingBlurAt = &t
}

// ObserveFocus cancels a pending blur if focus returned inside the debounce
// window; a later focus confirms the blur instead.
func (m *Monitor) ObserveFocus(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pendingBlurAt != nil && m.state == StateActive {
		if now.Sub(*m.pendingBlurAt) >= m.cfg.BlurDebounce {
			m.confirmBlur(*m.pendingBlurAt)
		}
	}
	m.pendingBlurAt = nil
}

// ObserveVisibilityHidden notes a tab or app switch. Not debounced; the
// platform already coalesces visibility changes.
func (m *Monitor) ObserveVisibilityHidden(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolvePendingBlur(now)
	if m.state != StateActive {
		return
	}
	m.record(ViolationTabHidden, now, map[string]interface{}{"timestamp": now.Format(time.RFC3339)})
	m.bumpTab(now, "Excessive tab switching detected")
}

// ObserveCopy intercepts a copy. The action is always prevented; it only
// counts while the monitor is active.
func (m *Monitor) ObserveCopy(now time.Time) (prevented bool) {
	return m.observeClipboard(ViolationForbiddenCopy, "Excessive copy attempts", now)
}

// ObservePaste intercepts a paste; same policy as ObserveCopy.
func (m *Monitor) ObservePaste(now time.Time) (prevented bool) {
	return m.observeClipboard(ViolationForbiddenPaste, "Excessive paste attempts", now)
}

func (m *Monitor) observeClipboard(vtype, reason string, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolvePendingBlur(now)
	if m.state != StateActive {
		return true
	}
	m.record(vtype, now, map[string]interface{}{"count": m.copyViolations + 1})
	m.bumpCopy(now, reason)
	return true
}

// ObserveKey intercepts a keyboard shortcut. The forbidden set is closed:
// ctrl+c, ctrl+v, ctrl+p, ctrl+r and F5. Copy/paste shortcuts additionally
// count as copy violations. Returns whether the key must be prevented.
func (m *Monitor) ObserveKey(key string, ctrl bool, now time.Time) (prevented bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolvePendingBlur(now)

	forbidden := (ctrl && (key == "c" || key == "v" || key == "p" || key == "r")) || key == "F5"
	if !forbidden {
		return false
	}
	if m.state != StateActive {
		return true
	}
	m.record(ViolationForbiddenKey, now, map[string]interface{}{
		"key":       key,
		"timestamp": now.Format(time.RFC3339),
	})
	if ctrl && (key == "c" || key == "v") {
		m.bumpCopy(now, "Illegal shortcut usage")
	}
	return true
}

// ObserveContextMenu always prevents the context menu. A UX hardening
// measure, never a violation.
func (m *Monitor) ObserveContextMenu(now time.Time) (prevented bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolvePendingBlur(now)
	return true
}

// QuestionShown resets the per-question clock used by the answer-speed
// heuristic.
func (m *Monitor) QuestionShown(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolvePendingBlur(now)
	if m.state != StateActive {
		return
	}
	m.questionShownAt = now
}

// ObserveAnswer applies the answer-speed heuristic and the rapid-streak
// detector to one answer selection.
func (m *Monitor) ObserveAnswer(questionID uint, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolvePendingBlur(now)
	if m.state != StateActive {
		return
	}

	elapsed := now.Sub(m.questionShownAt)
	if elapsed < m.cfg.FastAnswer && m.remaining != nil {
		left := m.remaining(now)
		meta := map[string]interface{}{
			"question_id":      questionID,
			"duration_seconds": fmt.Sprintf("%.2f", elapsed.Seconds()),
		}
		// The same raw signal classifies differently near the deadline:
		// fast answering with the clock running out is expected, not cheating.
		if left > m.cfg.PanicWindow {
			meta["phase"] = "main_phase"
			m.record(ViolationSuspiciousSpeed, now, meta)
		} else if left > 0 {
			meta["phase"] = "last_minutes_rush"
			m.record(ViolationPanicRush, now, meta)
		}
	}

	m.answerTimes = append(m.answerTimes, now)
	recent := m.answerTimes[:0]
	for _, t := range m.answerTimes {
		if now.Sub(t) < m.cfg.StreakWindow {
			recent = append(recent, t)
		}
	}
	m.answerTimes = recent
	if len(m.answerTimes) >= m.cfg.StreakSize {
		m.record(ViolationRapidStreak, now, map[string]interface{}{
			"count":     len(m.answerTimes),
			"timestamp": now.Format(time.RFC3339),
		})
		// Each detected streak clears the buffer so the same cluster cannot
		// re-trigger.
		m.answerTimes = nil
	}
}

// Flush resolves a pending blur whose debounce window has elapsed. Call it
// before reading counters when no further events are expected.
func (m *Monitor) Flush(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolvePendingBlur(now)
}

// NormalSubmit latches the monitor after a regular submission. All later
// observations are no-ops.
func (m *Monitor) NormalSubmit(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolvePendingBlur(now)
	if m.state != StateActive {
		return
	}
	m.state = StateSubmitted
	m.pendingBlurAt = nil
	m.answerTimes = nil
}

func (m *Monitor) resolvePendingBlur(now time.Time) {
	if m.pendingBlurAt == nil {
		return
	}
	if m.state != StateActive {
		m.pendingBlurAt = nil
		return
	}
	if now.Sub(*m.pendingBlurAt) >= m.cfg.BlurDebounce {
		m.confirmBlur(*m.pendingBlurAt)
	}
}

func (m *Monitor) confirmBlur(at time.Time) {
	m.pendingBlurAt = nil
	m.record(ViolationWindowBlur, at, map[string]interface{}{"timestamp": at.Format(time.RFC3339)})
	m.bumpTab(at, "Too many tab switches/window blurs")
}

func (m *Monitor) bumpTab(now time.Time, reason string) {
	m.tabViolations++
	if m.tabViolations >= m.cfg.ViolationLimit {
		m.terminate(now, reason)
	}
}

func (m *Monitor) bumpCopy(now time.Time, reason string) {
	m.copyViolations++
	if m.copyViolations >= m.cfg.ViolationLimit {
		m.terminate(now, reason)
	}
}

// terminate is the one-way edge to Terminated. The state check is the latch:
// racing triggers observe the transition under the mutex, so the submitter is
// invoked at most once.
func (m *Monitor) terminate(now time.Time, reason string) {
	if m.state != StateActive {
		return
	}
	m.state = StateTerminated
	m.pendingBlurAt = nil
	m.answerTimes = nil
	m.record(ViolationTermination, now, map[string]interface{}{
		"reason":    reason,
		"timestamp": now.Format(time.RFC3339),
	})
	m.submitter.ForceSubmit(reason)
}

func (m *Monitor) record(vtype string, at time.Time, metadata map[string]interface{}) {
	m.recorder.Record(Violation{Type: vtype, At: at, Metadata: metadata})
}
