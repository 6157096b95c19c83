package session

// VerdictKind is the outcome of one hidden-surface report.
type VerdictKind string

const (
	VerdictIgnored VerdictKind = "ignored"
	VerdictWarned  VerdictKind = "warned"
	VerdictForced  VerdictKind = "forced"
)

// Verdict describes how a hidden-surface report was counted.
type Verdict struct {
	Kind      VerdictKind `json:"kind"`
	Count     int         `json:"count"`
	Remaining int         `json:"remaining"`
}

// IntegrityMonitor counts the times the exam surface was hidden after the
// full-screen gate was first passed. It is not safe for concurrent use; the
// owning session serializes access.
type IntegrityMonitor struct {
	threshold  int
	count      int
	armed      bool
	fullscreen bool
}

// NewIntegrityMonitor creates a monitor that forces submission on the
// threshold-th violation. A non-zero seeded count restores a prior load and
// arms the monitor immediately.
func NewIntegrityMonitor(threshold, seeded int) *IntegrityMonitor {
	if threshold < 1 {
		threshold = 1
	}
	if seeded < 0 {
		seeded = 0
	}
	return &IntegrityMonitor{
		threshold: threshold,
		count:     seeded,
		armed:     seeded > 0,
	}
}

// SetFullscreen records the full-screen state. The first engage arms the monitor.
func (m *IntegrityMonitor) SetFullscreen(on bool) {
	m.fullscreen = on
	if on {
		m.armed = true
	}
}

func (m *IntegrityMonitor) Fullscreen() bool { return m.fullscreen }

func (m *IntegrityMonitor) Armed() bool { return m.armed }

func (m *IntegrityMonitor) Count() int { return m.count }

// Remaining is the number of violations left before a forced submission.
func (m *IntegrityMonitor) Remaining() int {
	if m.count >= m.threshold {
		return 0
	}
	return m.threshold - m.count
}

// Exhausted reports whether the threshold has been reached.
func (m *IntegrityMonitor) Exhausted() bool { return m.count >= m.threshold }

// Hidden counts one hidden-surface event. Once exhausted, every further event
// yields VerdictForced again so a failed forced submission is retried.
func (m *IntegrityMonitor) Hidden() Verdict {
	if !m.armed {
		return Verdict{Kind: VerdictIgnored, Count: m.count, Remaining: m.Remaining()}
	}
	if m.count < m.threshold {
		m.count++
	}
	v := Verdict{Kind: VerdictWarned, Count: m.count, Remaining: m.Remaining()}
	if m.Exhausted() {
		v.Kind = VerdictForced
	}
	return v
}
