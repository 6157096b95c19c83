package session

import "testing"

func TestIntegrityMonitor(t *testing.T) {
	tests := []struct {
		name       string
		seeded     int
		fullscreen bool
		reports    int
		want       []VerdictKind
	}{
		{"ignored before first full screen", 0, false, 2, []VerdictKind{VerdictIgnored, VerdictIgnored}},
		{"warns then forces", 0, true, 4, []VerdictKind{VerdictWarned, VerdictWarned, VerdictForced, VerdictForced}},
		{"seeded count arms without full screen", 2, false, 1, []VerdictKind{VerdictForced}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewIntegrityMonitor(3, tt.seeded)
			m.SetFullscreen(tt.fullscreen)

			for i := 0; i < tt.reports; i++ {
				if got := m.Hidden(); got.Kind != tt.want[i] {
					t.Fatalf("report %d: got %s, want %s", i+1, got.Kind, tt.want[i])
				}
			}
		})
	}
}

func TestIntegrityMonitorStaysArmedAfterLeavingFullscreen(t *testing.T) {
	m := NewIntegrityMonitor(3, 0)
	m.SetFullscreen(true)
	m.SetFullscreen(false)

	v := m.Hidden()
	if v.Kind != VerdictWarned || v.Count != 1 || v.Remaining != 2 {
		t.Fatalf("got %+v, want first warning with 2 left", v)
	}
}
