package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/voicepal/voicepal/internal/playback"
	"github.com/voicepal/voicepal/internal/session"
	"github.com/voicepal/voicepal/internal/speech"
)

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	mm, ok := next.(model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return mm
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelTracksSessions(t *testing.T) {
	m := newModel(Config{Listen: "127.0.0.1:8765", Backend: "elevenlabs"})
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})

	if view := m.View(); !strings.Contains(view, "waiting for a page") {
		t.Errorf("expected waiting message, got:\n%s", view)
	}

	m = update(t, m, StatusMsg{
		SessionID: "abcdef0123456789",
		State:     playback.Speaking,
		Backend:   speech.ElevenLabs,
		Rate:      1.5,
		Queue:     2,
		Current:   "hello there",
	})
	m = update(t, m, StatusMsg{})

	if len(m.sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(m.sessions))
	}
	view := m.View()
	for _, want := range []string{"abcdef01", "1.50x", "+2 queued", "hello there", "1 session(s)"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestModelNotices(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := newModel(Config{})
	m.now = func() time.Time { return now }

	for i := 0; i < maxNotices+2; i++ {
		m = update(t, m, NoticeMsg{Message: "notice", At: now.Add(-time.Duration(i) * 3 * time.Second)})
	}
	if len(m.notices) != maxNotices {
		t.Fatalf("expected %d notices, got %d", maxNotices, len(m.notices))
	}

	m = update(t, m, noticeTickMsg(now))
	for _, n := range m.notices {
		if now.Sub(n.At) >= noticeTimeout {
			t.Errorf("notice from %v should have expired", n.At)
		}
	}

	m = update(t, m, key("x"))
	if len(m.notices) != 0 {
		t.Errorf("expected notices cleared, got %d", len(m.notices))
	}
}

func TestModelCopy(t *testing.T) {
	tests := []struct {
		name    string
		status  *StatusMsg
		copyErr error
		want    string
		copied  string
	}{
		{name: "nothing", want: "Nothing to copy"},
		{
			name:   "current",
			status: &StatusMsg{SessionID: "a", State: playback.Speaking, Current: "now", Last: "before"},
			want:   "Copied last caption",
			copied: "now",
		},
		{
			name:   "last",
			status: &StatusMsg{SessionID: "a", State: playback.Idle, Last: "before"},
			want:   "Copied last caption",
			copied: "before",
		},
		{
			name:    "failure",
			status:  &StatusMsg{SessionID: "a", Last: "before"},
			copyErr: errors.New("no clipboard"),
			want:    "Copy failed",
			copied:  "before",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var copied string
			m := newModel(Config{})
			m.copy = func(s string) error {
				copied = s
				return tt.copyErr
			}
			if tt.status != nil {
				m = update(t, m, *tt.status)
			}

			next, cmd := m.Update(key("c"))
			m = next.(model)
			if cmd == nil {
				t.Error("expected a timeout command")
			}
			if m.statusMessage != tt.want {
				t.Errorf("status message = %q, want %q", m.statusMessage, tt.want)
			}
			if copied != tt.copied {
				t.Errorf("copied %q, want %q", copied, tt.copied)
			}

			m = update(t, m, statusMessageTimeoutMsg{})
			if m.statusMessage != "" {
				t.Errorf("status message not cleared: %q", m.statusMessage)
			}
		})
	}
}

func TestModelQuit(t *testing.T) {
	m := newModel(Config{})
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestCompactStatus(t *testing.T) {
	st := session.Status{
		SessionID: "0123456789",
		State:     playback.Idle,
		Backend:   speech.Browser,
		Rate:      0,
		Current:   strings.Repeat("word ", 40),
	}

	line := CompactStatus(st, 30)
	if w := len([]rune(stripANSI(line))); w > 30 {
		t.Errorf("line width %d exceeds 30: %q", w, line)
	}
	if !strings.Contains(line, "…") {
		t.Errorf("expected truncation tail in %q", line)
	}

	full := CompactStatus(st, 0)
	for _, want := range []string{"01234567", "browser", " - "} {
		if !strings.Contains(full, want) {
			t.Errorf("status missing %q: %q", want, full)
		}
	}
}

func TestDetailedStatus(t *testing.T) {
	st := session.Status{
		SessionID: "s",
		Backend:   speech.Custom,
		Rate:      1.25,
		Last:      "said\nbefore",
		Stats:     playback.Stats{Completed: 1234, Failed: 1},
	}
	out := DetailedStatus(st, 0)
	for _, want := range []string{"1.25x", "“said before”", "1,234 spoken", "1 failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("detailed status missing %q:\n%s", want, out)
		}
	}
}

func TestMonitorBuffersWithoutBlocking(t *testing.T) {
	m := NewMonitor()
	for i := 0; i < monitorBuffer+10; i++ {
		m.Status(session.Status{SessionID: "x"})
	}
	m.Notice("dropped")

	if got := len(m.ch); got != monitorBuffer {
		t.Fatalf("buffered %d events, want %d", got, monitorBuffer)
	}
	first := <-m.ch
	if st, ok := first.(StatusMsg); !ok || st.SessionID != "x" {
		t.Errorf("unexpected first event %#v", first)
	}
}

func stripANSI(s string) string {
	var b strings.Builder
	inEsc := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEsc = true
		case inEsc:
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEsc = false
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
