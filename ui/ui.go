// Package ui is the terminal status view for a running bridge.
package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"

	"github.com/voicepal/voicepal/internal/playback"
)

const (
	maxNotices            = 5
	noticeTimeout         = 10 * time.Second
	statusMessageDuration = 2 * time.Second
)

type (
	statusMessageTimeoutMsg struct{}
	noticeTickMsg           time.Time
)

// NewProgram returns a new Tea program.
func NewProgram(cfg Config, monitor *Monitor) *tea.Program {
	log.Debug("Starting voicepal status view", "listen", cfg.Listen)

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(newModel(cfg), opts...)
	if monitor != nil {
		monitor.Attach(p)
	}
	return p
}

type model struct {
	cfg      Config
	spinner  spinner.Model
	width    int
	height   int
	sessions map[string]StatusMsg
	notices  []NoticeMsg
	showHelp bool

	statusMessage string

	now  func() time.Time
	copy func(string) error
}

func newModel(cfg Config) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = currentStyle
	return model{
		cfg:      cfg,
		spinner:  sp,
		sessions: make(map[string]StatusMsg),
		now:      time.Now,
		copy:     clipboard.WriteAll,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, noticeTick())
}

func noticeTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return noticeTickMsg(t) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "?":
			m.showHelp = !m.showHelp
		case "c":
			cmd := m.copyLast()
			return m, cmd
		case "x":
			m.notices = nil
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case StatusMsg:
		if msg.SessionID != "" {
			m.sessions[msg.SessionID] = msg
		}

	case NoticeMsg:
		m.notices = append(m.notices, msg)
		if len(m.notices) > maxNotices {
			m.notices = m.notices[len(m.notices)-maxNotices:]
		}

	case noticeTickMsg:
		m.expireNotices()
		return m, noticeTick()

	case statusMessageTimeoutMsg:
		m.statusMessage = ""

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *model) expireNotices() {
	now := m.now()
	kept := m.notices[:0]
	for _, n := range m.notices {
		if now.Sub(n.At) < noticeTimeout {
			kept = append(kept, n)
		}
	}
	m.notices = kept
}

// lastSpoken returns the most recent utterance of the most recently active
// session, preferring one that is currently speaking.
func (m model) lastSpoken() string {
	for _, st := range m.sortedSessions() {
		if st.Current != "" {
			return st.Current
		}
	}
	for _, st := range m.sortedSessions() {
		if st.Last != "" {
			return st.Last
		}
	}
	return ""
}

func (m *model) copyLast() tea.Cmd {
	text := m.lastSpoken()
	switch {
	case text == "":
		m.statusMessage = "Nothing to copy"
	case m.copy(text) != nil:
		m.statusMessage = "Copy failed"
	default:
		m.statusMessage = "Copied last caption"
	}
	return statusMessageTimeout()
}

func statusMessageTimeout() tea.Cmd {
	return tea.Tick(statusMessageDuration, func(time.Time) tea.Msg {
		return statusMessageTimeoutMsg{}
	})
}

func (m model) sortedSessions() []StatusMsg {
	out := make([]StatusMsg, 0, len(m.sessions))
	for _, st := range m.sessions {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if (out[i].State == playback.Speaking) != (out[j].State == playback.Speaking) {
			return out[i].State == playback.Speaking
		}
		return out[i].SessionID < out[j].SessionID
	})
	return out
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Listening on " + m.cfg.Listen))
	b.WriteString("\n\n")

	sessions := m.sortedSessions()
	if len(sessions) == 0 {
		b.WriteString(dimStyle.Render(m.spinner.View() + " waiting for a page to connect"))
		b.WriteString("\n")
	}
	for _, st := range sessions {
		prefix := "  "
		if st.State == playback.Speaking {
			prefix = m.spinner.View() + " "
		}
		b.WriteString(prefix)
		b.WriteString(DetailedStatus(st.status(), m.contentWidth()))
		b.WriteString("\n")
	}

	if len(m.notices) > 0 {
		b.WriteString("\n")
		for _, n := range m.notices {
			line := fmt.Sprintf("%s %s", n.At.Format("15:04:05"), n.Message)
			if w := m.contentWidth(); w > 0 {
				line = truncate.StringWithTail(line, uint(w), "…")
			}
			b.WriteString(noticeStyle.Render(line))
			b.WriteString("\n")
		}
	}

	if m.showHelp {
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("c copy last caption • x clear notices • ? help • q quit"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.statusBarView())
	return b.String()
}

func (m model) contentWidth() int {
	if m.width <= 2 {
		return 0
	}
	return m.width - 2
}

func (m model) statusBarView() string {
	logo := logoStyle.Render(" VoicePal ")

	note := fmt.Sprintf(" %s • %d session(s)", m.cfg.Backend, len(m.sessions))
	if m.cfg.CacheSummary != nil {
		note += " • cache " + m.cfg.CacheSummary()
	}
	noteStyle := statusBarNoteStyle
	if m.statusMessage != "" {
		note = " " + m.statusMessage
		noteStyle = statusBarMessageStyle
	}

	help := statusBarNoteStyle.Render(" ? Help ")
	if m.width > 0 {
		avail := m.width - len(" VoicePal ") - len(" ? Help ")
		if avail < 0 {
			avail = 0
		}
		note = truncate.StringWithTail(note, uint(avail), "…")
		if pad := avail - ansi.PrintableRuneWidth(note); pad > 0 {
			note += strings.Repeat(" ", pad)
		}
	}
	return logo + noteStyle.Render(note) + help
}
