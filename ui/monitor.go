package ui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/voicepal/voicepal/internal/session"
)

const monitorBuffer = 64

// StatusMsg carries a session status update.
type StatusMsg session.Status

func (s StatusMsg) status() session.Status { return session.Status(s) }

// NoticeMsg carries a viewer notice.
type NoticeMsg struct {
	Message string
	At      time.Time
}

// Monitor forwards session events to a running program without blocking the
// sessions that report them. Events are delivered in order; when the buffer
// is full they are dropped.
type Monitor struct {
	ch   chan tea.Msg
	once sync.Once
}

// NewMonitor creates a monitor that buffers events until Attach.
func NewMonitor() *Monitor {
	return &Monitor{ch: make(chan tea.Msg, monitorBuffer)}
}

// Attach starts forwarding to p. Only the first call has an effect.
func (m *Monitor) Attach(p *tea.Program) {
	m.once.Do(func() {
		go func() {
			for msg := range m.ch {
				p.Send(msg)
			}
		}()
	})
}

func (m *Monitor) send(msg tea.Msg) {
	select {
	case m.ch <- msg:
	default:
		log.Debug("Status view is behind, dropping event")
	}
}

// Status implements session.Observer.
func (m *Monitor) Status(st session.Status) {
	m.send(StatusMsg(st))
}

// Notice implements session.Observer.
func (m *Monitor) Notice(message string) {
	m.send(NoticeMsg{Message: message, At: time.Now()})
}
