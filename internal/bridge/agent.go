package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/voicepal/voicepal/internal/ducking"
	"github.com/voicepal/voicepal/internal/session"
	"github.com/voicepal/voicepal/internal/speech"
)

var (
	// ErrDisconnected indicates the page agent went away.
	ErrDisconnected = errors.New("page agent disconnected")

	// ErrPageSpeech indicates the page reported a speech synthesis error.
	ErrPageSpeech = errors.New("page speech error")
)

const (
	writeTimeout   = 5 * time.Second
	volumeTimeout  = time.Second
	noticeDuration = 3 * time.Second
)

// Agent is one connected page. It speaks through the page's speech
// synthesis, controls its video volumes, and receives session status.
type Agent struct {
	id      string
	conn    *websocket.Conn
	monitor session.Observer

	writeMu sync.Mutex

	mu      sync.Mutex
	closed  bool
	done    chan struct{}
	speech  map[string]chan error
	volumes map[string]chan []ducking.Video
}

func newAgent(conn *websocket.Conn, monitor session.Observer) *Agent {
	return &Agent{
		id:      uuid.NewString(),
		conn:    conn,
		monitor: monitor,
		done:    make(chan struct{}),
		speech:  make(map[string]chan error),
		volumes: make(map[string]chan []ducking.Video),
	}
}

// ID returns the agent identifier.
func (a *Agent) ID() string { return a.id }

func (a *Agent) send(typ string, payload any) error {
	data, err := Encode(typ, payload)
	if err != nil {
		return err
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	if !a.Connected() {
		return ErrDisconnected
	}
	_ = a.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := a.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send %s: %w", typ, err)
	}
	return nil
}

// Connected reports whether the page is still connected.
func (a *Agent) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.closed
}

// Speak asks the page to speak req and waits for speech_done.
func (a *Agent) Speak(ctx context.Context, req speech.Request) error {
	result := make(chan error, 1)
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrDisconnected
	}
	a.speech[req.ID] = result
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		delete(a.speech, req.ID)
		a.mu.Unlock()
	}()

	err := a.send(TypeSpeak, SpeakPayload{
		ID:    req.ID,
		Text:  req.Text,
		Rate:  req.Rate,
		Lang:  req.Language,
		Voice: req.Voice,
	})
	if err != nil {
		return err
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		a.CancelSpeech()
		return ctx.Err()
	case <-a.done:
		return ErrDisconnected
	}
}

// CancelSpeech stops the page's speech synthesis.
func (a *Agent) CancelSpeech() {
	if err := a.send(TypeCancelSpeech, nil); err != nil && !errors.Is(err, ErrDisconnected) {
		logger.Debug("cancel not delivered", "agent", a.id, "err", err)
	}
}

func (a *Agent) speechDone(p SpeechDonePayload) {
	a.mu.Lock()
	result, ok := a.speech[p.ID]
	a.mu.Unlock()
	if !ok {
		logger.Debug("speech_done for unknown utterance", "id", p.ID)
		return
	}

	var err error
	if p.Error != "" {
		err = fmt.Errorf("%w: %s", ErrPageSpeech, p.Error)
	}
	select {
	case result <- err:
	default:
	}
}

// Videos implements ducking.VideoHost.
func (a *Agent) Videos(ctx context.Context) ([]ducking.Video, error) {
	id := uuid.NewString()
	result := make(chan []ducking.Video, 1)
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil, ErrDisconnected
	}
	a.volumes[id] = result
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		delete(a.volumes, id)
		a.mu.Unlock()
	}()

	if err := a.send(TypeGetVolumes, GetVolumesPayload{RequestID: id}); err != nil {
		return nil, err
	}

	timer := time.NewTimer(volumeTimeout)
	defer timer.Stop()
	select {
	case videos := <-result:
		return videos, nil
	case <-timer.C:
		return nil, fmt.Errorf("no volume report within %s", volumeTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-a.done:
		return nil, ErrDisconnected
	}
}

func (a *Agent) volumesReported(p VolumesPayload) {
	a.mu.Lock()
	result, ok := a.volumes[p.RequestID]
	a.mu.Unlock()
	if !ok {
		return
	}
	select {
	case result <- p.Videos:
	default:
	}
}

// SetVolume implements ducking.VideoHost.
func (a *Agent) SetVolume(_ context.Context, id string, volume float64) error {
	return a.send(TypeSetVolume, SetVolumePayload{ID: id, Volume: volume})
}

// Status implements session.Observer.
func (a *Agent) Status(st session.Status) {
	if err := a.send(TypeStatus, StatusPayload{
		State:   st.State.String(),
		Backend: st.Backend.String(),
		Rate:    st.Rate,
		Queue:   st.Queue,
		Current: st.Current,
	}); err != nil && !errors.Is(err, ErrDisconnected) {
		logger.Debug("status not delivered", "agent", a.id, "err", err)
	}
	if a.monitor != nil {
		a.monitor.Status(st)
	}
}

// Notice implements session.Observer.
func (a *Agent) Notice(message string) {
	if err := a.send(TypeNotice, NoticePayload{
		Message:    message,
		DurationMs: noticeDuration.Milliseconds(),
	}); err != nil && !errors.Is(err, ErrDisconnected) {
		logger.Debug("notice not delivered", "agent", a.id, "err", err)
	}
	if a.monitor != nil {
		a.monitor.Notice(message)
	}
}

func (a *Agent) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	close(a.done)
}
