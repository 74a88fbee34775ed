package bridge

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/voicepal/voicepal/internal/config"
	"github.com/voicepal/voicepal/internal/session"
	"github.com/voicepal/voicepal/internal/speech/engines"
)

var logger = log.WithPrefix("bridge")

// Path is where page agents connect.
const Path = "/ws"

// Config configures a Server.
type Config struct {
	Pipeline config.Pipeline
	TTS      config.TTS
	Backends session.BackendFactory
	// Monitor also receives every session's status and notices. It may be
	// nil and must be safe for concurrent use.
	Monitor session.Observer
}

// Server accepts page agents and runs a session for each one between its
// start and stop messages.
type Server struct {
	upgrader websocket.Upgrader

	mu     sync.Mutex
	cfg    Config
	agents map[*Agent]*session.Session
	// overrides holds each running session's start and update_config
	// settings in arrival order, replayed over the file settings on reload.
	overrides map[*Agent][]map[string]any
}

// NewServer creates a server.
func NewServer(cfg Config) *Server {
	return &Server{
		cfg:       cfg,
		agents:    make(map[*Agent]*session.Session),
		overrides: make(map[*Agent][]map[string]any),
		upgrader: websocket.Upgrader{
			// Listening on loopback; content scripts connect with the
			// origin of whatever page they run in.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP handler serving the WebSocket endpoint and a
// JSON status listing.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(Path, s.handleWS)
	mux.HandleFunc("/status", s.handleStatus)
	return mux
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdown)
		s.closeAll()
	}()

	logger.Info("listening for page agents", "addr", addr, "path", Path)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// SetTTS replaces the base TTS configuration and applies it to every
// running session, keeping the settings each page supplied.
func (s *Server) SetTTS(ctx context.Context, tts config.TTS) {
	type target struct {
		sess      *session.Session
		overrides []map[string]any
	}

	s.mu.Lock()
	s.cfg.TTS = tts.Clone()
	var targets []target
	for agent, sess := range s.agents {
		if sess != nil {
			targets = append(targets, target{sess: sess, overrides: s.overrides[agent]})
		}
	}
	s.mu.Unlock()

	for _, t := range targets {
		merged, err := withOverrides(tts, t.overrides)
		if err != nil {
			logger.Warn("page settings no longer apply", "session", t.sess.ID(), "err", err)
			merged = tts
		}
		if err := t.sess.UpdateConfiguration(ctx, merged); err != nil {
			logger.Warn("failed to apply configuration", "session", t.sess.ID(), "err", err)
		}
	}
}

// withOverrides applies the page's partial settings to base in order.
func withOverrides(base config.TTS, overrides []map[string]any) (config.TTS, error) {
	tts := base
	for _, partial := range overrides {
		merged, err := tts.Merge(partial)
		if err != nil {
			return base, err
		}
		tts = merged
	}
	return tts, nil
}

// Sessions returns the status of every running session.
func (s *Server) Sessions() []session.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []session.Status
	for _, sess := range s.agents {
		if sess != nil {
			out = append(out, sess.Status())
		}
	}
	return out
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	type entry struct {
		ID string `json:"id"`
		StatusPayload
		Spoken int64 `json:"spoken"`
	}
	var out []entry
	for _, st := range s.Sessions() {
		out = append(out, entry{
			ID: st.SessionID,
			StatusPayload: StatusPayload{
				State:   st.State.String(),
				Backend: st.Backend.String(),
				Rate:    st.Rate,
				Queue:   st.Queue,
				Current: st.Current,
			},
			Spoken: st.Stats.Completed,
		})
	}
	data, err := sonic.Marshal(out)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	agent := newAgent(conn, s.cfg.Monitor)
	s.mu.Lock()
	s.agents[agent] = nil
	s.mu.Unlock()
	logger.Info("page agent connected", "agent", agent.ID(), "remote", conn.RemoteAddr())

	defer func() {
		agent.close()
		s.stopSession(agent)
		s.mu.Lock()
		delete(s.agents, agent)
		s.mu.Unlock()
		logger.Info("page agent disconnected", "agent", agent.ID())
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("read failed", "agent", agent.ID(), "err", err)
			}
			return
		}

		env, err := Decode(data)
		if err != nil {
			logger.Warn("dropping message", "agent", agent.ID(), "err", err)
			continue
		}
		if err := s.dispatch(r.Context(), agent, env); err != nil {
			logger.Warn("message failed", "agent", agent.ID(), "type", env.Type, "err", err)
			agent.Notice(err.Error())
		}
	}
}

func (s *Server) dispatch(ctx context.Context, agent *Agent, env Envelope) error {
	switch env.Type {
	case TypeCaption:
		var p CaptionPayload
		if err := env.Bind(&p); err != nil {
			return err
		}
		if sess := s.session(agent); sess != nil {
			sess.Submit(p.Text)
		} else {
			logger.Debug("caption before start", "agent", agent.ID())
		}

	case TypeStart:
		var p StartPayload
		if err := env.Bind(&p); err != nil {
			return err
		}
		return s.startSession(ctx, agent, p.Config)

	case TypeStop:
		s.stopSession(agent)

	case TypeUpdateConfig:
		var p UpdateConfigPayload
		if err := env.Bind(&p); err != nil {
			return err
		}
		return s.updateConfig(ctx, agent, p.Partial)

	case TypeSpeechDone:
		var p SpeechDonePayload
		if err := env.Bind(&p); err != nil {
			return err
		}
		agent.speechDone(p)

	case TypeVolumes:
		var p VolumesPayload
		if err := env.Bind(&p); err != nil {
			return err
		}
		agent.volumesReported(p)

	default:
		logger.Debug("unknown message type", "type", env.Type)
	}
	return nil
}

func (s *Server) session(agent *Agent) *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agents[agent]
}

func (s *Server) startSession(ctx context.Context, agent *Agent, partial map[string]any) error {
	s.stopSession(agent)

	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()

	var overrides []map[string]any
	if len(partial) > 0 {
		overrides = append(overrides, partial)
	}
	tts, err := withOverrides(cfg.TTS, overrides)
	if err != nil {
		return err
	}

	sess, err := session.New(session.Options{
		Pipeline: cfg.Pipeline,
		TTS:      tts,
		Browser:  engines.NewBrowser(agent),
		Backends: cfg.Backends,
		Videos:   agent,
		Observer: agent,
	})
	if err != nil {
		return err
	}
	// The session outlives the request that started it.
	if err := sess.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}

	s.mu.Lock()
	s.agents[agent] = sess
	s.overrides[agent] = overrides
	s.mu.Unlock()
	return nil
}

func (s *Server) stopSession(agent *Agent) {
	s.mu.Lock()
	sess := s.agents[agent]
	if _, ok := s.agents[agent]; ok {
		s.agents[agent] = nil
	}
	delete(s.overrides, agent)
	s.mu.Unlock()
	if sess == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sess.ForceStop(ctx); err != nil {
		logger.Debug("force stop", "session", sess.ID(), "err", err)
	}
	_ = sess.Close()
}

func (s *Server) updateConfig(ctx context.Context, agent *Agent, partial map[string]any) error {
	s.mu.Lock()
	sess := s.agents[agent]
	base := s.cfg.TTS
	overrides := append(append([]map[string]any(nil), s.overrides[agent]...), partial)
	s.mu.Unlock()
	if sess == nil {
		return nil
	}

	updated, err := withOverrides(base, overrides)
	if err != nil {
		return err
	}
	if err := sess.UpdateConfiguration(ctx, updated); err != nil {
		return err
	}

	s.mu.Lock()
	if s.agents[agent] == sess {
		s.overrides[agent] = overrides
	}
	s.mu.Unlock()
	return nil
}

func (s *Server) closeAll() {
	s.mu.Lock()
	agents := make([]*Agent, 0, len(s.agents))
	for a := range s.agents {
		agents = append(agents, a)
	}
	s.mu.Unlock()
	for _, a := range agents {
		s.stopSession(a)
	}
}
