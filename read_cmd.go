package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/voicepal/voicepal/internal/caption"
	"github.com/voicepal/voicepal/internal/config"
	"github.com/voicepal/voicepal/internal/playback"
	"github.com/voicepal/voicepal/internal/session"
)

const drainPoll = 100 * time.Millisecond

var (
	readInterval time.Duration

	readCmd = &cobra.Command{
		Use:   "read [FILE|-]",
		Short: "Narrate a caption transcript",
		Long: paragraph(fmt.Sprintf("\n%s a transcript with one caption snapshot per line, through the local audio device. "+
			"Only provider backends can speak here; there is no page to use browser speech.", keyword("Narrate"))),
		Example: paragraph("voicepal read captions.txt --backend elevenlabs\ntail -f live.txt | voicepal read -"),
		Args:    cobra.MaximumNArgs(1),
		RunE:    executeRead,
	}
)

func init() {
	readCmd.Flags().DurationVarP(&readInterval, "interval", "i", 2*time.Second, "delay between snapshots")
}

func openTranscript(args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		if len(args) == 0 && term.IsTerminal(int(os.Stdin.Fd())) { //nolint:gosec
			return nil, errors.New("no transcript: pass a FILE or pipe captions on stdin")
		}
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, fmt.Errorf("unable to open file: %w", err)
	}
	return f, nil
}

func executeRead(cmd *cobra.Command, args []string) error {
	src, err := openTranscript(args)
	if err != nil {
		return err
	}
	defer src.Close() //nolint:errcheck

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close() //nolint:errcheck

	sess, err := session.New(session.Options{
		Pipeline: cfg.Pipeline,
		TTS:      cfg.TTS,
		Backends: rt.backends,
		Observer: logObserver{},
	})
	if err != nil {
		return err
	}
	if err := sess.Start(ctx); err != nil {
		return err
	}
	defer sess.Close() //nolint:errcheck

	if err := feedTranscript(ctx, sess, src, readInterval); err != nil {
		return err
	}
	return waitIdle(ctx, sess)
}

// feedTranscript ingests one snapshot per non-empty line.
func feedTranscript(ctx context.Context, sess *session.Session, r io.Reader, interval time.Duration) error {
	scanner := bufio.NewScanner(r)
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !first && interval > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(interval):
			}
		}
		first = false

		err := sess.Ingest(ctx, caption.Snapshot{Text: line, ObservedAt: time.Now()})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("unable to read transcript: %w", err)
	}
	return nil
}

// waitIdle returns once everything ingested has been spoken.
func waitIdle(ctx context.Context, sess *session.Session) error {
	// Round-trips through the session loop, so earlier snapshots are
	// already scheduled when it returns.
	if _, err := sess.TTS(ctx); err != nil {
		return nil
	}

	ticker := time.NewTicker(drainPoll)
	defer ticker.Stop()
	for {
		st := sess.Status()
		if st.State == playback.Idle && st.Queue == 0 {
			log.Debug("Transcript finished", "spoken", st.Stats.Completed, "failed", st.Stats.Failed)
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
