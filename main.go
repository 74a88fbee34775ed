// Package main provides the entry point for the VoicePal CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/voicepal/voicepal/internal/bridge"
	"github.com/voicepal/voicepal/internal/config"
	"github.com/voicepal/voicepal/internal/session"
	"github.com/voicepal/voicepal/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	tui        bool
	mouse      bool
	debug      bool

	// v holds defaults, the config file, VOICEPAL_* variables and flags.
	v *viper.Viper

	rootCmd = &cobra.Command{
		Use:   "voicepal",
		Short: "Read live captions aloud",
		Long: paragraph(
			fmt.Sprintf("\nNarrate live captions from the browser, %s!", keyword("out loud")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return validateOptions()
		},
		RunE: executeServe,
	}

	serveCmd = &cobra.Command{
		Use:     "serve",
		Short:   "Wait for page agents and narrate their captions",
		Example: paragraph("voicepal serve\nvoicepal serve --tui --backend elevenlabs"),
		Args:    cobra.NoArgs,
		RunE:    executeServe,
	}
)

func validateOptions() error {
	tui = v.GetBool("tui")
	mouse = v.GetBool("mouse")
	debug = v.GetBool("debug")
	setLogLevel(v.GetString("log_level"), debug)

	if configFile != "" && configFile != v.ConfigFileUsed() {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}
	return nil
}

func executeServe(cmd *cobra.Command, _ []string) error {
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

	var (
		monitor  *ui.Monitor
		observer session.Observer = logObserver{}
	)
	if tui {
		monitor = ui.NewMonitor()
		observer = monitor
	}

	srv := bridge.NewServer(bridge.Config{
		Pipeline: cfg.Pipeline,
		TTS:      cfg.TTS,
		Backends: rt.backends,
		Monitor:  observer,
	})

	if path := v.ConfigFileUsed(); path != "" {
		err := config.Watch(ctx, path, func(c config.Config) {
			log.Info("Configuration changed, applying", "backend", c.TTS.Backend)
			srv.SetTTS(ctx, c.TTS)
		})
		if err != nil {
			log.Warn("Not watching configuration file", "path", path, "err", err)
		}
	}

	if !tui {
		return srv.ListenAndServe(ctx, cfg.Listen)
	}
	return runTUI(ctx, stop, srv, cfg, rt, monitor)
}

func runTUI(ctx context.Context, stop context.CancelFunc, srv *bridge.Server, cfg config.Config, rt *runtime, monitor *ui.Monitor) error {
	logToFileOnly()

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe(ctx, cfg.Listen)
	}()

	p := ui.NewProgram(ui.Config{
		Listen:       cfg.Listen,
		Backend:      cfg.TTS.Backend,
		CacheSummary: rt.cacheSummary,
		EnableMouse:  mouse,
	}, monitor)

	go func() {
		// The server failing to listen ends the TUI too.
		select {
		case err := <-errc:
			if err != nil {
				log.Error("Server stopped", "err", err)
			}
			errc <- err
			p.Quit()
		case <-ctx.Done():
			p.Quit()
		}
	}()

	_, runErr := p.Run()
	stop()
	srvErr := <-errc
	if runErr != nil {
		return fmt.Errorf("unable to run tui program: %w", runErr)
	}
	return srvErr
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	var err error
	v, err = config.NewViper()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	tryLoadConfigFromDefaultPlaces()

	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", v.ConfigFileUsed()))
	flags.BoolVar(&debug, "debug", false, "log debug output")
	flags.String("backend", "", "speech backend: browser, elevenlabs or custom")
	flags.String("listen", "", "address page agents connect to")
	flags.BoolVarP(&tui, "tui", "t", false, "show a live status view")
	flags.BoolVarP(&mouse, "mouse", "m", false, "enable mouse (TUI-mode only)")
	_ = flags.MarkHidden("mouse")

	_ = v.BindPFlag("debug", flags.Lookup("debug"))
	_ = v.BindPFlag("tts.backend", flags.Lookup("backend"))
	_ = v.BindPFlag("listen", flags.Lookup("listen"))
	_ = v.BindPFlag("tui", flags.Lookup("tui"))
	_ = v.BindPFlag("mouse", flags.Lookup("mouse"))

	rootCmd.AddCommand(serveCmd, readCmd, voicesCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "voicepal")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "voicepal")}, dirs...)
	}

	if c := os.Getenv("VOICEPAL_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, d := range dirs {
		v.AddConfigPath(d)
	}

	v.SetConfigName("voicepal")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := v.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return
	}

	configFile = filepath.Join(dirs[0], "voicepal.yml")
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
		return
	}
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		log.Warn("Could not parse configuration file", "err", err)
	}
}
