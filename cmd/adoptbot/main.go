package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/caramelo-ong/adoptbot/internal/api"
	"github.com/caramelo-ong/adoptbot/internal/documents"
	"github.com/caramelo-ong/adoptbot/internal/flow"
	"github.com/caramelo-ong/adoptbot/internal/lockfile"
	"github.com/caramelo-ong/adoptbot/internal/messaging"
	"github.com/caramelo-ong/adoptbot/internal/scheduler"
	"github.com/caramelo-ong/adoptbot/internal/store"
	"github.com/caramelo-ong/adoptbot/internal/twiliowhatsapp"
	"github.com/caramelo-ong/adoptbot/internal/util"
	"github.com/caramelo-ong/adoptbot/internal/whatsapp"
)

const (
	// DefaultStateDir is the default directory for adoptbot state data.
	DefaultStateDir = "/var/lib/adoptbot"
	// DefaultDBFileName is the default SQLite database filename.
	DefaultDBFileName = "adoptbot.db"
	// DefaultUploadDirName is the default upload directory under the state dir.
	DefaultUploadDirName = "uploads"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := run(flags); err != nil {
		slog.Error("adoptbot failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("adoptbot exited successfully")
}

// Config holds environment configuration.
type Config struct {
	StateDir    string
	DatabaseURL string
	WhatsAppDSN string
	APIAddr     string
	Channel     string
	UploadDir   string
}

// Flags holds command line flag values.
type Flags struct {
	qrOutput  *string
	numeric   *bool
	stateDir  *string
	dbDSN     *string
	waDSN     *string
	apiAddr   *string
	channel   *string
	uploadDir *string
}

func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("ADOPTBOT_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from the environment and .env file.
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		StateDir:    os.Getenv("ADOPTBOT_STATE_DIR"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		WhatsAppDSN: os.Getenv("WHATSAPP_DB_DSN"),
		APIAddr:     os.Getenv("API_ADDR"),
		Channel:     os.Getenv("MESSAGING_CHANNEL"),
		UploadDir:   os.Getenv("UPLOAD_DIR"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No ADOPTBOT_STATE_DIR set, using default", "stateDir", config.StateDir)
	}
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No DATABASE_URL set, defaulting to SQLite", "path", config.DatabaseURL)
	}
	if config.WhatsAppDSN == "" {
		config.WhatsAppDSN = filepath.Join(config.StateDir, "whatsmeow.db")
	}
	if config.Channel == "" {
		config.Channel = "whatsapp"
	}
	if config.UploadDir == "" {
		config.UploadDir = filepath.Join(config.StateDir, DefaultUploadDirName)
	}

	slog.Debug("environment configuration loaded",
		"stateDir", config.StateDir,
		"databaseURLSet", config.DatabaseURL != "",
		"apiAddr", config.APIAddr,
		"channel", config.Channel,
		"uploadDir", config.UploadDir)
	return config
}

// parseCommandLineFlags parses flags with environment defaults.
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		qrOutput:  flag.String("qr-output", "", "path to write the WhatsApp login QR code"),
		numeric:   flag.Bool("numeric-code", false, "use a numeric WhatsApp login code instead of a QR code"),
		stateDir:  flag.String("state-dir", config.StateDir, "state directory for adoptbot data (overrides $ADOPTBOT_STATE_DIR)"),
		dbDSN:     flag.String("db-dsn", config.DatabaseURL, "database DSN for the adoptbot store (overrides $DATABASE_URL)"),
		waDSN:     flag.String("whatsapp-db-dsn", config.WhatsAppDSN, "database DSN for the WhatsApp session (overrides $WHATSAPP_DB_DSN)"),
		apiAddr:   flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		channel:   flag.String("channel", config.Channel, "messaging channel: whatsapp or twilio (overrides $MESSAGING_CHANNEL)"),
		uploadDir: flag.String("upload-dir", config.UploadDir, "directory for uploaded documents (overrides $UPLOAD_DIR)"),
	}
	flag.Parse()

	// Follow a moved state directory for the default file paths.
	if *flags.stateDir != config.StateDir {
		if *flags.dbDSN == filepath.Join(config.StateDir, DefaultDBFileName) {
			*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		}
		if *flags.waDSN == filepath.Join(config.StateDir, "whatsmeow.db") {
			*flags.waDSN = filepath.Join(*flags.stateDir, "whatsmeow.db")
		}
		if *flags.uploadDir == filepath.Join(config.StateDir, DefaultUploadDirName) {
			*flags.uploadDir = filepath.Join(*flags.stateDir, DefaultUploadDirName)
		}
	}

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSNSet", *flags.dbDSN != "",
		"apiAddr", *flags.apiAddr,
		"channel", *flags.channel)
	return flags
}

// buildStore opens the SQLite or PostgreSQL store based on the DSN.
func buildStore(dsn string) (store.Store, error) {
	if store.DetectDSNType(dsn) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, opening PostgreSQL store")
		return store.NewPostgresStore(store.WithDSN(dsn))
	}
	slog.Debug("Detected SQLite DSN, opening SQLite store", "path", dsn)
	return store.NewSQLiteStore(store.WithDSN(dsn))
}

// buildMessagingService creates the selected channel implementation.
func buildMessagingService(flags Flags) (messaging.Service, *messaging.TwilioService, error) {
	switch *flags.channel {
	case "twilio":
		client, err := twiliowhatsapp.NewClient()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Twilio client: %w", err)
		}
		svc := messaging.NewTwilioService(client)
		return svc, svc, nil
	case "whatsapp":
		var waOpts []whatsapp.Option
		waOpts = append(waOpts, whatsapp.WithDBDSN(*flags.waDSN))
		if *flags.qrOutput != "" {
			waOpts = append(waOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
		}
		if *flags.numeric {
			waOpts = append(waOpts, whatsapp.WithNumericCode())
		}
		client, err := whatsapp.NewClient(waOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create WhatsApp client: %w", err)
		}
		return messaging.NewWhatsAppService(client), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown messaging channel %q", *flags.channel)
	}
}

// reminderMessage builds the outbound text for a due check-in reminder.
func reminderMessage(r store.Reminder) string {
	if r.AnimalName != "" {
		return fmt.Sprintf("Hi! 💚 It's been a little while since %s came home with you. Reply \"check-in\" and I'll ask a few quick questions about how things are going.", r.AnimalName)
	}
	return "Hi! 💚 It's been a little while since your adoption. Reply \"check-in\" and I'll ask a few quick questions about how things are going."
}

func run(flags Flags) error {
	if err := os.MkdirAll(*flags.stateDir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	st, err := buildStore(*flags.dbDSN)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	msgService, twilioSvc, err := buildMessagingService(flags)
	if err != nil {
		return err
	}

	storage, err := documents.NewDiskStorage(*flags.uploadDir)
	if err != nil {
		return err
	}

	sessions := flow.NewStoreSessionManager(st)
	recorder := documents.NewRecorder(st)
	adoptionBot := flow.NewAdoptionBot(sessions)
	followupBot := flow.NewFollowupBot(sessions, flow.WithDocumentLister(recorder))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := msgService.Start(ctx); err != nil {
		return fmt.Errorf("failed to start messaging service: %w", err)
	}
	defer msgService.Stop()

	dispatcher := messaging.NewDispatcher(msgService, followupBot, st)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	runner := store.NewReminderRunner(st, func(ctx context.Context, r store.Reminder) error {
		return msgService.SendMessage(ctx, r.Recipient, reminderMessage(r))
	}, store.DefaultReminderPollInterval)
	if err := runner.RecoverStaleReminders(); err != nil {
		slog.Warn("failed to requeue stale reminders", "error", err)
	}
	go runner.Run(ctx)

	sched := scheduler.NewScheduler()
	defer sched.Stop()

	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	server := api.NewServer(adoptionBot, followupBot, recorder, storage, st, msgService, sched, apiOpts...)
	if twilioSvc != nil {
		server.RegisterWebhook("/webhook/twilio", twilioSvc.WebhookHandler)
	}
	if err := server.Start(); err != nil {
		return err
	}

	slog.Info("adoptbot running", "channel", *flags.channel)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	slog.Info("shutdown signal received")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}
