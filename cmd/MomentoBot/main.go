package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/momentohub/MomentoBot/internal/api"
	"github.com/momentohub/MomentoBot/internal/assessment"
	"github.com/momentohub/MomentoBot/internal/cache"
	"github.com/momentohub/MomentoBot/internal/conversation"
	"github.com/momentohub/MomentoBot/internal/engagement"
	"github.com/momentohub/MomentoBot/internal/genai"
	"github.com/momentohub/MomentoBot/internal/messaging"
	"github.com/momentohub/MomentoBot/internal/orchestrator"
	"github.com/momentohub/MomentoBot/internal/retrieval"
	"github.com/momentohub/MomentoBot/internal/store"
	"github.com/momentohub/MomentoBot/internal/twiliowhatsapp"
	"github.com/momentohub/MomentoBot/internal/util"
	"github.com/momentohub/MomentoBot/internal/whatsapp"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for MomentoBot state data
	DefaultStateDir = "/var/lib/momentobot"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "momentobot.db"
	// DefaultVectorDBFileName is the default sqlite-vec database filename
	DefaultVectorDBFileName = "knowledge.db"
	// DefaultAPIAddr is the default API listen address
	DefaultAPIAddr = ":8080"
	// DefaultCacheCapacity bounds the in-memory caches when Redis is not configured
	DefaultCacheCapacity = 4096
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flags); err != nil {
		slog.Error("MomentoBot failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("MomentoBot exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL string
	StateDir    string
	OpenAIKey   string
	APIAddr     string
	RedisAddr   string
	Channel     string
	Schedule    string
	VectorDB    string
	TopK        int
	Numeric     bool
}

// Flags holds command line flag values
type Flags struct {
	qrOutput  *string
	numeric   *bool
	stateDir  *string
	dbDSN     *string
	openaiKey *string
	apiAddr   *string
	redisAddr *string
	channel   *string
	schedule  *string
	vectorDB  *string
	topK      *int
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StateDir:    os.Getenv("MOMENTOBOT_STATE_DIR"),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		APIAddr:     os.Getenv("API_ADDR"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		Channel:     os.Getenv("MESSAGING_CHANNEL"),
		Schedule:    os.Getenv("ENGAGEMENT_SCHEDULE"),
		VectorDB:    os.Getenv("VECTOR_DB_PATH"),
		TopK:        util.ParseIntEnv("RETRIEVAL_TOP_K", retrieval.DefaultTopK),
		Numeric:     util.ParseBoolEnv("WHATSAPP_NUMERIC_CODE", false),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
	}
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}
	if config.VectorDB == "" {
		config.VectorDB = filepath.Join(config.StateDir, DefaultVectorDBFileName)
	}
	if config.APIAddr == "" {
		config.APIAddr = DefaultAPIAddr
	}
	if config.Channel == "" {
		config.Channel = "whatsapp"
	}
	if config.Schedule == "" {
		config.Schedule = engagement.DefaultSchedule
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"MOMENTOBOT_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"REDIS_ADDR_SET", config.RedisAddr != "",
		"MESSAGING_CHANNEL", config.Channel,
		"ENGAGEMENT_SCHEDULE", config.Schedule,
		"VECTOR_DB_PATH", config.VectorDB,
		"RETRIEVAL_TOP_K", config.TopK)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		qrOutput:  flag.String("qr-output", "", "path to write login QR code"),
		numeric:   flag.Bool("numeric-code", config.Numeric, "use numeric login code instead of QR code (overrides $WHATSAPP_NUMERIC_CODE)"),
		stateDir:  flag.String("state-dir", config.StateDir, "state directory for MomentoBot data (overrides $MOMENTOBOT_STATE_DIR)"),
		dbDSN:     flag.String("db-dsn", config.DatabaseURL, "database DSN for profile and WhatsApp storage (overrides $DATABASE_URL)"),
		openaiKey: flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		apiAddr:   flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		redisAddr: flag.String("redis-addr", config.RedisAddr, "Redis address for shared caches, empty means in-memory (overrides $REDIS_ADDR)"),
		channel:   flag.String("channel", config.Channel, "messaging channel: whatsapp or twilio (overrides $MESSAGING_CHANNEL)"),
		schedule:  flag.String("engagement-cron", config.Schedule, "cron schedule for the re-engagement sweep (overrides $ENGAGEMENT_SCHEDULE)"),
		vectorDB:  flag.String("vector-db", config.VectorDB, "sqlite-vec database path for knowledge retrieval (overrides $VECTOR_DB_PATH)"),
		topK:      flag.Int("top-k", config.TopK, "per-source retrieval depth (overrides $RETRIEVAL_TOP_K)"),
	}

	flag.Parse()

	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
	}
	if *flags.vectorDB == config.VectorDB && config.VectorDB == filepath.Join(config.StateDir, DefaultVectorDBFileName) && *flags.stateDir != config.StateDir {
		*flags.vectorDB = filepath.Join(*flags.stateDir, DefaultVectorDBFileName)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		stateDir := filepath.Dir(*flags.dbDSN)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(*flags.vectorDB), 0755); err != nil {
		return err
	}
	return nil
}

// buildStore selects the storage backend from the DSN.
func buildStore(flags Flags) (store.Store, error) {
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
	return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
}

// buildCaches returns the dedup, query and snapshot caches, Redis-backed when
// an address is configured and process-local otherwise.
func buildCaches(flags Flags) (dedup, query, snapshot cache.Cache) {
	if *flags.redisAddr != "" {
		slog.Info("Using Redis caches", "addr", *flags.redisAddr)
		return cache.NewRedisCache(*flags.redisAddr, "dedup"),
			cache.NewRedisCache(*flags.redisAddr, "query"),
			cache.NewRedisCache(*flags.redisAddr, "snapshot")
	}
	return cache.NewMemoryCache(DefaultCacheCapacity),
		cache.NewMemoryCache(DefaultCacheCapacity),
		cache.NewMemoryCache(DefaultCacheCapacity)
}

// buildMessagingService constructs the configured channel backend.
func buildMessagingService(ctx context.Context, flags Flags) (messaging.Service, *messaging.TwilioService, error) {
	switch *flags.channel {
	case "twilio":
		client, err := twiliowhatsapp.NewClient()
		if err != nil {
			return nil, nil, err
		}
		svc := messaging.NewTwilioService(client)
		return svc, svc, nil
	case "whatsapp":
		waOpts := []whatsapp.Option{whatsapp.WithDBDSN(*flags.dbDSN)}
		if *flags.qrOutput != "" {
			waOpts = append(waOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
		}
		if *flags.numeric {
			waOpts = append(waOpts, whatsapp.WithNumericCode())
		}
		client, err := whatsapp.NewClient(waOpts...)
		if err != nil {
			return nil, nil, err
		}
		svc := messaging.NewWhatsAppService(client)
		if err := svc.Start(ctx); err != nil {
			return nil, nil, err
		}
		return svc, nil, nil
	default:
		return nil, nil, errors.New("unknown messaging channel: " + *flags.channel)
	}
}

func run(ctx context.Context, flags Flags) error {
	st, err := buildStore(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	vectors, err := retrieval.NewVectorStore(retrieval.WithDBPath(*flags.vectorDB))
	if err != nil {
		return err
	}
	defer vectors.Close()

	client, err := genai.NewClient(genai.WithAPIKey(*flags.openaiKey))
	if err != nil {
		return err
	}

	dedupCache, queryCache, snapshotCache := buildCaches(flags)

	catalog := assessment.NewCatalog()
	engine := assessment.NewEngine(catalog, st, assessment.NewLLMAnalyzer(client))
	memory := conversation.NewMemory(st, client, snapshotCache)
	suggester := orchestrator.NewSuggester(client, catalog)

	service, twilioSvc, err := buildMessagingService(ctx, flags)
	if err != nil {
		return err
	}
	defer service.Stop()

	orch := orchestrator.NewOrchestrator(
		engine,
		memory,
		vectors,
		client,
		cache.NewDedup(dedupCache),
		queryCache,
		suggester,
		st,
		service,
		orchestrator.WithTopK(*flags.topK),
	)

	handler := messaging.NewHandler(service, orch)
	go handler.Run(ctx)
	go drainReceipts(ctx, service)

	job := engagement.NewJob(st, service, engagement.WithSchedule(*flags.schedule))
	if err := job.Start(ctx); err != nil {
		return err
	}
	defer job.Stop()

	mux := http.NewServeMux()
	mux.Handle("/", api.NewServer(engine).Handler())
	if twilioSvc != nil {
		mux.HandleFunc("POST /webhook/twilio", twilioSvc.WebhookHandler)
	}

	server := &http.Server{Addr: *flags.apiAddr, Handler: mux}
	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server listening", "addr", *flags.apiAddr)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("API server shutdown failed", "error", err)
	}
	return nil
}

// drainReceipts logs delivery receipts so the channel never backs up.
func drainReceipts(ctx context.Context, service messaging.Service) {
	for {
		select {
		case <-ctx.Done():
			return
		case receipt, ok := <-service.Receipts():
			if !ok {
				return
			}
			slog.Debug("message receipt", "to", receipt.To, "status", receipt.Status)
		}
	}
}
