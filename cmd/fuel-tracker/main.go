package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"golang.org/x/sync/errgroup"

	"github.com/zombor/fuel-tracker/internal/events"
	"github.com/zombor/fuel-tracker/internal/fuellog"
	"github.com/zombor/fuel-tracker/internal/insights"
	"github.com/zombor/fuel-tracker/internal/openai"
	"github.com/zombor/fuel-tracker/internal/pipeline"
	"github.com/zombor/fuel-tracker/internal/scanning"
	"github.com/zombor/fuel-tracker/internal/server"
	"github.com/zombor/fuel-tracker/internal/storage"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

// eventDataEnv is where function hosts put the triggering event
const eventDataEnv = "APPWRITE_FUNCTION_EVENT_DATA"

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	_ = godotenv.Load()

	fs := ff.NewFlagSet("fuel-tracker")
	var (
		port         = fs.IntLong("port", 8080, "HTTP server port")
		dbPath       = fs.StringLong("db", "fuel-tracker.db", "Database file path")
		collection   = fs.StringLong("collection", fuellog.DefaultCollection, "Collection fuel logs are stored in")
		storageType  = fs.StringLong("storage", "local", "Storage backend: 'local' or 's3'")
		storagePath  = fs.StringLong("storage-path", "./receipts", "Storage directory path for local storage")
		uploadBucket = fs.StringLong("upload-bucket", server.DefaultUploadBucket, "Bucket receipts uploaded through the API are stored in")
		s3Endpoint   = fs.StringLong("s3-endpoint", "", "S3 endpoint URL (empty for AWS)")
		s3Region     = fs.StringLong("s3-region", "us-east-1", "S3 region")
		s3AccessKey  = fs.StringLong("s3-access-key", "", "S3 access key")
		s3SecretKey  = fs.StringLong("s3-secret-key", "", "S3 secret key")
		s3Insecure   = fs.BoolLong("s3-insecure", "Use plain HTTP for a custom S3 endpoint")
		scannerType  = fs.StringLong("scanner", "openai", "Scanner type: 'openai', 'gemini' or 'ollama'")
		openaiKey    = fs.StringLong("openai-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
		openaiModel  = fs.StringLong("openai-model", openai.DefaultModel, "OpenAI model used to read receipts")
		openaiURL    = fs.StringLong("openai-url", openai.DefaultBaseURL, "OpenAI API base URL")
		insightModel = fs.StringLong("insights-model", insights.DefaultModel, "OpenAI model used for dashboard insights")
		geminiKey    = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel  = fs.StringLong("gemini-model", scanning.DefaultGeminiModel, "Google Gemini model name")
		ollamaURL    = fs.StringLong("ollama-url", scanning.DefaultOllamaURL, "Ollama API base URL")
		ollamaModel  = fs.StringLong("ollama-model", scanning.DefaultOllamaModel, "Ollama model name (e.g., qwen2.5vl, llava:13b, minicpm-v)")
		carID        = fs.StringLong("car-id", pipeline.DefaultCarID, "Car every new fuel log is assigned to")
		authUser     = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass     = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		natsURL      = fs.StringLong("nats-url", "", "NATS server URL; empty disables the event subscription")
		natsSubject  = fs.StringLong("nats-subject", events.DefaultSubject, "NATS subject carrying upload events")
		showVersion  = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("FUEL_TRACKER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	mode := "serve"
	if args := fs.GetArgs(); len(args) > 0 {
		mode = args[0]
	}
	if mode != "serve" && mode != "process" {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: unknown command %q (serve or process)\n", mode)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiKey := *openaiKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	var openaiClient *openai.Client
	if apiKey != "" {
		var err error
		openaiClient, err = openai.NewClient(openai.Config{APIKey: apiKey, BaseURL: *openaiURL, Model: *openaiModel})
		if err != nil {
			slog.Error("Failed to initialize OpenAI client", "error", err)
			os.Exit(1)
		}
	}

	// Initialize database
	slog.Info("Initializing database...", "path", *dbPath, "collection", *collection)
	db, err := fuellog.NewBoltDB(*dbPath, *collection)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize scanner based on type
	var scanner scanning.Scanner
	switch *scannerType {
	case "openai":
		if openaiClient == nil {
			slog.Error("OpenAI API key is required. Set --openai-key flag or OPENAI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing OpenAI scanner...", "model", openaiClient.Model())
		scanner = scanning.NewOpenAI(openaiClient)
	case "gemini":
		key := *geminiKey
		if key == "" {
			key = os.Getenv("GEMINI_API_KEY")
		}
		if key == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini scanner...", "model", *geminiModel)
		scanner, err = scanning.NewGemini(ctx, key, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", *ollamaURL, "model", *ollamaModel)
		scanner, err = scanning.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid scanner type", "type", *scannerType, "valid", "openai, gemini or ollama")
		os.Exit(1)
	}
	scanner = scanning.NewBreaker(*scannerType, scanner, scanning.DefaultBreakerConfig())
	defer scanner.Close()

	// Initialize storage
	slog.Info("Initializing storage...", "type", *storageType)
	var store storage.Storage
	switch *storageType {
	case "local":
		store, err = storage.NewLocalStorage(*storagePath)
	case "s3":
		store, err = storage.NewS3Storage(storage.S3Config{
			Endpoint:  *s3Endpoint,
			Region:    *s3Region,
			AccessKey: *s3AccessKey,
			SecretKey: *s3SecretKey,
			Insecure:  *s3Insecure,
		})
	default:
		err = fmt.Errorf("invalid storage type %q (local or s3)", *storageType)
	}
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	receiptPipeline := pipeline.New(pipeline.Config{CarID: *carID}, store, scanner, db)

	if mode == "process" {
		code := processOnce(ctx, receiptPipeline)
		scanner.Close()
		db.Close()
		os.Exit(code)
	}

	deps := server.Deps{
		Pipeline:     receiptPipeline,
		Storage:      store,
		DB:           db,
		Metrics:      receiptPipeline.Metrics().Handler(),
		UploadBucket: *uploadBucket,
	}
	if openaiClient != nil {
		deps.Insights = insights.NewSummarizer(openaiClient, *insightModel)
	} else {
		slog.Warn("No OpenAI API key; insights are disabled")
	}

	basicAuth := server.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	srv := server.NewServer(deps, basicAuth)

	g, gctx := errgroup.WithContext(ctx)

	addr := fmt.Sprintf(":%d", *port)
	g.Go(func() error {
		return srv.Start(gctx, addr)
	})
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	if *natsURL != "" {
		subscriber, err := events.NewSubscriber(*natsURL, receiptPipeline, events.Options{Subject: *natsSubject})
		if err != nil {
			slog.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer subscriber.Close()
		g.Go(func() error {
			return subscriber.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shut down")
}

// processOnce handles the event a function host passed in the environment,
// prints the result and returns the exit code
func processOnce(ctx context.Context, p *pipeline.Pipeline) int {
	result := p.Process(ctx, os.Getenv(eventDataEnv))

	out, err := json.Marshal(result)
	if err != nil {
		slog.Error("Failed to encode result", "error", err)
		return 1
	}
	fmt.Println(string(out))

	if result.Outcome() == pipeline.OutcomeFailed {
		return 1
	}
	return 0
}
