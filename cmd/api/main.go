package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nmhien/vietbistro/backend/internal/config"
	"github.com/nmhien/vietbistro/backend/internal/handler"
	"github.com/nmhien/vietbistro/backend/internal/model/restaurant"
	"github.com/nmhien/vietbistro/backend/internal/service/ai"
	"github.com/nmhien/vietbistro/backend/internal/service/assistant"
	"github.com/nmhien/vietbistro/backend/internal/service/extract"
	"github.com/nmhien/vietbistro/backend/internal/service/intent"
	"github.com/nmhien/vietbistro/backend/internal/service/prompt"
	"github.com/nmhien/vietbistro/backend/internal/service/session"
	"github.com/nmhien/vietbistro/backend/internal/stream"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	store := newSessionStore(ctx, cfg.Redis)

	info, tables, items := restaurant.Seed()
	liveStore := restaurant.NewMemoryStore(info, tables, items)

	gateway := newGateway(ctx, cfg.AI)
	classifier := newClassifier(ctx, cfg.AI)

	dispatcher := stream.NewDispatcher(cfg.Stream.ChunkWords, cfg.Stream.ChunkDelay)

	controller := assistant.New(
		store,
		classifier,
		extract.NewExtractor(gateway),
		prompt.NewComposer(liveStore),
		gateway,
		dispatcher,
	)

	go sweepInactiveSessions(ctx, store, cfg.Session)

	router := handler.NewRouter(controller, store, dispatcher)

	startServer(ctx, cfg.Server, router)

	controller.Wait()
}

// newSessionStore prefers redis when configured so history survives restarts.
func newSessionStore(ctx context.Context, cfg config.RedisConfig) session.Store {
	if !cfg.Enabled() {
		log.Println("REDIS_ADDR not set, using in-memory session store")
		return session.NewMemoryStore()
	}

	store, err := session.NewRedisStore(ctx, session.RedisOptions{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		TTL:      cfg.TTL,
	})
	if err != nil {
		log.Printf("warning: redis unavailable, falling back to in-memory store: %v", err)
		return session.NewMemoryStore()
	}

	log.Printf("redis session store connected addr=%s", cfg.Addr)
	return store
}

// newGateway builds the completion gateway. Without credentials the gateway
// stays misconfigured and every turn resolves to the canned apology.
func newGateway(ctx context.Context, cfg config.AIConfig) *ai.Gateway {
	defaults := ai.Params{}
	if cfg.Temperature != nil {
		defaults.Temperature = ai.Float32(float32(*cfg.Temperature))
	}
	if cfg.TopP != nil {
		defaults.TopP = ai.Float32(float32(*cfg.TopP))
	}
	if cfg.MaxTokens != nil {
		defaults.MaxTokens = ai.Int(*cfg.MaxTokens)
	}
	if cfg.FrequencyPenalty != nil {
		defaults.FrequencyPenalty = ai.Float32(float32(*cfg.FrequencyPenalty))
	}
	if cfg.PresencePenalty != nil {
		defaults.PresencePenalty = ai.Float32(float32(*cfg.PresencePenalty))
	}

	if !cfg.Enabled() {
		log.Println("AI credentials not configured, assistant replies with fallback text only")
		return ai.NewGateway(nil, defaults, cfg.Timeout)
	}

	var provider ai.Provider
	switch cfg.Provider {
	case config.ProviderOpenAI:
		provider = ai.NewOpenAIProvider(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.Model)
	default:
		chatModel, err := cfg.NewArkChatModel(ctx)
		if err != nil {
			log.Printf("warning: failed to initialize ark chat model: %v", err)
			return ai.NewGateway(nil, defaults, cfg.Timeout)
		}
		provider = ai.NewArkProvider(chatModel, cfg.HistoryLimit)
	}

	log.Printf("AI provider initialized provider=%s model=%s", cfg.Provider, cfg.Model)
	return ai.NewGateway(provider, defaults, cfg.Timeout)
}

// newClassifier picks the intent policy: the keyword table by default, the
// model-backed detector when enabled and a chat model is available.
func newClassifier(ctx context.Context, cfg config.AIConfig) intent.Classifier {
	if !cfg.IntentLLMEnabled {
		return intent.NewKeywordClassifier()
	}
	if cfg.Provider != config.ProviderArk || !cfg.Enabled() {
		log.Println("intent detector requested but no ark model available, using keyword table")
		return intent.NewKeywordClassifier()
	}

	chatModel, err := cfg.NewArkChatModel(ctx)
	if err != nil {
		log.Printf("warning: intent detector init failed, using keyword table: %v", err)
		return intent.NewKeywordClassifier()
	}

	detector, err := intent.NewDetector(ctx, chatModel)
	if err != nil {
		log.Printf("warning: intent detector compile failed, using keyword table: %v", err)
		return intent.NewKeywordClassifier()
	}

	log.Println("model-backed intent detector enabled")
	return detector
}

// sweepInactiveSessions abandons sessions idle past the configured cutoff.
func sweepInactiveSessions(ctx context.Context, store session.Store, cfg config.SessionConfig) {
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-cfg.IdleTimeout)
			swept, err := store.AbandonInactive(ctx, cutoff)
			if err != nil {
				log.Printf("[sweep] failed: %v", err)
				continue
			}
			if swept > 0 {
				log.Printf("[sweep] abandoned %d inactive sessions", swept)
			}
		}
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Viet Bistro backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
