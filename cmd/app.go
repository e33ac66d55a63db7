package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"pikabook/internal/cache"
	"pikabook/internal/config"
	"pikabook/internal/llm"
	"pikabook/internal/logger"
	"pikabook/internal/ocr"
	"pikabook/internal/store"
	"pikabook/internal/translate"
	"pikabook/internal/workflow"
)

// app bundles the services a command needs, built on demand from the
// environment configuration. Close releases whatever was opened.
type app struct {
	cfg   *config.Config
	store *store.Store
	cache *cache.Manager
	log   zerolog.Logger

	ocrSvc ocr.Service
}

// newApp loads configuration and opens the store and the two cache tiers.
// Commands that need the pipeline call buildWorkflow on top of this.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, err
	}

	opts := cache.Options{
		TTL:        cfg.CacheTTL,
		MaxPerType: cfg.CacheMaxPerType,
		PruneBatch: cfg.CachePruneBatch,
	}
	persistent, err := cache.NewSQLite(cfg.CachePath, opts)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &app{
		cfg:   cfg,
		store: st,
		cache: cache.NewManager(cache.NewMemory(opts), persistent),
		log:   logger.WithComponent("app"),
	}, nil
}

func (a *app) Close() {
	if a.ocrSvc != nil {
		if err := a.ocrSvc.Close(); err != nil {
			a.log.Warn().Err(err).Msg("Failed to close OCR service")
		}
	}
	if err := a.cache.Close(); err != nil {
		a.log.Warn().Err(err).Msg("Failed to close cache")
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("Failed to close store")
	}
}

// buildWorkflow wires OCR, the LLM translator and the machine-translation
// fallback chain into the two-phase pipeline.
func (a *app) buildWorkflow(ctx context.Context) (*workflow.Workflow, error) {
	ocrSvc, err := ocr.New(ctx, a.cfg.OCRProvider)
	if err != nil {
		return nil, err
	}
	a.ocrSvc = ocrSvc

	llmSvc, llmErr := llm.NewService(ctx)
	if llmErr != nil {
		// Without an LLM the pipeline can still run on machine translation
		a.log.Warn().Err(llmErr).Msg("LLM unavailable, relying on machine translation")
		llmSvc = nil
	}

	// Assign through a check so a nil *Chain never hides inside a non-nil
	// interface value
	var fallback workflow.FallbackTranslator
	if chain := a.buildFallback(ctx); chain != nil {
		fallback = chain
	}
	if llmSvc == nil && fallback == nil {
		return nil, llmErr
	}

	return workflow.New(ocrSvc, llmSvc, fallback, a.store, a.cache, workflow.Config{
		Workers: a.cfg.PipelineWorkers,
	})
}

// buildFallback assembles the machine-translation chain from whichever
// providers have credentials. May return nil.
func (a *app) buildFallback(ctx context.Context) *translate.Chain {
	var providers []translate.Translator

	google, err := translate.NewGoogleTranslator(ctx, a.cfg.TranslateTargetLang)
	if err != nil {
		a.log.Debug().Err(err).Msg("Google translate unavailable")
	} else {
		providers = append(providers, google)
	}

	providers = append(providers,
		translate.NewPapagoTranslator(a.cfg.PapagoClientID, a.cfg.PapagoClientSecret, a.cfg.TranslateTargetLang))

	chain := translate.NewChain(providers...)
	if chain.Len() == 0 {
		return nil
	}
	return chain
}

// commandContext creates a context with timeout that is also canceled on
// SIGINT/SIGTERM so half-processed pages settle into failed, not limbo.
func commandContext(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
