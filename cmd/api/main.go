package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/http/handlers"
	"server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/infra/geoip"
	"server/internal/mediagen"
	"server/internal/middleware"
	"server/internal/providers"
	"server/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	store, err := newObjectStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}

	countryLookup := newCountryLookup(cfg, &logger)

	mediaRepo := repo.NewMediaRepository(dbpool)
	veo := providers.NewVeoVideo(providers.VeoVideoOptions{
		APIKey:  cfg.Providers.GeminiAPIKey,
		BaseURL: cfg.Providers.GeminiBaseURL,
		Model:   cfg.Providers.VeoModel,
		Logger:  &logger,
	})
	poller := mediagen.NewPoller(cfg.Poll, &logger)
	orchestrator := &mediagen.Orchestrator{
		Resolver: &mediagen.Resolver{
			Repo:         mediaRepo,
			Store:        store,
			Stager:       veo,
			StageRetries: cfg.Poll.StageRetries,
			Logger:       &logger,
		},
		ImageChain: mediagen.NewChain(imageAdapters(cfg, &logger), poller, &logger),
		VideoChain: mediagen.NewChain(videoAdapters(cfg, veo), poller, &logger),
		Rehydrator: mediagen.NewRehydrator(store, &logger),
		Repo:       mediaRepo,
		Logger:     &logger,
	}

	staticDir := ""
	if fs, ok := store.(*storage.FileStore); ok {
		staticDir = fs.BasePath()
	}

	app := handlers.NewApp(orchestrator, mediaRepo, store, &logger)
	router := httpapi.NewRouter(app, httpapi.RouterOptions{
		Logger:          logger,
		AllowedOrigins:  cfg.AllowedOrigins,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   countryLookup,
		RateLimitPerMin: cfg.RateLimitPerMin,
		StaticDir:       staticDir,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

// imageAdapters builds the image chain in configured priority order.
func imageAdapters(cfg *infra.Config, logger *infra.Logger) []providers.Adapter {
	available := map[string]providers.Adapter{
		"gemini": providers.NewGeminiImage(providers.GeminiImageOptions{
			APIKey:  cfg.Providers.GeminiAPIKey,
			BaseURL: cfg.Providers.GeminiBaseURL,
			Model:   cfg.Providers.GeminiModel,
			Logger:  logger,
		}),
		"openai": providers.NewOpenAIImage(providers.OpenAIImageOptions{
			APIKey:  cfg.Providers.OpenAIAPIKey,
			BaseURL: cfg.Providers.OpenAIBaseURL,
			Model:   cfg.Providers.OpenAIModel,
			Logger:  logger,
		}),
		"qwen": providers.NewQwenImage(providers.QwenImageOptions{
			APIKey:  cfg.Providers.DashScopeAPIKey,
			BaseURL: cfg.Providers.DashScopeURL,
			Model:   cfg.Providers.DashScopeModel,
			Logger:  logger,
		}),
	}

	var chain []providers.Adapter
	for _, name := range cfg.Providers.ImageOrder {
		if adapter, ok := available[name]; ok {
			chain = append(chain, adapter)
		} else {
			logger.Warn().Str("provider", name).Msg("unknown image provider in order, skipping")
		}
	}
	return chain
}

func videoAdapters(cfg *infra.Config, veo providers.Adapter) []providers.Adapter {
	var chain []providers.Adapter
	for _, name := range cfg.Providers.VideoOrder {
		if name == "veo" {
			chain = append(chain, veo)
		}
	}
	return chain
}

func newObjectStore(cfg *infra.Config) (storage.ObjectStore, error) {
	switch cfg.Storage.Provider {
	case "file":
		return storage.NewFileStore(cfg.Storage.BasePath, cfg.Storage.PublicURL)
	default:
		return storage.NewMinioStore(storage.MinioConfig{
			Endpoint:  cfg.Storage.Endpoint,
			Region:    cfg.Storage.Region,
			Bucket:    cfg.Storage.Bucket,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
			PublicURL: cfg.Storage.PublicURL,
		})
	}
}

func newCountryLookup(cfg *infra.Config, logger *infra.Logger) middleware.CountryLookup {
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip unavailable, country detection degraded")
		return nil
	}
	if resolver == nil {
		return nil
	}
	return resolver.CountryCode
}
