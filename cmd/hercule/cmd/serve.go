package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hercule-app/hercule/internal/agent"
	"github.com/hercule-app/hercule/internal/analysis"
	"github.com/hercule-app/hercule/internal/api"
	"github.com/hercule-app/hercule/internal/cache"
	"github.com/hercule-app/hercule/internal/discovery"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analysis service HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	store, err := cache.NewStoreWithOptions(cfg.Cache.Backend, cfg.Cache.Path, cache.Options{
		TTL: cfg.Cache.TTL(),
	})
	if err != nil {
		return err
	}
	defer cache.CloseStore(store)

	var analyzer analysis.Analyzer
	if cfg.LLM.TestMode() {
		logger.Warn("no API key configured, using mock analyzer")
		analyzer = analysis.NewMockAnalyzer()
	} else {
		analyzer = analysis.NewLLMAnalyzer(analysis.LLMOptions{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
		})
	}

	service := analysis.NewService(analyzer, store,
		analysis.WithLogger(logger.WithComponent("analysis").Logger))
	extractor := agent.New(agent.WithLogger(logger.WithComponent("agent").Logger))
	disc := discovery.New(discovery.WithLogger(logger.WithComponent("discovery").Logger))

	server := api.NewServer(service, extractor, disc,
		api.WithLogger(logger.WithComponent("api").Logger),
		api.WithTestMode(cfg.LLM.TestMode()))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting analysis service",
		"addr", cfg.Server.ListenAddr,
		"provider", service.Provider(),
		"cache_backend", cfg.Cache.Backend,
	)
	return server.ListenAndServe(ctx, cfg.Server.ListenAddr)
}
