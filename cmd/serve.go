package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"hanteikun/internal/ai/gemini"
	"hanteikun/internal/judge"
	"hanteikun/internal/line"
	"hanteikun/internal/logger"
	"hanteikun/internal/secrets"
	"hanteikun/internal/server"
	"hanteikun/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the LINE webhook server",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		zlog.Fatal("getting a config", zap.Error(err))
	}

	zlog.Info("starting hanteikun", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	zlog.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	channelSecret, err := secrets.Load(secrets.Source{
		Name:  "line channel secret",
		Value: config.Line.ChannelSecret,
		File:  config.Line.ChannelSecretFile,
	})
	if err != nil {
		zlog.Fatal("loading line channel secret",
			zap.Error(err),
			zap.String("hint", "set LINE_CHANNEL_SECRET or the 'line.channel-secret-file' key in the configuration file"),
		)
	}

	channelToken, err := secrets.Load(secrets.Source{
		Name:  "line channel access token",
		Value: config.Line.ChannelToken,
		File:  config.Line.ChannelTokenFile,
	})
	if err != nil {
		zlog.Fatal("loading line channel access token",
			zap.Error(err),
			zap.String("hint", "set LINE_CHANNEL_ACCESS_TOKEN or the 'line.channel-token-file' key in the configuration file"),
		)
	}

	j, err := buildJudge(ctx, config, zlog)
	if err != nil {
		zlog.Fatal("building the judge", zap.Error(err))
	}

	lineClient := line.NewClient(channelToken, zlog)
	srv := server.New(fmt.Sprintf(":%d", config.Server.Port), channelSecret, j, lineClient, zlog)

	if err := srv.Start(ctx); err != nil {
		zlog.Fatal("webhook server stopped", zap.Error(err))
	}

	zlog.Info("exiting", zap.String("reason", "shutdown signal received"))
}

// buildJudge wires the session store, the Gemini generator and the
// orchestrator from the configuration. Shared by serve and repl.
func buildJudge(ctx context.Context, config *Config, zlog *zap.Logger) (*judge.Judge, error) {
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: config.Gemini.APIKey,
		File:  config.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set GEMINI_API_KEY or gemini.api-key-file)", err)
	}

	genLogger := logger.WithCommonFields(zlog, "gemini", config.Gemini.Model)

	generator, err := gemini.NewGenerator(
		ctx,
		apiKey,
		config.Gemini.Model,
		config.Gemini.MaxRetries,
		config.Gemini.Timeout,
		config.Gemini.MaxLogLength,
		genLogger,
	)
	if err != nil {
		return nil, fmt.Errorf("building gemini generator: %w", err)
	}

	store := session.NewMemoryStore()

	return judge.New(store, generator, config.Session.MaxTurns, zlog), nil
}
