package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/MarcoPoloResearchLab/chatlog/internal/client"
	"github.com/MarcoPoloResearchLab/chatlog/internal/config"
	"github.com/MarcoPoloResearchLab/chatlog/internal/loadgen"
	"github.com/MarcoPoloResearchLab/chatlog/internal/logging"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "chatlog-storm",
		Short: "Drive skewed, bursty publish traffic at a chat log and report latency percentiles",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStorm(cmd.Context())
		},
		SilenceUsage: true,
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Path to configuration file")
	flags.String("api-url", defaults.GetString("storm.api_url"), "Base URL of the chat log API")
	flags.Int("rooms", defaults.GetInt("storm.rooms"), "Number of rooms to create")
	flags.Int("users", defaults.GetInt("storm.users"), "Number of synthetic users")
	flags.Int("publishers", defaults.GetInt("storm.publishers"), "Number of concurrent publishers")
	flags.Float64("rate", defaults.GetFloat64("storm.rate"), "Target messages per second")
	flags.Duration("duration", defaults.GetDuration("storm.duration"), "Run length")
	flags.Int("burst-every", defaults.GetInt("storm.burst_every"), "Burst every N seconds (0 disables bursts)")
	flags.Float64("burst-factor", defaults.GetFloat64("storm.burst_factor"), "Refill multiplier on burst seconds")
	flags.Float64("hot-skew", defaults.GetFloat64("storm.hot_skew"), "Zipf skew of room popularity")
	flags.Int("body-bytes", defaults.GetInt("storm.body_bytes"), "Message body length")
	flags.Duration("report-interval", defaults.GetDuration("storm.report_interval"), "Progress line interval")
	flags.Duration("idle-backoff", defaults.GetDuration("storm.idle_backoff"), "Initial sleep when no token is available")
	flags.Duration("request-timeout", defaults.GetDuration("storm.request_timeout"), "Per-request timeout (0 disables)")
	flags.String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")

	bindFlag(cmd, "storm.api_url", "api-url")
	bindFlag(cmd, "storm.rooms", "rooms")
	bindFlag(cmd, "storm.users", "users")
	bindFlag(cmd, "storm.publishers", "publishers")
	bindFlag(cmd, "storm.rate", "rate")
	bindFlag(cmd, "storm.duration", "duration")
	bindFlag(cmd, "storm.burst_every", "burst-every")
	bindFlag(cmd, "storm.burst_factor", "burst-factor")
	bindFlag(cmd, "storm.hot_skew", "hot-skew")
	bindFlag(cmd, "storm.body_bytes", "body-bytes")
	bindFlag(cmd, "storm.report_interval", "report-interval")
	bindFlag(cmd, "storm.idle_backoff", "idle-backoff")
	bindFlag(cmd, "storm.request_timeout", "request-timeout")
	bindFlag(cmd, "log.level", "log-level")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runStorm(ctx context.Context) error {
	stormConfig, err := config.LoadStorm(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewConsoleLogger(stormConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	apiClient, err := client.New(client.Config{
		BaseURL: stormConfig.APIURL,
		Timeout: stormConfig.RequestTimeout,
	})
	if err != nil {
		return err
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("storm configured", zap.Any("config", stormConfig))

	summary, err := loadgen.Run(signalCtx, loadgen.Config{
		Rooms:          stormConfig.Rooms,
		Users:          stormConfig.Users,
		Publishers:     stormConfig.Publishers,
		Rate:           stormConfig.Rate,
		Duration:       stormConfig.Duration,
		BurstEvery:     stormConfig.BurstEvery,
		BurstFactor:    stormConfig.BurstFactor,
		HotSkew:        stormConfig.HotSkew,
		BodyBytes:      stormConfig.BodyBytes,
		ReportInterval: stormConfig.ReportInterval,
		IdleBackoff:    stormConfig.IdleBackoff,
	}, loadgen.Dependencies{
		API:    apiClient,
		Output: os.Stdout,
		Logger: logger,
		Colour: isatty.IsTerminal(os.Stdout.Fd()),
	})
	if err != nil {
		logger.Error("storm aborted", zap.Error(err))
		return err
	}

	loadgen.WriteSummary(os.Stdout, summary)
	return nil
}
