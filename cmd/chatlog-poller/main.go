package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/MarcoPoloResearchLab/chatlog/internal/client"
	"github.com/MarcoPoloResearchLab/chatlog/internal/config"
	"github.com/MarcoPoloResearchLab/chatlog/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "chatlog-poller --room <room-id>",
		Short: "Follow a room and print new messages as they arrive",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPoller(cmd.Context())
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
	flags.String("api-url", defaults.GetString("poller.api_url"), "Base URL of the chat log API")
	flags.String("room", "", "Room identifier to follow")
	flags.Int64("after-seq", defaults.GetInt64("poller.after_seq"), "Start after this sequence number")
	flags.Int("limit", defaults.GetInt("poller.limit"), "Page size (0 uses the server default)")
	flags.Duration("interval", defaults.GetDuration("poller.interval"), "Base delay between polls")
	flags.Duration("jitter", defaults.GetDuration("poller.jitter"), "Random extra delay added to each poll")
	flags.Duration("request-timeout", defaults.GetDuration("poller.request_timeout"), "Per-poll timeout (0 disables)")
	flags.String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")

	bindFlag(cmd, "poller.api_url", "api-url")
	bindFlag(cmd, "poller.room_id", "room")
	bindFlag(cmd, "poller.after_seq", "after-seq")
	bindFlag(cmd, "poller.limit", "limit")
	bindFlag(cmd, "poller.interval", "interval")
	bindFlag(cmd, "poller.jitter", "jitter")
	bindFlag(cmd, "poller.request_timeout", "request-timeout")
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

func runPoller(ctx context.Context) error {
	pollerConfig, err := config.LoadPoller(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewConsoleLogger(pollerConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	apiClient, err := client.New(client.Config{
		BaseURL: pollerConfig.APIURL,
		Timeout: pollerConfig.Timeout,
	})
	if err != nil {
		return err
	}

	follower, err := client.NewFollower(client.FollowerConfig{
		Poller:   apiClient,
		RoomID:   pollerConfig.RoomID,
		AfterSeq: pollerConfig.AfterSeq,
		Limit:    pollerConfig.Limit,
		Interval: pollerConfig.Interval,
		Jitter:   pollerConfig.Jitter,
		Output:   os.Stdout,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Debug("following room",
		zap.String("room_id", pollerConfig.RoomID),
		zap.Int64("after_seq", pollerConfig.AfterSeq))
	return follower.Run(signalCtx)
}
