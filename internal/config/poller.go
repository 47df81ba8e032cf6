package config

import (
	"time"

	"github.com/spf13/viper"
)

// PollerConfig configures the room-following command line client.
type PollerConfig struct {
	APIURL   string        `validate:"required,url"`
	RoomID   string        `validate:"required"`
	AfterSeq int64         `validate:"gte=0"`
	Limit    int           `validate:"gte=0,lte=200"`
	Interval time.Duration `validate:"gt=0s"`
	Jitter   time.Duration `validate:"gte=0s"`
	// Timeout bounds each poll. Zero disables the timeout.
	Timeout  time.Duration `validate:"gte=0s"`
	LogLevel string
}

func applyPollerDefaults(configViper *viper.Viper) {
	configViper.SetDefault("poller.api_url", "http://localhost:8080")
	configViper.SetDefault("poller.after_seq", 0)
	configViper.SetDefault("poller.limit", 0)
	configViper.SetDefault("poller.interval", 1100*time.Millisecond)
	configViper.SetDefault("poller.jitter", 200*time.Millisecond)
	configViper.SetDefault("poller.request_timeout", 10*time.Second)
}

// LoadPoller parses and validates the poller configuration.
func LoadPoller(configViper *viper.Viper) (PollerConfig, error) {
	cfg := PollerConfig{
		APIURL:   configViper.GetString("poller.api_url"),
		RoomID:   configViper.GetString("poller.room_id"),
		AfterSeq: configViper.GetInt64("poller.after_seq"),
		Limit:    configViper.GetInt("poller.limit"),
		Interval: configViper.GetDuration("poller.interval"),
		Jitter:   configViper.GetDuration("poller.jitter"),
		Timeout:  configViper.GetDuration("poller.request_timeout"),
		LogLevel: configViper.GetString("log.level"),
	}

	if err := validate.Struct(cfg); err != nil {
		return PollerConfig{}, err
	}
	return cfg, nil
}
