package config

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

var validate = validator.New()

// StormConfig configures the load-generation harness.
type StormConfig struct {
	APIURL         string        `validate:"required,url"`
	Rooms          int           `validate:"gte=1"`
	Users          int           `validate:"gte=1"`
	Publishers     int           `validate:"gte=1"`
	Rate           float64       `validate:"gt=0"`
	Duration       time.Duration `validate:"gt=0s"`
	BurstEvery     int           `validate:"gte=0"`
	BurstFactor    float64       `validate:"gt=0"`
	HotSkew        float64       `validate:"gte=1"`
	BodyBytes      int           `validate:"gte=1,lte=4000"`
	ReportInterval time.Duration `validate:"gt=0s"`
	IdleBackoff    time.Duration `validate:"gte=0s"`
	RequestTimeout time.Duration `validate:"gte=0s"`
	LogLevel       string
}

func applyStormDefaults(configViper *viper.Viper) {
	configViper.SetDefault("storm.api_url", "http://localhost:8080")
	configViper.SetDefault("storm.rooms", 3)
	configViper.SetDefault("storm.users", 200)
	configViper.SetDefault("storm.publishers", 50)
	configViper.SetDefault("storm.rate", 200.0)
	configViper.SetDefault("storm.duration", 60*time.Second)
	configViper.SetDefault("storm.burst_every", 0)
	configViper.SetDefault("storm.burst_factor", 3.0)
	configViper.SetDefault("storm.hot_skew", 1.2)
	configViper.SetDefault("storm.body_bytes", 60)
	configViper.SetDefault("storm.report_interval", time.Second)
	configViper.SetDefault("storm.idle_backoff", time.Millisecond)
	configViper.SetDefault("storm.request_timeout", 10*time.Second)
}

// LoadStorm parses and validates the harness configuration.
func LoadStorm(configViper *viper.Viper) (StormConfig, error) {
	cfg := StormConfig{
		APIURL:         configViper.GetString("storm.api_url"),
		Rooms:          configViper.GetInt("storm.rooms"),
		Users:          configViper.GetInt("storm.users"),
		Publishers:     configViper.GetInt("storm.publishers"),
		Rate:           configViper.GetFloat64("storm.rate"),
		Duration:       configViper.GetDuration("storm.duration"),
		BurstEvery:     configViper.GetInt("storm.burst_every"),
		BurstFactor:    configViper.GetFloat64("storm.burst_factor"),
		HotSkew:        configViper.GetFloat64("storm.hot_skew"),
		BodyBytes:      configViper.GetInt("storm.body_bytes"),
		ReportInterval: configViper.GetDuration("storm.report_interval"),
		IdleBackoff:    configViper.GetDuration("storm.idle_backoff"),
		RequestTimeout: configViper.GetDuration("storm.request_timeout"),
		LogLevel:       configViper.GetString("log.level"),
	}

	if err := validate.Struct(cfg); err != nil {
		return StormConfig{}, err
	}
	return cfg, nil
}
