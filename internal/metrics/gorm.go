package metrics

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	callbackPrefix   = "chatlog:metrics"
	startedAtSetting = "chatlog:metrics_started_at"
)

// InstrumentDatabase registers gorm callbacks that count statements and observe their latency.
func InstrumentDatabase(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("metrics: database is required")
	}

	callbacks := db.Callback()
	hooks := []struct {
		operation string
		register  func(before, after string) error
	}{
		{operation: "create", register: func(before, after string) error {
			if err := callbacks.Create().Before("gorm:create").Register(before, startTimer); err != nil {
				return err
			}
			return callbacks.Create().After("gorm:create").Register(after, observe("create"))
		}},
		{operation: "query", register: func(before, after string) error {
			if err := callbacks.Query().Before("gorm:query").Register(before, startTimer); err != nil {
				return err
			}
			return callbacks.Query().After("gorm:query").Register(after, observe("query"))
		}},
		{operation: "update", register: func(before, after string) error {
			if err := callbacks.Update().Before("gorm:update").Register(before, startTimer); err != nil {
				return err
			}
			return callbacks.Update().After("gorm:update").Register(after, observe("update"))
		}},
		{operation: "delete", register: func(before, after string) error {
			if err := callbacks.Delete().Before("gorm:delete").Register(before, startTimer); err != nil {
				return err
			}
			return callbacks.Delete().After("gorm:delete").Register(after, observe("delete"))
		}},
		{operation: "row", register: func(before, after string) error {
			if err := callbacks.Row().Before("gorm:row").Register(before, startTimer); err != nil {
				return err
			}
			return callbacks.Row().After("gorm:row").Register(after, observe("row"))
		}},
		{operation: "raw", register: func(before, after string) error {
			if err := callbacks.Raw().Before("gorm:raw").Register(before, startTimer); err != nil {
				return err
			}
			return callbacks.Raw().After("gorm:raw").Register(after, observe("raw"))
		}},
	}

	for _, hook := range hooks {
		before := fmt.Sprintf("%s:before_%s", callbackPrefix, hook.operation)
		after := fmt.Sprintf("%s:after_%s", callbackPrefix, hook.operation)
		if err := hook.register(before, after); err != nil {
			return fmt.Errorf("metrics: register %s callbacks: %w", hook.operation, err)
		}
	}
	return nil
}

func startTimer(db *gorm.DB) {
	db.InstanceSet(startedAtSetting, time.Now())
}

func observe(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		DBQueriesTotal.WithLabelValues(operation).Inc()
		value, ok := db.InstanceGet(startedAtSetting)
		if !ok {
			return
		}
		startedAt, ok := value.(time.Time)
		if !ok {
			return
		}
		DBQueryDuration.WithLabelValues(operation).Observe(time.Since(startedAt).Seconds())
	}
}
