package core

import (
	"fmt"
	"strings"
	"time"
)

type LockConfig struct {
	// Padding is added to the queue's first polling frequency when sizing
	// loop-guard TTLs, so a lock outlives the delivery that set it.
	Padding    time.Duration `koanf:"padding" mapstructure:"padding"`
	DefaultTTL time.Duration `koanf:"default_ttl" mapstructure:"default_ttl"`
}

type Config struct {
	ServiceName string     `koanf:"service_name" mapstructure:"service_name"`
	QueueName   string     `koanf:"queue_name" mapstructure:"queue_name"`
	Lock        LockConfig `koanf:"lock" mapstructure:"lock"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "crm-sync",
		QueueName:   "crm_sync_push",
		Lock: LockConfig{
			Padding:    time.Minute,
			DefaultTTL: 5 * time.Minute,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Lock.Padding < 0 {
		return fmt.Errorf("core: lock padding must not be negative")
	}
	if c.Lock.DefaultTTL < 0 {
		return fmt.Errorf("core: lock default_ttl must not be negative")
	}
	return nil
}
