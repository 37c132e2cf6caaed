package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// CommerceConfig holds marketplace pricing parameters that operators may tune at runtime.
type CommerceConfig struct {
	CommissionRate float64  `mapstructure:"commissionRate"`
	MinimumAmount  int64    `mapstructure:"minimumAmount"`
	Currencies     []string `mapstructure:"currencies"`
}

func DefaultCommerceConfig() CommerceConfig {
	return CommerceConfig{
		CommissionRate: 0.05,
		MinimumAmount:  50,
		Currencies:     []string{"usd", "eur", "gbp"},
	}
}

// AllowsCurrency reports whether the currency may be charged. An empty allow-list accepts all.
func (c CommerceConfig) AllowsCurrency(currency string) bool {
	if len(c.Currencies) == 0 {
		return true
	}
	currency = strings.ToLower(strings.TrimSpace(currency))
	for _, allowed := range c.Currencies {
		if strings.ToLower(strings.TrimSpace(allowed)) == currency {
			return true
		}
	}
	return false
}

type CommerceConfigHolder struct {
	current atomic.Value // holds CommerceConfig
}

// NewStaticCommerceConfigHolder returns a holder that never reloads.
func NewStaticCommerceConfigHolder(cfg CommerceConfig) *CommerceConfigHolder {
	holder := &CommerceConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewCommerceConfigHolder(log *zap.Logger) (*CommerceConfigHolder, error) {
	log = log.Named("config.commerce")
	v := viper.New()

	v.SetConfigName("commerce")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/gouache/config")
	v.AddConfigPath("/etc/gouache")
	v.AddConfigPath(".")

	v.SetEnvPrefix("GOUACHE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultCommerceConfig()
	v.SetDefault("commerce.commissionRate", defaults.CommissionRate)
	v.SetDefault("commerce.minimumAmount", defaults.MinimumAmount)
	v.SetDefault("commerce.currencies", defaults.Currencies)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg CommerceConfig
	if err := v.UnmarshalKey("commerce", &cfg); err != nil {
		return nil, err
	}
	if err := validateCommerceConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticCommerceConfigHolder(cfg)
	if !fileLoaded {
		log.Info("commerce config file not found, using defaults",
			zap.Float64("commission_rate", cfg.CommissionRate),
			zap.Int64("minimum_amount", cfg.MinimumAmount),
		)
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated CommerceConfig
		if err := v.UnmarshalKey("commerce", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateCommerceConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *CommerceConfigHolder) Get() CommerceConfig {
	return h.current.Load().(CommerceConfig)
}

func validateCommerceConfig(cfg CommerceConfig) error {
	if cfg.CommissionRate < 0 || cfg.CommissionRate >= 1 {
		return errors.New("commerce.commissionRate must be in [0, 1)")
	}
	if cfg.MinimumAmount < 1 {
		return errors.New("commerce.minimumAmount must be positive")
	}
	return nil
}
