package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// SafetyBuffer is the margin subtracted from raw headroom before a routing
// decision is allowed. Amount is an absolute money value; Percent is applied
// to the entity threshold. The larger of the two wins.
type SafetyBuffer struct {
	Amount  float64 `mapstructure:"amount"`
	Percent float64 `mapstructure:"percent"`
}

// RiskTier maps a utilization lower bound to a named risk level.
type RiskTier struct {
	Level          string  `mapstructure:"level"`
	MinUtilization float64 `mapstructure:"minUtilization"`
}

// PlanPreference pins a plan key to an ordered list of entity codes that
// should receive its revenue when they still qualify.
type PlanPreference struct {
	PlanKey           string   `mapstructure:"planKey"`
	PreferredEntities []string `mapstructure:"preferredEntities"`
}

type RoutingConfig struct {
	SafetyBuffer SafetyBuffer     `mapstructure:"safetyBuffer"`
	RiskTiers    []RiskTier       `mapstructure:"riskTiers"`
	Plans        []PlanPreference `mapstructure:"plans"`
}

func DefaultRoutingConfig() RoutingConfig {
	return RoutingConfig{
		SafetyBuffer: SafetyBuffer{Amount: 500},
		RiskTiers: []RiskTier{
			{Level: "CRITICAL", MinUtilization: 0.95},
			{Level: "HIGH", MinUtilization: 0.80},
			{Level: "MEDIUM", MinUtilization: 0.50},
			{Level: "LOW", MinUtilization: 0},
		},
	}
}

// PreferredEntities returns the ordered entity codes configured for planKey.
func (c RoutingConfig) PreferredEntities(planKey string) []string {
	planKey = strings.TrimSpace(planKey)
	if planKey == "" {
		return nil
	}
	for _, plan := range c.Plans {
		if strings.EqualFold(plan.PlanKey, planKey) {
			return plan.PreferredEntities
		}
	}
	return nil
}

// RoutingConfigHolder serves the current routing configuration and hot-reloads
// it when the backing file changes.
type RoutingConfigHolder struct {
	current atomic.Value // holds RoutingConfig
}

func NewRoutingConfigHolder() (*RoutingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("routing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/revroute/config")
	v.AddConfigPath("/etc/revroute")
	v.AddConfigPath(".")

	v.SetEnvPrefix("REVROUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		defaults := DefaultRoutingConfig()
		v.SetDefault("routing.safetyBuffer", defaults.SafetyBuffer)
		v.SetDefault("routing.riskTiers", defaults.RiskTiers)
	}

	holder := &RoutingConfigHolder{}
	if err := holder.reload(v); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if err := holder.reload(v); err != nil {
			log.Printf("routing config reload failed: %v", err)
		}
	})
	v.WatchConfig()

	return holder, nil
}

func (h *RoutingConfigHolder) reload(v *viper.Viper) error {
	var cfg RoutingConfig
	if err := v.UnmarshalKey("routing", &cfg); err != nil {
		return err
	}
	cfg = cfg.withDefaults()
	h.current.Store(cfg)
	return nil
}

// Current returns the active routing configuration.
func (h *RoutingConfigHolder) Current() RoutingConfig {
	if h == nil {
		return DefaultRoutingConfig()
	}
	if cfg, ok := h.current.Load().(RoutingConfig); ok {
		return cfg
	}
	return DefaultRoutingConfig()
}

// NewStaticRoutingConfigHolder wraps a fixed configuration. Used in tests.
func NewStaticRoutingConfigHolder(cfg RoutingConfig) *RoutingConfigHolder {
	holder := &RoutingConfigHolder{}
	holder.current.Store(cfg.withDefaults())
	return holder
}

func (c RoutingConfig) withDefaults() RoutingConfig {
	defaults := DefaultRoutingConfig()
	if c.SafetyBuffer.Amount <= 0 && c.SafetyBuffer.Percent <= 0 {
		c.SafetyBuffer = defaults.SafetyBuffer
	}
	if len(c.RiskTiers) == 0 {
		c.RiskTiers = defaults.RiskTiers
	}
	return c
}
