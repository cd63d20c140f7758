package config

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/recovery-kernel/internal/registry"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type BreakerConfig struct {
	FailureThreshold int    `mapstructure:"failure_threshold"`
	SuccessThreshold int    `mapstructure:"success_threshold"`
	Timeout          string `mapstructure:"timeout"`
}

type RetryConfig struct {
	MaxAttempts int    `mapstructure:"max_attempts"`
	Delay       string `mapstructure:"delay"`
}

type DependencyConfig struct {
	Component string `mapstructure:"component"`
	Soft      bool   `mapstructure:"soft"`
}

type ComponentConfig struct {
	Name         string             `mapstructure:"name"`
	Criticality  string             `mapstructure:"criticality"`
	Capabilities []string           `mapstructure:"capabilities"`
	Dependencies []DependencyConfig `mapstructure:"dependencies"`
	Retry        RetryConfig        `mapstructure:"retry"`
	Fallbacks    map[string]string  `mapstructure:"fallbacks"`
}

type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	Logging    LoggingConfig     `mapstructure:"logging"`
	Breaker    BreakerConfig     `mapstructure:"circuit_breaker"`
	Components []ComponentConfig `mapstructure:"components"`
}

func Load() (*Config, error) {
	viper.SetDefault("server.environment", EnvDev)
	viper.SetDefault("server.address", ":9090")
	viper.SetDefault("logging.level", LogLevelInfo)
	viper.SetDefault("circuit_breaker.failure_threshold", 5)
	viper.SetDefault("circuit_breaker.success_threshold", 3)
	viper.SetDefault("circuit_breaker.timeout", "60s")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Error("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Breaker,
			validation.Required,
			validation.By(func(value interface{}) error {
				bc, ok := value.(BreakerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a BreakerConfig")
				}
				return validation.ValidateStruct(&bc,
					validation.Field(&bc.FailureThreshold, validation.Required, validation.Min(1)),
					validation.Field(&bc.SuccessThreshold, validation.Required, validation.Min(1)),
					validation.Field(&bc.Timeout, validation.Required, validation.By(validateDuration)),
				)
			}),
		),
		validation.Field(&c.Components,
			validation.Each(validation.By(validateComponentConfig)),
		),
	)
}

func validateComponentConfig(value interface{}) error {
	cc, ok := value.(ComponentConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a ComponentConfig")
	}
	return validation.ValidateStruct(&cc,
		validation.Field(&cc.Name, validation.Required),
		validation.Field(&cc.Criticality,
			validation.Required,
			validation.In(
				string(registry.CriticalityRequired),
				string(registry.CriticalityDegradedOK),
				string(registry.CriticalityOptional),
			),
		),
		validation.Field(&cc.Retry,
			validation.By(func(value interface{}) error {
				rc, ok := value.(RetryConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a RetryConfig")
				}
				return validation.ValidateStruct(&rc,
					validation.Field(&rc.MaxAttempts, validation.Min(0)),
					validation.Field(&rc.Delay,
						validation.When(rc.Delay != "", validation.By(validateDuration)),
					),
				)
			}),
		),
		validation.Field(&cc.Dependencies,
			validation.Each(validation.By(func(value interface{}) error {
				dc, ok := value.(DependencyConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a DependencyConfig")
				}
				return validation.ValidateStruct(&dc,
					validation.Field(&dc.Component, validation.Required),
				)
			})),
		),
	)
}

// Definition converts a component entry into its registry form, parsing
// durations and the criticality class.
func (cc ComponentConfig) Definition() (registry.Definition, error) {
	delay := time.Duration(0)
	if cc.Retry.Delay != "" {
		parsed, err := time.ParseDuration(cc.Retry.Delay)
		if err != nil {
			return registry.Definition{}, fmt.Errorf("component %q: invalid retry delay: %w", cc.Name, err)
		}
		delay = parsed
	}

	deps := make([]registry.Dependency, 0, len(cc.Dependencies))
	for _, dep := range cc.Dependencies {
		deps = append(deps, registry.Dependency{Component: dep.Component, Soft: dep.Soft})
	}

	fallbacks := make(map[string]string, len(cc.Fallbacks))
	for capability, provider := range cc.Fallbacks {
		fallbacks[capability] = provider
	}

	return registry.Definition{
		Name:                    cc.Name,
		Criticality:             registry.Criticality(cc.Criticality),
		Dependencies:            deps,
		Capabilities:            cc.Capabilities,
		RetryMaxAttempts:        cc.Retry.MaxAttempts,
		RetryDelay:              delay,
		FallbackForCapabilities: fallbacks,
	}, nil
}

// BreakerSettings parses the breaker section into concrete thresholds.
func (bc BreakerConfig) BreakerSettings() (failureThreshold, successThreshold int, timeout time.Duration, err error) {
	timeout, err = time.ParseDuration(bc.Timeout)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid circuit breaker timeout: %w", err)
	}
	return bc.FailureThreshold, bc.SuccessThreshold, timeout, nil
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cant be empty")
	}

	return nil
}

func validateDuration(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(s); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration like 2s or 500ms")
	}

	return nil
}
