package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"unifac/internal/activity"
	"unifac/internal/storage"
)

const EnvPrefix = "UNIFAC"

type Config struct {
	Store      StoreConfig      `mapstructure:"store"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Evaluation EvaluationConfig `mapstructure:"evaluation"`
}

type StoreConfig struct {
	Kind string `mapstructure:"kind"`
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// EvaluationConfig describes one evaluation run: a table reference and the
// mixture states to evaluate.
type EvaluationConfig struct {
	Table       string        `mapstructure:"table"`
	TableFile   string        `mapstructure:"table_file"`
	Temperature float64       `mapstructure:"temperature"`
	States      []StateConfig `mapstructure:"states"`
	StatesCSV   string        `mapstructure:"states_csv"`
	OutCSV      string        `mapstructure:"out_csv"`
}

type StateConfig struct {
	X []float64 `mapstructure:"x"`
	T float64   `mapstructure:"t"`
}

// Load reads path (or $UNIFAC_CONFIG when path is empty) and applies UNIFAC_*
// environment overrides. A missing path yields defaults plus env.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if path != "" {
		dir := filepath.Dir(path)
		cfg.Evaluation.TableFile = resolvePath(dir, cfg.Evaluation.TableFile)
		cfg.Evaluation.StatesCSV = resolvePath(dir, cfg.Evaluation.StatesCSV)
		cfg.Evaluation.OutCSV = resolvePath(dir, cfg.Evaluation.OutCSV)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.kind", storage.DefaultStoreKind())
	v.SetDefault("store.path", "unifac.db")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("evaluation.temperature", 0.0)
}

// envAliases binds keys that have no default or a shorter variable name.
var envAliases = map[string][]string{
	"logging.level":         {"UNIFAC_LOG_LEVEL", "UNIFAC_LOGGING_LEVEL"},
	"logging.format":        {"UNIFAC_LOG_FORMAT", "UNIFAC_LOGGING_FORMAT"},
	"evaluation.table":      {"UNIFAC_EVALUATION_TABLE"},
	"evaluation.table_file": {"UNIFAC_EVALUATION_TABLE_FILE"},
	"evaluation.states_csv": {"UNIFAC_EVALUATION_STATES_CSV"},
	"evaluation.out_csv":    {"UNIFAC_EVALUATION_OUT_CSV"},
}

func bindEnv(v *viper.Viper) error {
	for key, names := range envAliases {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Store.Kind {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unsupported store kind %q", c.Store.Kind)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unsupported log format %q", c.Logging.Format)
	}
	if c.Evaluation.Table != "" && c.Evaluation.TableFile != "" {
		return fmt.Errorf("evaluation.table and evaluation.table_file are mutually exclusive")
	}
	if len(c.Evaluation.States) > 0 && c.Evaluation.StatesCSV != "" {
		return fmt.Errorf("evaluation.states and evaluation.states_csv are mutually exclusive")
	}
	return nil
}

// Batch returns the inline states; rows without t use the shared temperature.
func (e EvaluationConfig) Batch() []activity.State {
	states := make([]activity.State, len(e.States))
	for i, st := range e.States {
		t := st.T
		if t == 0 {
			t = e.Temperature
		}
		states[i] = activity.State{X: append([]float64(nil), st.X...), T: t}
	}
	return states
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
