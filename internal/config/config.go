// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	RPCList      []string `mapstructure:"rpc_list"`
	WebSocketURL string   `mapstructure:"websocket_url"`

	// Submission behavior. Millisecond fields come from the file, the
	// Duration fields are derived after unmarshal.
	CommitLevel       string        `mapstructure:"commit_level"`
	ResendInterval    time.Duration `mapstructure:"-"`
	ResendIntervalMS  int           `mapstructure:"resend_interval"`
	PollInterval      time.Duration `mapstructure:"-"`
	PollIntervalMS    int           `mapstructure:"poll_interval"`
	SubmitTimeout     time.Duration `mapstructure:"-"`
	SubmitTimeoutMS   int           `mapstructure:"submit_timeout"`
	DiagnoseTimeout   time.Duration `mapstructure:"-"`
	DiagnoseTimeoutMS int           `mapstructure:"diagnose_timeout"`
	SkipPreflight     bool          `mapstructure:"skip_preflight"`

	Workers      int    `mapstructure:"workers"`
	WalletsFile  string `mapstructure:"wallets_file"`
	TasksFile    string `mapstructure:"tasks_file"`
	ResultsFile  string `mapstructure:"results_file"`
	DebugLogging bool   `mapstructure:"debug_logging"`
	LogFile      string `mapstructure:"log_file"`
	MetricsAddr  string `mapstructure:"metrics_addr"`

	// Keygen.sh licensing, optional. Empty account ID disables the gate.
	License         string `mapstructure:"license"`
	KeygenAccountID string `mapstructure:"keygen_account_id"`
	KeygenProductID string `mapstructure:"keygen_product_id"`
	KeygenToken     string `mapstructure:"keygen_token"`
}

const (
	DefaultResendInterval  = 500
	DefaultPollInterval    = 500
	DefaultSubmitTimeout   = 30000
	DefaultDiagnoseTimeout = 10000
	DefaultWorkers         = 5
	DefaultCommitLevel     = "confirmed"
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"resend_interval":  DefaultResendInterval,
		"poll_interval":    DefaultPollInterval,
		"submit_timeout":   DefaultSubmitTimeout,
		"diagnose_timeout": DefaultDiagnoseTimeout,
		"workers":          DefaultWorkers,
		"commit_level":     DefaultCommitLevel,
		"skip_preflight":   true,
		"wallets_file":     "wallets.yaml",
		"tasks_file":       "tasks.csv",
		"log_file":         "lander.log",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config error: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	// Convert ms to Duration
	cfg.ResendInterval = time.Duration(cfg.ResendIntervalMS) * time.Millisecond
	cfg.PollInterval = time.Duration(cfg.PollIntervalMS) * time.Millisecond
	cfg.SubmitTimeout = time.Duration(cfg.SubmitTimeoutMS) * time.Millisecond
	cfg.DiagnoseTimeout = time.Duration(cfg.DiagnoseTimeoutMS) * time.Millisecond

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list must contain at least one RPC endpoint")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return fmt.Errorf("invalid RPC URL %q: %w", MaskURL(rpcURL), err)
		}
	}
	if cfg.WebSocketURL != "" {
		if err := validateURLWithCache(cfg.WebSocketURL, "ws"); err != nil {
			return fmt.Errorf("invalid WebSocket URL: %w", err)
		}
	}
	switch cfg.CommitLevel {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("invalid commit_level %q", cfg.CommitLevel)
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.ResendIntervalMS <= 0 {
		return errors.New("invalid resend_interval")
	}
	if cfg.PollIntervalMS <= 0 {
		return errors.New("invalid poll_interval")
	}
	if cfg.SubmitTimeoutMS <= 0 {
		return errors.New("invalid submit_timeout")
	}
	if cfg.DiagnoseTimeoutMS <= 0 {
		return errors.New("invalid diagnose_timeout")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("LANDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if envLicense := v.GetString("LICENSE"); envLicense != "" {
		cfg.License = envLicense
	}

	if envRPCList := v.GetString("RPC_LIST"); envRPCList != "" {
		var cleanRPCs []string
		for _, rpc := range strings.Split(envRPCList, ",") {
			if clean := strings.TrimSpace(rpc); clean != "" {
				cleanRPCs = append(cleanRPCs, clean)
			}
		}
		if len(cleanRPCs) > 0 {
			cfg.RPCList = cleanRPCs
		}
	}
	return nil
}

// MaskURL hides API keys in endpoint URLs before they reach logs.
func MaskURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	query := parsed.Query()
	changed := false
	for _, key := range []string{"api-key", "apikey", "token"} {
		if query.Has(key) {
			query.Set(key, "masked")
			changed = true
		}
	}
	if !changed {
		return rawURL
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// MaskedRPCList returns the endpoint list with API keys hidden.
func (c *Config) MaskedRPCList() []string {
	masked := make([]string, len(c.RPCList))
	for i, rpc := range c.RPCList {
		masked[i] = MaskURL(rpc)
	}
	return masked
}
