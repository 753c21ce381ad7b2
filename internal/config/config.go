package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Mode    ModeConfig
	Advisor AdvisorConfig
	Limits  LimitsConfig
	Finance FinanceConfig
	Auth    AuthConfig
	Storage StorageConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

type ModeConfig struct {
	RegulatedPartner bool
}

type AdvisorConfig struct {
	Provider       string
	BaseURL        string
	Model          string
	APIKey         string
	TimeoutSeconds int
	MaxTokens      int
}

type LimitsConfig struct {
	AdvisorPerMinute int
	MaxCSVMB         int
}

type FinanceConfig struct {
	MaxDTI     float64
	FunRatio   float64
	DefaultCPI float64
}

type AuthConfig struct {
	BcryptCost      int
	SessionTTLHours int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	dataDir := defaultDataDir()
	return Config{
		Server: ServerConfig{
			Port: 8000,
		},
		Mode: ModeConfig{
			RegulatedPartner: false,
		},
		Advisor: AdvisorConfig{
			Provider:       "offline",
			BaseURL:        "https://api.openai.com/v1",
			Model:          "tiiuae/falcon-7b-instruct",
			TimeoutSeconds: 30,
			MaxTokens:      512,
		},
		Limits: LimitsConfig{
			AdvisorPerMinute: 10,
			MaxCSVMB:         5,
		},
		Finance: FinanceConfig{
			MaxDTI:     0.4,
			FunRatio:   0.15,
			DefaultCPI: 7.0,
		},
		Auth: AuthConfig{
			BcryptCost:      12,
			SessionTTLHours: 24,
		},
		Storage: StorageConfig{
			DataDir: dataDir,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.peakfin.app) and secrets
// fall back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/peakfin/config.json
// and secrets must be provided via environment variables.
//
// A .env file in the working directory is read first when present.
// Environment variables (PEAKFIN_*) override backend values on all platforms.
func Load() (Config, error) {
	_ = godotenv.Load()
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts Keychain access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// Try platform keychain for API key if still empty.
	if cfg.Advisor.APIKey == "" {
		if key, err := kc.Get("peakfin", "advisor_api_key"); err == nil && key != "" {
			cfg.Advisor.APIKey = key
		}
	}

	switch cfg.Advisor.Provider {
	case "offline":
	case "remote":
		if cfg.Advisor.APIKey == "" {
			msg := "missing required config: advisor API key. " +
				"Set it via environment variable PEAKFIN_ADVISOR_API_KEY" +
				apiKeyHint()
			return Config{}, fmt.Errorf("%s", msg)
		}
	default:
		return Config{}, fmt.Errorf("invalid advisor.provider %q (valid: offline, remote)", cfg.Advisor.Provider)
	}

	return cfg, nil
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
