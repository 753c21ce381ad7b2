package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "PEAKFIN_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "mode.regulated_partner", typ: kBool, env: "PEAKFIN_MODE_REGULATED_PARTNER",
		apply:   func(cfg *Config, v any) { cfg.Mode.RegulatedPartner = v.(bool) },
		extract: func(cfg Config) any { return cfg.Mode.RegulatedPartner },
	},
	{
		key: "advisor.provider", typ: kString, env: "PEAKFIN_ADVISOR_PROVIDER",
		apply:   func(cfg *Config, v any) { cfg.Advisor.Provider = v.(string) },
		extract: func(cfg Config) any { return cfg.Advisor.Provider },
	},
	{
		key: "advisor.base_url", typ: kString, env: "PEAKFIN_ADVISOR_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Advisor.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Advisor.BaseURL },
	},
	{
		key: "advisor.model", typ: kString, env: "PEAKFIN_ADVISOR_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Advisor.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Advisor.Model },
	},
	{
		key: "advisor.api_key", typ: kString, env: "PEAKFIN_ADVISOR_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Advisor.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Advisor.APIKey },
	},
	{
		key: "advisor.timeout_seconds", typ: kInt, env: "PEAKFIN_ADVISOR_TIMEOUT_SECONDS",
		apply:   func(cfg *Config, v any) { cfg.Advisor.TimeoutSeconds = v.(int) },
		extract: func(cfg Config) any { return cfg.Advisor.TimeoutSeconds },
	},
	{
		key: "advisor.max_tokens", typ: kInt, env: "PEAKFIN_ADVISOR_MAX_TOKENS",
		apply:   func(cfg *Config, v any) { cfg.Advisor.MaxTokens = v.(int) },
		extract: func(cfg Config) any { return cfg.Advisor.MaxTokens },
	},
	{
		key: "limits.advisor_per_minute", typ: kInt, env: "PEAKFIN_LIMITS_ADVISOR_PER_MINUTE",
		apply:   func(cfg *Config, v any) { cfg.Limits.AdvisorPerMinute = v.(int) },
		extract: func(cfg Config) any { return cfg.Limits.AdvisorPerMinute },
	},
	{
		key: "limits.max_csv_mb", typ: kInt, env: "PEAKFIN_LIMITS_MAX_CSV_MB",
		apply:   func(cfg *Config, v any) { cfg.Limits.MaxCSVMB = v.(int) },
		extract: func(cfg Config) any { return cfg.Limits.MaxCSVMB },
	},
	{
		key: "finance.max_dti", typ: kFloat, env: "PEAKFIN_FINANCE_MAX_DTI",
		apply:   func(cfg *Config, v any) { cfg.Finance.MaxDTI = v.(float64) },
		extract: func(cfg Config) any { return cfg.Finance.MaxDTI },
	},
	{
		key: "finance.fun_ratio", typ: kFloat, env: "PEAKFIN_FINANCE_FUN_RATIO",
		apply:   func(cfg *Config, v any) { cfg.Finance.FunRatio = v.(float64) },
		extract: func(cfg Config) any { return cfg.Finance.FunRatio },
	},
	{
		key: "finance.default_cpi", typ: kFloat, env: "PEAKFIN_FINANCE_DEFAULT_CPI",
		apply:   func(cfg *Config, v any) { cfg.Finance.DefaultCPI = v.(float64) },
		extract: func(cfg Config) any { return cfg.Finance.DefaultCPI },
	},
	{
		key: "auth.bcrypt_cost", typ: kInt, env: "PEAKFIN_AUTH_BCRYPT_COST",
		apply:   func(cfg *Config, v any) { cfg.Auth.BcryptCost = v.(int) },
		extract: func(cfg Config) any { return cfg.Auth.BcryptCost },
	},
	{
		key: "auth.session_ttl_hours", typ: kInt, env: "PEAKFIN_AUTH_SESSION_TTL_HOURS",
		apply:   func(cfg *Config, v any) { cfg.Auth.SessionTTLHours = v.(int) },
		extract: func(cfg Config) any { return cfg.Auth.SessionTTLHours },
	},
	{
		key: "storage.data_dir", typ: kString, env: "PEAKFIN_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "PEAKFIN_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
