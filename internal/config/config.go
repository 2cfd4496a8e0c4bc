package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/winspay-gate/internal/domain"
	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "WG"
	configName = "config"
	configType = "toml"
	appDirName = "winspay-gate"

	KeySupabaseURL       = "supabase.url"
	KeySupabaseAnonKey   = "supabase.anon_key"
	KeyFunctionsPath     = "supabase.functions_path"
	KeyProfilesTable     = "supabase.profiles_table"
	KeyRequestTimeout    = "supabase.request_timeout"
	KeyFetchTimeout      = "fetch_timeout"
	KeyFailOpenStatus    = "fail_open_status"
	KeyPollInterval      = "onboarding.poll_interval"
	KeyProfilesBackend   = "profiles.backend"
	KeyProfilesPath      = "profiles.path"
	KeySecretsBackend    = "secrets.backend"
	KeySecretsDir        = "secrets.dir"
	KeySecretsPassPrefix = "secrets.pass_prefix"
	KeyAuthListenAddr    = "auth.listen_addr"
	KeyAuthProvider      = "auth.oauth_provider"
	KeyAuthCallback      = "auth.callback_timeout"
	KeyAuthRefreshSkew   = "auth.refresh_skew"
	KeyLogLevel          = "log.level"
	KeyLogFormat         = "log.format"
)

const (
	ProfilesBackendSupabase = "supabase"
	ProfilesBackendFile     = "file"

	SecretsBackendChain = "chain"
	SecretsBackendFile  = "file"
	SecretsBackendPass  = "pass"
)

type Config struct {
	Supabase   SupabaseConfig
	Onboarding OnboardingConfig
	Profiles   ProfilesConfig
	Secrets    SecretsConfig
	Auth       AuthConfig
	Log        LogConfig
	// File is the config file that was read, empty when none was found.
	File string
}

type SupabaseConfig struct {
	URL            string
	AnonKey        string
	FunctionsPath  string
	ProfilesTable  string
	RequestTimeout time.Duration
}

type OnboardingConfig struct {
	FetchTimeout   time.Duration
	FailOpenStatus domain.OnboardingStatus
	PollInterval   time.Duration
}

type ProfilesConfig struct {
	Backend string
	Path    string
}

type SecretsConfig struct {
	Backend    string
	Dir        string
	PassPrefix string
}

type AuthConfig struct {
	ListenAddr      string
	OAuthProvider   string
	CallbackTimeout time.Duration
	RefreshSkew     time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads config.toml from the app config directory (or the file named by
// WG_CONFIG) and applies WG_* environment overrides. A missing file is not an
// error.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}
	appDir := filepath.Join(homeDir, ".config", appDirName)

	setDefaults(v, appDir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindFallbackEnv(v); err != nil {
		return Config{}, err
	}

	if explicit := os.Getenv(EnvPrefix + "_CONFIG"); explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(appDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return Config{}, err
	}
	cfg.File = v.ConfigFileUsed()

	return cfg, nil
}

func setDefaults(v *viper.Viper, appDir string) {
	v.SetDefault(KeyFunctionsPath, "functions/v1")
	v.SetDefault(KeyProfilesTable, "profiles")
	v.SetDefault(KeyRequestTimeout, "15s")
	v.SetDefault(KeyFetchTimeout, "15s")
	v.SetDefault(KeyFailOpenStatus, string(domain.FetchFailureStatus))
	v.SetDefault(KeyPollInterval, "3s")
	v.SetDefault(KeyProfilesBackend, ProfilesBackendSupabase)
	v.SetDefault(KeyProfilesPath, filepath.Join(appDir, "profiles.toml"))
	v.SetDefault(KeySecretsBackend, SecretsBackendChain)
	v.SetDefault(KeySecretsDir, filepath.Join(appDir, "secrets"))
	v.SetDefault(KeySecretsPassPrefix, appDirName)
	v.SetDefault(KeyAuthListenAddr, "127.0.0.1:54321")
	v.SetDefault(KeyAuthProvider, "google")
	v.SetDefault(KeyAuthCallback, "5m")
	v.SetDefault(KeyAuthRefreshSkew, "60s")
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLogFormat, "text")
}

// bindFallbackEnv lets the variables an app build already exports stand in
// for the WG_ ones.
func bindFallbackEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		KeySupabaseURL:     {EnvPrefix + "_SUPABASE_URL", "SUPABASE_URL", "EXPO_PUBLIC_SUPABASE_URL"},
		KeySupabaseAnonKey: {EnvPrefix + "_SUPABASE_ANON_KEY", "SUPABASE_ANON_KEY", "EXPO_PUBLIC_SUPABASE_KEY", "EXPO_PUBLIC_SUPABASE_ANON_KEY"},
	}
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("bind %s env: %w", key, err)
		}
	}

	return nil
}

func decode(v *viper.Viper) (Config, error) {
	var errs []error

	duration := func(key string) time.Duration {
		raw := strings.TrimSpace(v.GetString(key))
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", key, raw))
			return 0
		}
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s: must be positive", key))
		}
		return d
	}
	oneOf := func(key string, allowed ...string) string {
		value := strings.ToLower(strings.TrimSpace(v.GetString(key)))
		for _, candidate := range allowed {
			if value == candidate {
				return value
			}
		}
		errs = append(errs, fmt.Errorf("%s: %q is not one of %s", key, value, strings.Join(allowed, ", ")))
		return value
	}

	cfg := Config{
		Supabase: SupabaseConfig{
			URL:            strings.TrimSpace(v.GetString(KeySupabaseURL)),
			AnonKey:        strings.TrimSpace(v.GetString(KeySupabaseAnonKey)),
			FunctionsPath:  strings.TrimSpace(v.GetString(KeyFunctionsPath)),
			ProfilesTable:  strings.TrimSpace(v.GetString(KeyProfilesTable)),
			RequestTimeout: duration(KeyRequestTimeout),
		},
		Onboarding: OnboardingConfig{
			FetchTimeout: duration(KeyFetchTimeout),
			PollInterval: duration(KeyPollInterval),
		},
		Profiles: ProfilesConfig{
			Backend: oneOf(KeyProfilesBackend, ProfilesBackendSupabase, ProfilesBackendFile),
			Path:    strings.TrimSpace(v.GetString(KeyProfilesPath)),
		},
		Secrets: SecretsConfig{
			Backend:    oneOf(KeySecretsBackend, SecretsBackendChain, SecretsBackendFile, SecretsBackendPass),
			Dir:        strings.TrimSpace(v.GetString(KeySecretsDir)),
			PassPrefix: strings.TrimSpace(v.GetString(KeySecretsPassPrefix)),
		},
		Auth: AuthConfig{
			ListenAddr:      strings.TrimSpace(v.GetString(KeyAuthListenAddr)),
			OAuthProvider:   strings.TrimSpace(v.GetString(KeyAuthProvider)),
			CallbackTimeout: duration(KeyAuthCallback),
			RefreshSkew:     duration(KeyAuthRefreshSkew),
		},
		Log: LogConfig{
			Level:  strings.TrimSpace(v.GetString(KeyLogLevel)),
			Format: oneOf(KeyLogFormat, "text", "json"),
		},
	}

	status, err := domain.ParseOnboardingStatus(v.GetString(KeyFailOpenStatus))
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("%s: %w", KeyFailOpenStatus, err))
	case !status.Terminal():
		errs = append(errs, fmt.Errorf("%s: %q is not a resolved status", KeyFailOpenStatus, status))
	default:
		cfg.Onboarding.FailOpenStatus = status
	}

	if cfg.Profiles.Backend == ProfilesBackendFile && cfg.Profiles.Path == "" {
		errs = append(errs, fmt.Errorf("%s: required when %s is %q", KeyProfilesPath, KeyProfilesBackend, ProfilesBackendFile))
	}
	if cfg.Secrets.Backend != SecretsBackendPass && cfg.Secrets.Dir == "" {
		errs = append(errs, fmt.Errorf("%s: required for the %q secrets backend", KeySecretsDir, cfg.Secrets.Backend))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// RequireSupabase reports which connection settings are missing.
func (c Config) RequireSupabase() error {
	var errs []error
	if c.Supabase.URL == "" {
		errs = append(errs, fmt.Errorf("%s is not set (config file or %s_SUPABASE_URL / SUPABASE_URL / EXPO_PUBLIC_SUPABASE_URL)", KeySupabaseURL, EnvPrefix))
	}
	if c.Supabase.AnonKey == "" {
		errs = append(errs, fmt.Errorf("%s is not set (config file or %s_SUPABASE_ANON_KEY / SUPABASE_ANON_KEY / EXPO_PUBLIC_SUPABASE_KEY)", KeySupabaseAnonKey, EnvPrefix))
	}

	return errors.Join(errs...)
}
