package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/winspay-gate/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateEnv(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{
		"WG_CONFIG", "WG_SUPABASE_URL", "WG_SUPABASE_ANON_KEY", "SUPABASE_URL", "SUPABASE_ANON_KEY",
		"EXPO_PUBLIC_SUPABASE_URL", "EXPO_PUBLIC_SUPABASE_KEY", "EXPO_PUBLIC_SUPABASE_ANON_KEY", "WG_FETCH_TIMEOUT",
		"WG_FAIL_OPEN_STATUS",
		"WG_PROFILES_BACKEND", "WG_SECRETS_BACKEND", "WG_LOG_LEVEL",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	return home
}

func writeConfig(t *testing.T, home string, content string) string {
	t.Helper()

	dir := filepath.Join(home, ".config", appDirName)
	require.NoError(t, os.MkdirAll(dir, 0o700))
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	home := isolateEnv(t)

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	appDir := filepath.Join(home, ".config", appDirName)
	assert.Empty(t, cfg.File)
	assert.Equal(t, "functions/v1", cfg.Supabase.FunctionsPath)
	assert.Equal(t, "profiles", cfg.Supabase.ProfilesTable)
	assert.Equal(t, 15*time.Second, cfg.Onboarding.FetchTimeout)
	assert.Equal(t, 3*time.Second, cfg.Onboarding.PollInterval)
	assert.Equal(t, domain.OnboardingNeedsAccount, cfg.Onboarding.FailOpenStatus)
	assert.Equal(t, ProfilesBackendSupabase, cfg.Profiles.Backend)
	assert.Equal(t, filepath.Join(appDir, "profiles.toml"), cfg.Profiles.Path)
	assert.Equal(t, SecretsBackendChain, cfg.Secrets.Backend)
	assert.Equal(t, filepath.Join(appDir, "secrets"), cfg.Secrets.Dir)
	assert.Equal(t, 5*time.Minute, cfg.Auth.CallbackTimeout)
	assert.Equal(t, "warn", cfg.Log.Level)

	err = cfg.RequireSupabase()
	require.Error(t, err)
	assert.ErrorContains(t, err, KeySupabaseURL)
	assert.ErrorContains(t, err, KeySupabaseAnonKey)
}

func TestLoadReadsConfigFile(t *testing.T) {
	home := isolateEnv(t)
	path := writeConfig(t, home, `
fetch_timeout = "2s"
fail_open_status = "needs_completion"

[supabase]
url = "https://abc.supabase.co"
anon_key = "anon-from-file"

[profiles]
backend = "file"
path = "/tmp/fixtures.toml"

[log]
level = "debug"
format = "json"
`)

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "https://abc.supabase.co", cfg.Supabase.URL)
	assert.Equal(t, "anon-from-file", cfg.Supabase.AnonKey)
	assert.Equal(t, 2*time.Second, cfg.Onboarding.FetchTimeout)
	assert.Equal(t, domain.OnboardingNeedsCompletion, cfg.Onboarding.FailOpenStatus)
	assert.Equal(t, ProfilesBackendFile, cfg.Profiles.Backend)
	assert.Equal(t, "/tmp/fixtures.toml", cfg.Profiles.Path)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.NoError(t, cfg.RequireSupabase())
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	home := isolateEnv(t)
	writeConfig(t, home, `
[supabase]
url = "https://file.supabase.co"
anon_key = "anon-from-file"
`)
	t.Setenv("WG_SUPABASE_URL", "https://env.supabase.co")
	t.Setenv("WG_FETCH_TIMEOUT", "750ms")
	t.Setenv("WG_SECRETS_BACKEND", "file")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "https://env.supabase.co", cfg.Supabase.URL)
	assert.Equal(t, "anon-from-file", cfg.Supabase.AnonKey)
	assert.Equal(t, 750*time.Millisecond, cfg.Onboarding.FetchTimeout)
	assert.Equal(t, SecretsBackendFile, cfg.Secrets.Backend)
}

func TestLoadAcceptsAppEnvironmentFallbacks(t *testing.T) {
	isolateEnv(t)
	t.Setenv("SUPABASE_URL", "https://plain.supabase.co")
	t.Setenv("EXPO_PUBLIC_SUPABASE_ANON_KEY", "expo-anon")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "https://plain.supabase.co", cfg.Supabase.URL)
	assert.Equal(t, "expo-anon", cfg.Supabase.AnonKey)
}

func TestLoadReadsExpoAppEnvironment(t *testing.T) {
	isolateEnv(t)
	t.Setenv("EXPO_PUBLIC_SUPABASE_URL", "https://x.supabase.co")
	t.Setenv("EXPO_PUBLIC_SUPABASE_KEY", "expo-key")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "https://x.supabase.co", cfg.Supabase.URL)
	assert.Equal(t, "expo-key", cfg.Supabase.AnonKey)
	assert.NoError(t, cfg.RequireSupabase())
}

func TestRequireSupabaseNamesAppVariables(t *testing.T) {
	err := Config{}.RequireSupabase()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EXPO_PUBLIC_SUPABASE_URL")
	assert.Contains(t, err.Error(), "EXPO_PUBLIC_SUPABASE_KEY")
}

func TestLoadExplicitConfigFile(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte("[supabase]\nurl = \"https://custom.supabase.co\"\n"), 0o600))
	t.Setenv("WG_CONFIG", path)

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "https://custom.supabase.co", cfg.Supabase.URL)
}

func TestLoadValidationNamesKeys(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr []string
	}{
		{name: "bad duration", content: `fetch_timeout = "soon"`, wantErr: []string{KeyFetchTimeout, "invalid duration"}},
		{name: "non positive duration", content: `fetch_timeout = "0s"`, wantErr: []string{KeyFetchTimeout, "must be positive"}},
		{name: "loading is not terminal", content: `fail_open_status = "loading"`, wantErr: []string{KeyFailOpenStatus, "not a resolved status"}},
		{name: "unknown status", content: `fail_open_status = "maybe"`, wantErr: []string{KeyFailOpenStatus, "unknown onboarding status"}},
		{name: "unknown backend", content: "[profiles]\nbackend = \"redis\"", wantErr: []string{KeyProfilesBackend, "redis"}},
		{name: "bad log format", content: "[log]\nformat = \"xml\"", wantErr: []string{KeyLogFormat}},
		{name: "malformed file", content: "fetch_timeout = ", wantErr: []string{"read config file"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			home := isolateEnv(t)
			writeConfig(t, home, tc.content)

			_, err := Load(viper.New())
			require.Error(t, err)
			for _, want := range tc.wantErr {
				assert.ErrorContains(t, err, want)
			}
		})
	}
}
