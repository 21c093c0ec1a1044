package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate 把配置目录指向临时目录并清空环境变量覆盖
func isolate(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("CADGEN_CONFIG_HOME", tmpDir)
	for _, key := range []string{
		"CADGEN_BASE_URL",
		"CADGEN_REQUEST_TIMEOUT",
		"CADGEN_SKIP_LANDING",
		"CADGEN_LOG_LEVEL",
		"CADGEN_LOG_FILE",
	} {
		t.Setenv(key, "")
	}
	return tmpDir
}

func TestGetConfigPath(t *testing.T) {
	tmpDir := isolate(t)

	path, err := getConfigPath()
	if err != nil {
		t.Fatalf("getConfigPath failed: %v", err)
	}

	expectedPath := filepath.Join(tmpDir, "config.yaml")
	if path != expectedPath {
		t.Errorf("Config path mismatch: got %s, want %s", path, expectedPath)
	}
}

func TestSaveAndLoadConfigIntegration(t *testing.T) {
	isolate(t)

	testConfig := DefaultConfig()
	testConfig.BaseURL = "https://cad.example.com/api"
	testConfig.RequestTimeout = 90 * time.Second
	testConfig.SkipLanding = true
	testConfig.Viewer.SnapshotQuality = 60

	if err := SaveConfig(testConfig); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	configPath, err := getConfigPath()
	if err != nil {
		t.Fatalf("getConfigPath failed: %v", err)
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("Config file was not created")
	}

	loadedConfig, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if loadedConfig.BaseURL != testConfig.BaseURL {
		t.Errorf("Loaded BaseURL %q doesn't match saved %q", loadedConfig.BaseURL, testConfig.BaseURL)
	}
	if loadedConfig.RequestTimeout != testConfig.RequestTimeout {
		t.Errorf("Loaded RequestTimeout %s doesn't match saved %s", loadedConfig.RequestTimeout, testConfig.RequestTimeout)
	}
	if !loadedConfig.SkipLanding {
		t.Error("Loaded SkipLanding should be true")
	}
	if loadedConfig.Viewer.SnapshotQuality != 60 {
		t.Errorf("Loaded SnapshotQuality = %d, want 60", loadedConfig.Viewer.SnapshotQuality)
	}
}

func TestLoadConfigWhenNotExists(t *testing.T) {
	isolate(t)

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed when config doesn't exist: %v", err)
	}

	if config.BaseURL != DefaultBaseURL {
		t.Errorf("Expected default base url %q, got %q", DefaultBaseURL, config.BaseURL)
	}
	if config.RequestTimeout != DefaultRequestTimeout {
		t.Errorf("Expected default timeout %s, got %s", DefaultRequestTimeout, config.RequestTimeout)
	}
	if config.Viewer.SnapshotWidth != DefaultSnapshotWidth || config.Viewer.SnapshotHeight != DefaultSnapshotHeight {
		t.Errorf("Unexpected snapshot size %dx%d", config.Viewer.SnapshotWidth, config.Viewer.SnapshotHeight)
	}
	if config.Viewer.SnapshotQuality != DefaultSnapshotQuality {
		t.Errorf("Expected snapshot quality %d, got %d", DefaultSnapshotQuality, config.Viewer.SnapshotQuality)
	}
}

func TestLoadPartialConfigFillsDefaults(t *testing.T) {
	tmpDir := isolate(t)

	content := "base_url: http://10.0.0.2:9000/api\nrequest_timeout: 45s\n"
	if err := os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.BaseURL != "http://10.0.0.2:9000/api" {
		t.Errorf("unexpected base url %q", config.BaseURL)
	}
	if config.RequestTimeout != 45*time.Second {
		t.Errorf("unexpected timeout %s", config.RequestTimeout)
	}
	if config.DocsURL != DefaultDocsURL {
		t.Errorf("docs url should fall back to default, got %q", config.DocsURL)
	}
	if config.Log.Level != "info" {
		t.Errorf("log level should fall back to info, got %q", config.Log.Level)
	}
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("CADGEN_BASE_URL", "http://backend:8000/api")
	t.Setenv("CADGEN_REQUEST_TIMEOUT", "2m")
	t.Setenv("CADGEN_SKIP_LANDING", "true")
	t.Setenv("CADGEN_LOG_LEVEL", "debug")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.BaseURL != "http://backend:8000/api" {
		t.Errorf("env base url not applied: %q", config.BaseURL)
	}
	if config.RequestTimeout != 2*time.Minute {
		t.Errorf("env timeout not applied: %s", config.RequestTimeout)
	}
	if !config.SkipLanding {
		t.Error("env skip landing not applied")
	}
	if config.Log.Level != "debug" {
		t.Errorf("env log level not applied: %q", config.Log.Level)
	}
}

func TestInvalidEnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("CADGEN_REQUEST_TIMEOUT", "soon")

	if _, err := LoadConfig(); err == nil {
		t.Error("Expected error for invalid CADGEN_REQUEST_TIMEOUT")
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	tmpDir := isolate(t)

	os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte("invalid: yaml: content: [}"), 0644)

	if _, err := LoadConfig(); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"ftp scheme", func(c *Config) { c.BaseURL = "ftp://host/api" }, false},
		{"missing host", func(c *Config) { c.BaseURL = "http:///api" }, false},
		{"quality too high", func(c *Config) { c.Viewer.SnapshotQuality = 101 }, false},
		{"snapshot too small", func(c *Config) { c.Viewer.SnapshotWidth = 4 }, false},
		{"negative timeout", func(c *Config) { c.RequestTimeout = -time.Second }, false},
		{"unknown log level", func(c *Config) { c.Log.Level = "verbose" }, false},
		{"logging off", func(c *Config) { c.Log.Level = "off" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLogFilePath(t *testing.T) {
	tmpDir := isolate(t)

	c := DefaultConfig()
	path, err := c.LogFilePath()
	if err != nil {
		t.Fatalf("LogFilePath failed: %v", err)
	}
	if path != filepath.Join(tmpDir, "cadgen.log") {
		t.Errorf("unexpected log path %q", path)
	}

	c.Log.File = "/var/log/cadgen.log"
	if path, _ := c.LogFilePath(); path != "/var/log/cadgen.log" {
		t.Errorf("explicit log file not honored: %q", path)
	}
}
