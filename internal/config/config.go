package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Zacy-Sokach/cadgen/internal/utils"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL         = "http://localhost:8000/api"
	DefaultDocsURL         = "https://cadquery.readthedocs.io/"
	DefaultRequestTimeout  = 5 * time.Minute
	DefaultSnapshotWidth   = 640
	DefaultSnapshotHeight  = 480
	DefaultSnapshotQuality = 80
)

type Config struct {
	BaseURL        string        `yaml:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	SkipLanding    bool          `yaml:"skip_landing"`
	DocsURL        string        `yaml:"docs_url"`
	Viewer         ViewerConfig  `yaml:"viewer"`
	Log            LogConfig     `yaml:"log"`
}

// ViewerConfig 快照参数
type ViewerConfig struct {
	SnapshotWidth   int `yaml:"snapshot_width"`
	SnapshotHeight  int `yaml:"snapshot_height"`
	SnapshotQuality int `yaml:"snapshot_quality"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error, off
	Level string `yaml:"level"`
	// 输出格式: json, console
	Format string `yaml:"format"`
	// 日志文件，为空时写到配置目录下的 cadgen.log
	File string `yaml:"file"`
}

// DefaultConfig 返回全部默认值
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        DefaultBaseURL,
		RequestTimeout: DefaultRequestTimeout,
		DocsURL:        DefaultDocsURL,
		Viewer: ViewerConfig{
			SnapshotWidth:   DefaultSnapshotWidth,
			SnapshotHeight:  DefaultSnapshotHeight,
			SnapshotQuality: DefaultSnapshotQuality,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig 读取配置文件，缺省项补默认值，再应用环境变量覆盖
func LoadConfig() (*Config, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	config.applyDefaults()
	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyDefaults 文件里显式写成零值的字段回退到默认值
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = def.BaseURL
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.DocsURL == "" {
		c.DocsURL = def.DocsURL
	}
	if c.Viewer.SnapshotWidth == 0 {
		c.Viewer.SnapshotWidth = def.Viewer.SnapshotWidth
	}
	if c.Viewer.SnapshotHeight == 0 {
		c.Viewer.SnapshotHeight = def.Viewer.SnapshotHeight
	}
	if c.Viewer.SnapshotQuality == 0 {
		c.Viewer.SnapshotQuality = def.Viewer.SnapshotQuality
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
}

func (c *Config) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv("CADGEN_BASE_URL")); v != "" {
		c.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("CADGEN_REQUEST_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid CADGEN_REQUEST_TIMEOUT value %q: %w", v, err)
		}
		c.RequestTimeout = d
	}
	if v := strings.TrimSpace(os.Getenv("CADGEN_SKIP_LANDING")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid CADGEN_SKIP_LANDING value %q: %w", v, err)
		}
		c.SkipLanding = b
	}
	if v := strings.TrimSpace(os.Getenv("CADGEN_LOG_LEVEL")); v != "" {
		c.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("CADGEN_LOG_FILE")); v != "" {
		c.Log.File = v
	}
	return nil
}

// Validate 检查配置是否可用
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url 无效: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url 必须是 http 或 https 地址: %q", c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("base_url 缺少主机名: %q", c.BaseURL)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout 不能为负数: %s", c.RequestTimeout)
	}
	if c.Viewer.SnapshotWidth < 16 || c.Viewer.SnapshotWidth > 4096 ||
		c.Viewer.SnapshotHeight < 16 || c.Viewer.SnapshotHeight > 4096 {
		return fmt.Errorf("快照尺寸超出范围: %dx%d", c.Viewer.SnapshotWidth, c.Viewer.SnapshotHeight)
	}
	if c.Viewer.SnapshotQuality < 1 || c.Viewer.SnapshotQuality > 100 {
		return fmt.Errorf("snapshot_quality 必须在 1-100 之间: %d", c.Viewer.SnapshotQuality)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error", "off":
	default:
		return fmt.Errorf("未知的日志级别: %q", c.Log.Level)
	}
	return nil
}

// LogFilePath 返回实际使用的日志文件路径
func (c *Config) LogFilePath() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	configDir, err := utils.GetConfigDir()
	if err != nil {
		return "", fmt.Errorf("获取配置目录失败: %w", err)
	}
	return filepath.Join(configDir, "cadgen.log"), nil
}

func SaveConfig(config *Config) error {
	configPath, err := getConfigPath()
	if err != nil {
		return err
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}

	return nil
}

// ConfigPath 返回配置文件路径
func ConfigPath() (string, error) {
	return getConfigPath()
}

func getConfigPath() (string, error) {
	configDir, err := utils.GetConfigDir()
	if err != nil {
		return "", fmt.Errorf("获取配置目录失败: %w", err)
	}
	return filepath.Join(configDir, "config.yaml"), nil
}
