package utils

import (
	"os"
	"path/filepath"
)

const appDirName = "cadgen"

// GetConfigDir 获取跨平台的配置目录
// 优先级: CADGEN_CONFIG_HOME > %APPDATA%/cadgen > $XDG_CONFIG_HOME/cadgen > ~/.config/cadgen
func GetConfigDir() (string, error) {
	if configHome := os.Getenv("CADGEN_CONFIG_HOME"); configHome != "" {
		return configHome, nil
	}

	// Windows: 使用 APPDATA
	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, appDirName), nil
	}

	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appDirName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", appDirName), nil
}

// GetConfigPathForDisplay 获取用于显示的配置路径字符串
func GetConfigPathForDisplay() string {
	dir, err := GetConfigDir()
	if err != nil {
		return "~/.config/cadgen/config.yaml"
	}
	return filepath.Join(dir, "config.yaml")
}
