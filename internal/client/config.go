package client

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config is the persisted CLI state. The cookie is the signed session
// cookie handed out by the server on login or verify.
type Config struct {
	ServerURL string `json:"serverUrl"`
	Cookie    string `json:"cookie,omitempty"`
	UserID    string `json:"userId,omitempty"`
	Username  string `json:"username,omitempty"`
	UniqueID  string `json:"uniqueId,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{ServerURL: "http://localhost:8080"}
}

func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ephemeral-chatty", "config.json"), nil
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
