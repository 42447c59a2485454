// Package config manages gatewayd's persisted configuration: listen
// address, logging, OAuth token storage location, and custom
// OpenAI-compatible provider routes.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/codefionn/gatewayd/internal/secrets"
)

// CustomProviderConfig describes a user-declared OpenAI-compatible upstream
// that bypasses OAuth, spoofing, and prompt-cache annotation entirely.
type CustomProviderConfig struct {
	Name    string `json:"name"`
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key,omitempty"`
}

// SecretsSettings keeps track of password-protection state for encrypted
// fields (currently: custom provider API keys).
type SecretsSettings struct {
	PasswordSet bool   `json:"password_set,omitempty"`
	Verifier    string `json:"verifier,omitempty"`
}

// Config represents gatewayd's persisted configuration.
type Config struct {
	ListenAddr      string                           `json:"listen_addr"`
	LogLevel        string                           `json:"log_level"` // debug, info, warn, error, none
	LogPath         string                           `json:"-"`
	LogToConsole    bool                             `json:"log_to_console"`
	StateDir        string                           `json:"-"`
	TokenStorePath  string                           `json:"-"`
	PKCEScratchPath string                           `json:"-"`
	RequestLogPath  string                           `json:"-"`
	AuthToken       string                           `json:"auth_token,omitempty"` // bearer token gatewayd itself requires from callers
	EnablePromptCache bool                           `json:"enable_prompt_cache"`
	PromptCacheTTL  string                           `json:"prompt_cache_ttl,omitempty"` // "5m" or "1h"
	DefaultTimeoutSeconds int                        `json:"default_timeout_seconds"`
	CustomProviders map[string]*CustomProviderConfig `json:"custom_providers,omitempty"`
	Secrets         SecretsSettings                  `json:"secrets,omitempty"`

	mu              sync.RWMutex `json:"-"`
	secretsPassword string       `json:"-"`
}

func defaultConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := strings.TrimSpace(os.Getenv("APPDATA")); appData != "" {
			return filepath.Join(appData, "gatewayd")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Roaming", "gatewayd")
	default:
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", "gatewayd")
	}
}

func defaultStateDir() string {
	switch runtime.GOOS {
	case "linux":
		if stateHome := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); stateHome != "" {
			return filepath.Join(stateHome, "gatewayd")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".local", "state", "gatewayd")
	case "windows":
		if localAppData := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); localAppData != "" {
			return filepath.Join(localAppData, "gatewayd")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Local", "gatewayd")
	default:
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".local", "state", "gatewayd")
	}
}

// DefaultConfig returns gatewayd's default configuration.
func DefaultConfig() *Config {
	configDir := defaultConfigDir()
	stateDir := defaultStateDir()

	return &Config{
		ListenAddr:            "127.0.0.1:8787",
		LogLevel:              "info",
		LogPath:               filepath.Join(stateDir, "gatewayd.log"),
		StateDir:              stateDir,
		TokenStorePath:        filepath.Join(configDir, "token.json"),
		PKCEScratchPath:       filepath.Join(os.TempDir(), "gatewayd-oauth-pkce.json"),
		RequestLogPath:        filepath.Join(stateDir, "requests.db"),
		EnablePromptCache:     true,
		PromptCacheTTL:        "5m",
		DefaultTimeoutSeconds: 120,
		CustomProviders:       make(map[string]*CustomProviderConfig),
	}
}

// GetConfigPath returns the default config file path.
func GetConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.json")
}

// Load loads configuration from path, overriding only the fields present in
// the file. A missing file returns the defaults, not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	configDir := defaultConfigDir()
	stateDir := defaultStateDir()
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1:8787"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogPath == "" {
		cfg.LogPath = filepath.Join(stateDir, "gatewayd.log")
	}
	if cfg.StateDir == "" {
		cfg.StateDir = stateDir
	}
	if cfg.TokenStorePath == "" {
		cfg.TokenStorePath = filepath.Join(configDir, "token.json")
	}
	if cfg.PKCEScratchPath == "" {
		cfg.PKCEScratchPath = filepath.Join(os.TempDir(), "gatewayd-oauth-pkce.json")
	}
	if cfg.RequestLogPath == "" {
		cfg.RequestLogPath = filepath.Join(stateDir, "requests.db")
	}
	if cfg.PromptCacheTTL == "" {
		cfg.PromptCacheTTL = "5m"
	}
	if cfg.DefaultTimeoutSeconds == 0 {
		cfg.DefaultTimeoutSeconds = 120
	}
	if cfg.CustomProviders == nil {
		cfg.CustomProviders = make(map[string]*CustomProviderConfig)
	}

	return cfg, nil
}

// Save persists the configuration to path using an atomic write, skipping
// the write entirely if the serialized content is unchanged. Safe for
// concurrent use.
func (c *Config) Save(path string) error {
	c.mu.RLock()
	data, err := c.marshalWithEncryptedSecrets()
	c.mu.RUnlock()
	if err != nil {
		return err
	}

	if existing, readErr := os.ReadFile(path); readErr == nil && bytes.Equal(existing, data) {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// SetCustomProvider registers or replaces a custom provider route.
func (c *Config) SetCustomProvider(p *CustomProviderConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.CustomProviders == nil {
		c.CustomProviders = make(map[string]*CustomProviderConfig)
	}
	c.CustomProviders[p.Name] = p
}

// CustomProvider looks up a custom provider route by name.
func (c *Config) CustomProvider(name string) (*CustomProviderConfig, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.CustomProviders[name]
	return p, ok
}

// ApplySecretsPassword records the active password and decrypts any
// encrypted custom-provider API keys in place.
func (c *Config) ApplySecretsPassword(password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.verifyPasswordLocked(password); err != nil {
		return err
	}

	decrypted := make(map[string]string, len(c.CustomProviders))
	for name, p := range c.orderedProvidersLocked() {
		plain, _, err := secrets.DecryptString(p.APIKey, password)
		if err != nil {
			for n, v := range decrypted {
				c.CustomProviders[n].APIKey = v
			}
			return err
		}
		decrypted[name] = p.APIKey
		p.APIKey = plain
	}

	c.secretsPassword = password
	return nil
}

// UpdateSecretsPassword switches the runtime password and updates the
// persisted verifier flags.
func (c *Config) UpdateSecretsPassword(password string) error {
	c.Secrets.PasswordSet = password != ""
	c.Secrets.Verifier = ""
	if err := c.ApplySecretsPassword(password); err != nil {
		return err
	}
	if password != "" {
		verifier, err := secrets.EncryptString("gatewayd", password)
		if err != nil {
			return err
		}
		c.Secrets.Verifier = verifier
	}
	return nil
}

func (c *Config) orderedProvidersLocked() map[string]*CustomProviderConfig {
	names := make([]string, 0, len(c.CustomProviders))
	for name := range c.CustomProviders {
		names = append(names, name)
	}
	sort.Strings(names)

	ordered := make(map[string]*CustomProviderConfig, len(names))
	for _, name := range names {
		ordered[name] = c.CustomProviders[name]
	}
	return ordered
}

func (c *Config) verifyPasswordLocked(password string) error {
	if !c.Secrets.PasswordSet || c.Secrets.Verifier == "" {
		return nil
	}
	_, _, err := secrets.DecryptString(c.Secrets.Verifier, password)
	return err
}

func (c *Config) marshalWithEncryptedSecrets() ([]byte, error) {
	copyCfg := *c
	copyCfg.CustomProviders = make(map[string]*CustomProviderConfig, len(c.CustomProviders))

	for name, p := range c.CustomProviders {
		if p == nil {
			continue
		}
		pCopy := *p
		encrypted, err := encryptField(pCopy.APIKey, c.secretsPassword)
		if err != nil {
			return nil, err
		}
		pCopy.APIKey = encrypted
		copyCfg.CustomProviders[name] = &pCopy
	}

	if copyCfg.Secrets.PasswordSet {
		verifier, err := secrets.EncryptString("gatewayd", c.secretsPassword)
		if err != nil {
			return nil, err
		}
		copyCfg.Secrets.Verifier = verifier
	} else {
		copyCfg.Secrets.Verifier = ""
	}

	return json.MarshalIndent(&copyCfg, "", "  ")
}

func encryptField(value, password string) (string, error) {
	if value == "" {
		return "", nil
	}
	if strings.HasPrefix(value, secrets.SecretPrefix) && password == "" {
		return value, nil
	}
	return secrets.EncryptString(value, password)
}
