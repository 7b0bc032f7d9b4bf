package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultConfigName = ".costfleet"
	defaultConfigDir  = ".costfleet"
)

// Manager handles costfleet configuration
type Manager struct {
	configPath string
	config     *CostfleetConfig
	viper      *viper.Viper
}

// NewManager creates a new configuration manager
func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
		viper:      viper.New(),
		config:     &CostfleetConfig{},
	}
}

// Load loads the costfleet configuration from file
func (m *Manager) Load() (*CostfleetConfig, error) {
	if m.configPath != "" {
		m.viper.SetConfigFile(m.configPath)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		// Check ~/.costfleet/config.yaml then ~/.costfleet.yaml
		m.viper.AddConfigPath(filepath.Join(home, defaultConfigDir))
		m.viper.AddConfigPath(home)
		m.viper.SetConfigName(defaultConfigName)
		m.viper.SetConfigType("yaml")
	}

	m.viper.SetEnvPrefix("COSTFLEET")
	m.viper.AutomaticEnv()

	m.config = &CostfleetConfig{}

	if err := m.viper.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults carry the run
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		m.applyDefaults()
		return m.config, nil
	}

	if err := m.viper.Unmarshal(m.config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	m.applyDefaults()

	return m.config, nil
}

// Save saves the current configuration to file
func (m *Manager) Save() error {
	if m.configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		m.configPath = filepath.Join(home, defaultConfigDir, "config.yaml")
	}

	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := m.viper.WriteConfigAs(m.configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *CostfleetConfig {
	return m.config
}

// GetSubscriptionConfig returns configuration for a named subscription
func (m *Manager) GetSubscriptionConfig(name string) (*SubscriptionConfig, bool) {
	if m.config.Subscriptions == nil {
		return nil, false
	}

	sub, ok := m.config.Subscriptions[name]
	return &sub, ok
}

// SetSubscriptionConfig sets or updates configuration for a subscription
func (m *Manager) SetSubscriptionConfig(name string, cfg SubscriptionConfig) {
	if m.config.Subscriptions == nil {
		m.config.Subscriptions = make(map[string]SubscriptionConfig)
	}

	m.config.Subscriptions[name] = cfg
	m.viper.Set("subscriptions", m.config.Subscriptions)
}

// RemoveSubscriptionConfig removes configuration for a subscription
func (m *Manager) RemoveSubscriptionConfig(name string) {
	if m.config.Subscriptions == nil {
		return
	}

	delete(m.config.Subscriptions, name)
	m.viper.Set("subscriptions", m.config.Subscriptions)
}

// applyDefaults sets default values for configuration
func (m *Manager) applyDefaults() {
	if m.config == nil {
		return
	}

	if m.config.Defaults.Timeout == 0 {
		m.config.Defaults.Timeout = 30 * time.Second
	}
	if m.config.Defaults.Parallel == 0 {
		m.config.Defaults.Parallel = 5
	}
	if m.config.Defaults.OutputFormat == "" {
		m.config.Defaults.OutputFormat = "table"
	}
	if m.config.Defaults.CacheTTL == 0 {
		m.config.Defaults.CacheTTL = 300 * time.Second
	}
	if m.config.Defaults.Retries == 0 {
		m.config.Defaults.Retries = 3
	}

	for name, sub := range m.config.Subscriptions {
		if sub.Alias == "" {
			sub.Alias = name
		}
		m.config.Subscriptions[name] = sub
	}
}
