package config

import "time"

// CostfleetConfig represents the costfleet configuration file structure
type CostfleetConfig struct {
	// DefaultSubscription is audited when no selection is given
	DefaultSubscription string `yaml:"defaultSubscription,omitempty" json:"defaultSubscription,omitempty"`

	// Subscriptions maps friendly names to subscription configurations
	Subscriptions map[string]SubscriptionConfig `yaml:"subscriptions,omitempty" json:"subscriptions,omitempty"`

	// Defaults contains default settings for audit runs
	Defaults DefaultsConfig `yaml:"defaults,omitempty" json:"defaults,omitempty"`

	// Azure configures how the ARM API is reached
	Azure AzureConfig `yaml:"azure,omitempty" json:"azure,omitempty"`
}

// SubscriptionConfig represents configuration for a single subscription
type SubscriptionConfig struct {
	// ID is the Azure subscription GUID
	ID string `yaml:"id" json:"id"`

	// Alias is a friendly name for the subscription
	Alias string `yaml:"alias,omitempty" json:"alias,omitempty"`

	// Labels for organizing subscriptions (team, environment, cost center)
	Labels map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`

	// Enabled indicates if this subscription is included in audit runs
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// DefaultsConfig contains default configuration values
type DefaultsConfig struct {
	// Timeout bounds one whole audit run
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// Parallel is the number of subscriptions audited concurrently
	Parallel int `yaml:"parallel,omitempty" json:"parallel,omitempty"`

	// OutputFormat is the default output format (table, json, yaml)
	OutputFormat string `yaml:"outputFormat,omitempty" json:"outputFormat,omitempty"`

	// NoColor disables colored output
	NoColor bool `yaml:"noColor,omitempty" json:"noColor,omitempty"`

	// CacheTTL is how long audit results stay fresh
	CacheTTL time.Duration `yaml:"cacheTTL,omitempty" json:"cacheTTL,omitempty"`

	// NoCache disables result memoization
	NoCache bool `yaml:"noCache,omitempty" json:"noCache,omitempty"`

	// Retries is the total attempt budget per API call
	Retries int `yaml:"retries,omitempty" json:"retries,omitempty"`

	// Regions restricts audits to these locations; empty means all
	Regions []string `yaml:"regions,omitempty" json:"regions,omitempty"`
}

// AzureConfig configures the ARM API client
type AzureConfig struct {
	// Endpoint overrides the ARM endpoint, mainly for sovereign clouds
	// and tests
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`

	// RequestsPerSecond throttles calls per subscription; zero means the
	// built-in default
	RequestsPerSecond float64 `yaml:"requestsPerSecond,omitempty" json:"requestsPerSecond,omitempty"`
}

// SubscriptionInfo pairs a configured subscription with its resolved name,
// for the subscription list command
type SubscriptionInfo struct {
	// Name is the map key from the config file
	Name string `json:"name"`

	// ID is the subscription GUID
	ID string `json:"id"`

	// Alias is a friendly name, defaulting to Name
	Alias string `json:"alias,omitempty"`

	// Labels from costfleet config
	Labels map[string]string `json:"labels,omitempty"`

	// Enabled indicates if audits include this subscription
	Enabled bool `json:"enabled"`

	// Default indicates if this is the default subscription
	Default bool `json:"default"`
}
