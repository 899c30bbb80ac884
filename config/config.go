// Package config loads the service configuration from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/assujiar/ugc-business-command-portal-sub003/authority"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain"
	"github.com/assujiar/ugc-business-command-portal-sub003/persistence"
	"github.com/fundwit/go-commons/types"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig                 `yaml:"http"`
	Database persistence.DatabaseConfig `yaml:"database"`
	Search   SearchConfig               `yaml:"search"`
	SLA      SLAConfig                  `yaml:"sla"`
	Accounts []AccountConfig            `yaml:"accounts"`

	// Workflows points to a file replacing the built-in transition tables.
	Workflows string `yaml:"workflows"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	Mode            string        `yaml:"mode"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type SearchConfig struct {
	// Addresses of the Elasticsearch nodes, search is disabled when empty.
	Addresses    []string `yaml:"addresses"`
	SyncSchedule string   `yaml:"syncSchedule"`
}

type SLAConfig struct {
	Hours        map[domain.Priority]int `yaml:"hours"`
	ScanSchedule string                  `yaml:"scanSchedule"`
}

// AccountConfig provisions an account and registers its API token.
type AccountConfig struct {
	ID    types.ID       `yaml:"id"`
	Name  string         `yaml:"name"`
	Role  authority.Role `yaml:"role"`
	Token string         `yaml:"token"`
}

func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			Mode:            "release",
			ShutdownTimeout: 3 * time.Second,
		},
		Database: persistence.DatabaseConfig{
			DriverType: persistence.DriverSqlite,
			DriverArgs: "bizflow.db?_loc=UTC",
		},
		Search: SearchConfig{
			SyncSchedule: "@daily",
		},
		SLA: SLAConfig{
			Hours: map[domain.Priority]int{
				domain.PriorityUrgent: 4,
				domain.PriorityHigh:   8,
				domain.PriorityMedium: 24,
				domain.PriorityLow:    72,
			},
			ScanSchedule: "@every 1m",
		},
	}
}

// LoadConfig reads path over the defaults, then applies the environment. An empty path uses the defaults only.
func LoadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	if err := c.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyEnv overrides the file values with HTTP_ADDR, GIN_MODE and the database variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("GIN_MODE"); v != "" {
		c.HTTP.Mode = v
	}
	return c.Database.ApplyEnv()
}

func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.HTTP.Mode != "debug" && c.HTTP.Mode != "release" && c.HTTP.Mode != "test" {
		return fmt.Errorf("http.mode '%s' is not one of debug, release, test", c.HTTP.Mode)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if _, err := cron.ParseStandard(c.SLA.ScanSchedule); err != nil {
		return fmt.Errorf("sla.scanSchedule: %w", err)
	}
	for priority, hours := range c.SLA.Hours {
		if hours < 0 {
			return fmt.Errorf("sla.hours.%s must not be negative", priority)
		}
	}
	if len(c.Search.Addresses) > 0 {
		if _, err := cron.ParseStandard(c.Search.SyncSchedule); err != nil {
			return fmt.Errorf("search.syncSchedule: %w", err)
		}
	}

	ids := map[types.ID]bool{}
	tokens := map[string]bool{}
	for i, a := range c.Accounts {
		if a.ID == 0 || a.Name == "" {
			return fmt.Errorf("accounts[%d]: id and name are required", i)
		}
		if !authority.IsKnownRole(a.Role) {
			return fmt.Errorf("accounts[%d]: unknown role '%s'", i, a.Role)
		}
		if ids[a.ID] {
			return fmt.Errorf("accounts[%d]: duplicated id %d", i, a.ID)
		}
		ids[a.ID] = true
		if a.Token != "" {
			if tokens[a.Token] {
				return fmt.Errorf("accounts[%d]: duplicated token", i)
			}
			tokens[a.Token] = true
		}
	}
	return nil
}
