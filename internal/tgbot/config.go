package tgbot

import (
	"fmt"
	"strings"

	coreconfig "github.com/m3rciful/intakebot/core/config"
	coredatabase "github.com/m3rciful/intakebot/core/database"
	"github.com/m3rciful/intakebot/core/telegram/state"
)

// Config is the intake bot configuration: the shared core settings plus the
// staff group and the session storage.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	// GroupID is the staff chat receiving every submission.
	GroupID  int64               `yaml:"group_id" envconfig:"GROUP_ID"`
	Storage  state.Config        `yaml:"storage"`
	Database coredatabase.Config `yaml:"database"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// LoadConfig reads path, overlays the environment and validates the result.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.LoadInto(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate normalizes defaults and checks required settings.
func (c *Config) Validate() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	if c.GroupID == 0 {
		return fmt.Errorf("group_id is required")
	}
	if err := c.Storage.Normalize(); err != nil {
		return err
	}
	if c.Storage.Driver == state.DriverPostgres {
		if strings.TrimSpace(c.Database.Host) == "" || strings.TrimSpace(c.Database.Name) == "" {
			return fmt.Errorf("database.host and database.name are required for the postgres storage driver")
		}
		if strings.TrimSpace(c.Database.Port) == "" {
			c.Database.Port = "5432"
		}
	}
	return nil
}
