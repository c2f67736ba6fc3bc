package scheduler

import "time"

// JobConfig configures one job.
type JobConfig struct {
	Disabled bool   `mapstructure:"disabled" yaml:"disabled"`
	Schedule string `mapstructure:"schedule" yaml:"schedule"`
}

// Config configures the scheduler and its jobs.
type Config struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Timezone schedules are evaluated in. Default: UTC
	Timezone string `mapstructure:"timezone" yaml:"timezone"`

	// MisfireGrace is how late a firing may start. Default: 60s
	MisfireGrace time.Duration `mapstructure:"misfire_grace" yaml:"misfire_grace"`

	// RemindUsers defaults to daily at 09:00.
	RemindUsers JobConfig `mapstructure:"remind_users" yaml:"remind_users"`

	// SyncItems defaults to every five minutes.
	SyncItems JobConfig `mapstructure:"sync_items" yaml:"sync_items"`

	// ExportSnapshot defaults to hourly; it only runs when object storage
	// is configured.
	ExportSnapshot JobConfig `mapstructure:"export_snapshot" yaml:"export_snapshot"`
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.MisfireGrace == 0 {
		c.MisfireGrace = DefaultMisfireGrace
	}
	if c.RemindUsers.Schedule == "" {
		c.RemindUsers.Schedule = "0 9 * * *"
	}
	if c.SyncItems.Schedule == "" {
		c.SyncItems.Schedule = "*/5 * * * *"
	}
	if c.ExportSnapshot.Schedule == "" {
		c.ExportSnapshot.Schedule = "@hourly"
	}
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}
