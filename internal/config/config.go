package config

import "time"

// Config is the root application configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Retention RetentionConfig `yaml:"retention"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// RetentionConfig holds retention job settings.
type RetentionConfig struct {
	// PoliciesFile is the YAML file holding the retention_policies list.
	PoliciesFile string `yaml:"policies_file" env:"RETENTION_POLICIES_FILE" env-default:"./config/retention_policies.yaml"`

	// Schedule is a standard 5-field cron expression for the daemon.
	// Empty disables scheduled runs.
	Schedule string `yaml:"schedule" env:"RETENTION_SCHEDULE" env-default:"0 3 * * *"`

	// DryRun makes scheduled runs count without deleting. Destructive runs
	// must be enabled explicitly.
	DryRun bool `yaml:"dry_run" env:"RETENTION_DRY_RUN" env-default:"true"`

	// PolicyTimeout bounds one policy's deletion transaction. Exceeding it
	// rolls the transaction back and marks the execution failed.
	PolicyTimeout time.Duration `yaml:"policy_timeout" env:"RETENTION_POLICY_TIMEOUT" env-default:"5m"`
}
