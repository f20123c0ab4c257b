package config

import (
	"fmt"
	"strings"
)

// problems collects validation failures so Validate can report all of them.
type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return fmt.Errorf("validation failed:\n  - %s", strings.Join(p, "\n  - "))
}

// Validate checks the loaded values and describes every failure at once.
func (c *Config) Validate() error {
	var p problems
	c.Storage.validate(&p)
	c.Server.validate(&p)
	c.Import.validate(&p)
	c.Images.validate(&p)
	c.Rate.validate(&p)
	c.Logging.validate(&p)
	return p.err()
}

func (s *StorageConfig) validate(p *problems) {
	switch strings.ToLower(s.Driver) {
	case DriverMemory:
	case DriverSQLite:
		if s.SQLitePath == "" {
			p.addf("SQLITE_PATH is required when STORAGE_DRIVER=sqlite")
		}
	case DriverPostgres:
		if s.URL == "" {
			p.addf("DATABASE_URL is required when STORAGE_DRIVER=postgres")
		}
		if s.MaxConns <= 0 {
			p.addf("DB_MAX_CONNS must be positive")
		}
		if s.MinConns < 0 {
			p.addf("DB_MIN_CONNS must be non-negative")
		}
		if s.MaxConns < s.MinConns {
			p.addf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", s.MaxConns, s.MinConns)
		}
	default:
		p.addf("STORAGE_DRIVER (%q) must be one of: memory, sqlite, postgres", s.Driver)
	}
	if s.Key == "" {
		p.addf("STORAGE_KEY must not be empty")
	}
}

func (s *ServerConfig) validate(p *problems) {
	if s.Port <= 0 || s.Port > 65535 {
		p.addf("SERVER_PORT (%d) must be 1-65535", s.Port)
	}
	if s.ReadTimeout < 0 {
		p.addf("SERVER_READ_TIMEOUT must be non-negative")
	}
	if s.ShutdownTimeout <= 0 {
		p.addf("SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
}

func (i *ImportConfig) validate(p *problems) {
	if i.MaxFileSize <= 0 {
		p.addf("IMPORT_MAX_FILE_SIZE must be positive")
	}
	if i.MaxConcurrent <= 0 {
		p.addf("IMPORT_MAX_CONCURRENT must be positive")
	}
	if i.MaxWait <= 0 {
		p.addf("IMPORT_MAX_WAIT must be positive")
	}
}

func (i *ImageConfig) validate(p *problems) {
	if i.MaxDimension <= 0 {
		p.addf("IMAGE_MAX_DIMENSION must be positive")
	}
	if i.JPEGQuality < 1 || i.JPEGQuality > 100 {
		p.addf("IMAGE_JPEG_QUALITY (%d) must be 1-100", i.JPEGQuality)
	}
	if i.MaxFileSize <= 0 {
		p.addf("IMAGE_MAX_FILE_SIZE must be positive")
	}
	if i.MaxPixels <= 0 {
		p.addf("IMAGE_MAX_PIXELS must be positive")
	}
}

func (r *RateLimitConfig) validate(p *problems) {
	if !r.Enabled {
		return
	}
	if r.RequestsPerMinute <= 0 {
		p.addf("RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if r.ImportLimit <= 0 {
		p.addf("RATE_LIMIT_IMPORT must be positive when rate limiting is enabled")
	}
}

func (l *LoggingConfig) validate(p *problems) {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		p.addf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", l.Level)
	}
	switch strings.ToLower(l.Format) {
	case "text", "json":
	default:
		p.addf("LOG_FORMAT (%q) must be one of: text, json", l.Format)
	}
}

// String renders the config for debug logging with the database URL masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Storage: {Driver: %q, Key: %q, SQLitePath: %q, URL: [MASKED]}, ",
		c.Storage.Driver, c.Storage.Key, c.Storage.SQLitePath)
	fmt.Fprintf(&b, "Import: {MaxFileSize: %d, MaxConcurrent: %d}, ",
		c.Import.MaxFileSize, c.Import.MaxConcurrent)
	fmt.Fprintf(&b, "Images: {MaxDimension: %d, JPEGQuality: %d}, ",
		c.Images.MaxDimension, c.Images.JPEGQuality)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
