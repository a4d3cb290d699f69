package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Itinerary   ItineraryConfig `toml:"itinerary"`
	Drafts      DraftsConfig    `toml:"drafts"`
	Places      PlacesConfig    `toml:"places"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Export      ExportConfig    `toml:"export"`
	WebSocket   WebSocketConfig `toml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"min=1,max=65535"`
	Host string `toml:"host"`
	// APIToken, when set, is required as a bearer token on the trip save
	// endpoint. Empty means the endpoint answers 401 to every save, which
	// matches the signed-out behaviour of the original client.
	APIToken string `toml:"api_token"`
}

type StorageConfig struct {
	Type   string       `toml:"type" validate:"oneof=badger"` // Storage backend. Only "badger" is implemented.
	Badger BadgerConfig `toml:"badger"`
	// SettingsDir is scanned for .toml settings files loaded into the
	// key/value store at startup. Empty or missing directory is skipped.
	SettingsDir string `toml:"settings_dir"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level         string   `toml:"level" validate:"oneof=debug info warn error"`
	Format        string   `toml:"format"`          // "json" or "text"
	Output        []string `toml:"output"`          // "stdout", "file"
	MinEventLevel string   `toml:"min_event_level"` // Minimum log level to broadcast over the websocket
}

// ItineraryConfig contains tunables for the itinerary store
type ItineraryConfig struct {
	// DefaultScheduledTime is stamped onto a place when it is assigned to a
	// day without an explicit time. Wall clock, 24h.
	DefaultScheduledTime string `toml:"default_scheduled_time" validate:"datetime=15:04"`
}

// DraftsConfig contains tunables for the expiring trip-wizard drafts
type DraftsConfig struct {
	TTLHours      int `toml:"ttl_hours" validate:"min=1"`      // Draft lifetime before delete-on-read (default: 24)
	RecentMinutes int `toml:"recent_minutes" validate:"min=1"` // Window for the "recent draft" check (default: 30)
}

// PlacesConfig contains configuration for the trip-place collection
type PlacesConfig struct {
	// SeedFiles are optional place collections loaded at startup.
	// YAML, TOML and JSON files are accepted; bad entries are skipped.
	SeedFiles []string `toml:"seed_files"`
	// MapsAPIKey is the lowest-priority fallback for the maps key lookup
	// (environment and cached route/explore data are consulted first).
	MapsAPIKey string `toml:"maps_api_key"`
}

// SchedulerConfig contains configuration for background maintenance
type SchedulerConfig struct {
	Enabled            bool   `toml:"enabled"`
	DraftSweepSchedule string `toml:"draft_sweep_schedule"` // Cron schedule for the expired-draft sweep
	GCSchedule         string `toml:"gc_schedule"`          // Cron schedule for Badger value-log GC
}

// ExportConfig contains configuration for itinerary export
type ExportConfig struct {
	PageSize string `toml:"page_size" validate:"oneof=A4 A3 Letter Legal"` // PDF page size
}

// WebSocketConfig contains configuration for websocket event streaming
type WebSocketConfig struct {
	MinLevel        string   `toml:"min_level"`        // Minimum log level to broadcast ("debug", "info", "warn", "error")
	ExcludePatterns []string `toml:"exclude_patterns"` // Log message patterns to exclude from broadcasting
	// Whitelist of event types to broadcast. Empty list allows all events.
	AllowedEvents []string `toml:"allowed_events"`
	// Throttle intervals for high-frequency events, event type -> duration string.
	// Example: {"itinerary_changed": "500ms"}
	ThrottleIntervals map[string]string `toml:"throttle_intervals"`
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here; only user-facing settings should
// be exposed in routewise.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Type: "badger",
			Badger: BadgerConfig{
				Path: "./data",
			},
			SettingsDir: "./settings",
		},
		Logging: LoggingConfig{
			Level:         "info",
			Format:        "text",
			Output:        []string{"stdout", "file"},
			MinEventLevel: "info",
		},
		Itinerary: ItineraryConfig{
			DefaultScheduledTime: "09:00",
		},
		Drafts: DraftsConfig{
			TTLHours:      24,
			RecentMinutes: 30,
		},
		Places: PlacesConfig{
			SeedFiles:  []string{},
			MapsAPIKey: "",
		},
		Scheduler: SchedulerConfig{
			Enabled:            true,
			DraftSweepSchedule: "*/30 * * * *", // Every 30 minutes
			GCSchedule:         "0 * * * *",    // Hourly
		},
		Export: ExportConfig{
			PageSize: "A4",
		},
		WebSocket: WebSocketConfig{
			MinLevel: "info",
			ExcludePatterns: []string{
				"WebSocket client connected",
				"WebSocket client disconnected",
				"HTTP request",
				"HTTP response",
			},
			// Empty AllowedEvents allows all events
			AllowedEvents: []string{},
			// Drag sequences mutate the itinerary in rapid bursts; collapse
			// the change stream so clients refresh at most twice a second
			ThrottleIntervals: map[string]string{
				"itinerary_changed": "500ms",
			},
		},
	}
}

// LoadFromFile loads configuration with priority: defaults -> file -> env -> CLI
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files, later files
// overriding earlier ones. Priority: CLI flags > environment variables >
// last config file > ... > first config file > defaults.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment (highest priority: ROUTEWISE_ENV, fallback: GO_ENV)
	if env := os.Getenv("ROUTEWISE_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("ROUTEWISE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("ROUTEWISE_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if token := os.Getenv("ROUTEWISE_API_TOKEN"); token != "" {
		config.Server.APIToken = token
	}

	// Storage configuration
	if dir := os.Getenv("ROUTEWISE_STORAGE_DIR"); dir != "" {
		config.Storage.Badger.Path = dir
	}
	if dir := os.Getenv("ROUTEWISE_SETTINGS_DIR"); dir != "" {
		config.Storage.SettingsDir = dir
	}

	// Logging configuration
	if level := os.Getenv("ROUTEWISE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("ROUTEWISE_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("ROUTEWISE_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
	if minEventLevel := os.Getenv("ROUTEWISE_LOG_MIN_EVENT_LEVEL"); minEventLevel != "" {
		config.Logging.MinEventLevel = minEventLevel
	}

	// Itinerary configuration
	if defaultTime := os.Getenv("ROUTEWISE_DEFAULT_SCHEDULED_TIME"); defaultTime != "" {
		config.Itinerary.DefaultScheduledTime = defaultTime
	}

	// Drafts configuration
	if ttl := os.Getenv("ROUTEWISE_DRAFTS_TTL_HOURS"); ttl != "" {
		if t, err := strconv.Atoi(ttl); err == nil && t > 0 {
			config.Drafts.TTLHours = t
		}
	}
	if recent := os.Getenv("ROUTEWISE_DRAFTS_RECENT_MINUTES"); recent != "" {
		if r, err := strconv.Atoi(recent); err == nil && r > 0 {
			config.Drafts.RecentMinutes = r
		}
	}

	// Places configuration
	if key := os.Getenv("ROUTEWISE_MAPS_API_KEY"); key != "" {
		config.Places.MapsAPIKey = key
	}
	if seeds := os.Getenv("ROUTEWISE_PLACES_SEED_FILES"); seeds != "" {
		files := []string{}
		for _, f := range strings.Split(seeds, ",") {
			if trimmed := strings.TrimSpace(f); trimmed != "" {
				files = append(files, trimmed)
			}
		}
		if len(files) > 0 {
			config.Places.SeedFiles = files
		}
	}

	// Scheduler configuration
	if enabled := os.Getenv("ROUTEWISE_SCHEDULER_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Scheduler.Enabled = e
		}
	}
	if schedule := os.Getenv("ROUTEWISE_DRAFT_SWEEP_SCHEDULE"); schedule != "" {
		config.Scheduler.DraftSweepSchedule = schedule
	}
	if schedule := os.Getenv("ROUTEWISE_GC_SCHEDULE"); schedule != "" {
		config.Scheduler.GCSchedule = schedule
	}

	// WebSocket configuration
	if minLevel := os.Getenv("ROUTEWISE_WEBSOCKET_MIN_LEVEL"); minLevel != "" {
		config.WebSocket.MinLevel = minLevel
	}
	if allowedEvents := os.Getenv("ROUTEWISE_WEBSOCKET_ALLOWED_EVENTS"); allowedEvents != "" {
		events := []string{}
		for _, e := range strings.Split(allowedEvents, ",") {
			if trimmed := strings.TrimSpace(e); trimmed != "" {
				events = append(events, trimmed)
			}
		}
		if len(events) > 0 {
			config.WebSocket.AllowedEvents = events
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks the merged configuration using go-playground/validator.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := ValidateSchedule(c.Scheduler.DraftSweepSchedule); err != nil {
		return fmt.Errorf("invalid draft sweep schedule: %w", err)
	}
	if err := ValidateSchedule(c.Scheduler.GCSchedule); err != nil {
		return fmt.Errorf("invalid gc schedule: %w", err)
	}

	return nil
}

// ValidateSchedule validates a cron schedule expression and enforces a
// minimum 5-minute interval for maintenance jobs.
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	parts := strings.Fields(schedule)
	if len(parts) < 5 {
		return fmt.Errorf("invalid cron format: expected 5 fields")
	}

	minuteField := parts[0]
	if minuteField == "*" {
		return fmt.Errorf("schedule must have minimum 5-minute interval (every minute is not allowed)")
	}
	if strings.HasPrefix(minuteField, "*/") {
		interval, err := strconv.Atoi(strings.TrimPrefix(minuteField, "*/"))
		if err == nil && interval < 5 {
			return fmt.Errorf("schedule interval must be at least 5 minutes, got %d", interval)
		}
	}

	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
