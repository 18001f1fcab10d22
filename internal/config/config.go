package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreMongo    = "mongo"
	StoreSupabase = "supabase"
	StoreMemory   = "memory"

	ImagesCloudinary = "cloudinary"
	ImagesSupabase   = "supabase"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	EventStore string
	ImageStore string

	SupabaseURL            string
	SupabaseAnonKey        string
	SupabaseServiceRoleKey string
	SupabaseJWTSecret      string

	MongoDBURI      string
	MongoDBPassword string
	MongoDBDatabase string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	ReportThreshold          int
	DefaultPageSize          int
	MaxPageSize              int
	CampusLocation           *time.Location
	PublicIncludeUnderReview bool
	EventMaxDaysAhead        int
	CORSAllowedOrigins       []string
	SessionCacheCapacity     int
	WriteRatePerMinute       int
	WriteBurst               int
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:        getEnvWithDefault("PORT", "8080"),
		Environment: getEnvWithDefault("ENVIRONMENT", "development"),
		LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),

		EventStore: strings.ToLower(getEnvWithDefault("EVENT_STORE", StoreMongo)),
		ImageStore: strings.ToLower(getEnvWithDefault("IMAGE_STORE", ImagesCloudinary)),

		SupabaseURL:            os.Getenv("SUPABASE_URL"),
		SupabaseAnonKey:        os.Getenv("SUPABASE_URL_ANON_KEY"),
		SupabaseServiceRoleKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		SupabaseJWTSecret:      os.Getenv("SUPABASE_JWT_SECRET"),

		MongoDBURI:      os.Getenv("MONGODB_URI"),
		MongoDBPassword: os.Getenv("MONGODB_PASSWORD"),
		MongoDBDatabase: getEnvWithDefault("MONGODB_DATABASE", "campus_events"),

		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),

		CORSAllowedOrigins: splitList(getEnvWithDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	var err error
	ints := []struct {
		key  string
		def  int
		min  int
		dest *int
	}{
		{"REPORT_THRESHOLD", 3, 1, &cfg.ReportThreshold},
		{"DEFAULT_PAGE_SIZE", 12, 1, &cfg.DefaultPageSize},
		{"MAX_PAGE_SIZE", 100, 1, &cfg.MaxPageSize},
		{"EVENT_MAX_DAYS_AHEAD", 14, 1, &cfg.EventMaxDaysAhead},
		{"SESSION_CACHE_CAPACITY", 1024, 1, &cfg.SessionCacheCapacity},
		{"WRITE_RATE_PER_MINUTE", 30, 1, &cfg.WriteRatePerMinute},
		{"WRITE_BURST", 10, 1, &cfg.WriteBurst},
	}
	for _, f := range ints {
		if *f.dest, err = getIntWithDefault(f.key, f.def, f.min); err != nil {
			return nil, err
		}
	}
	if cfg.DefaultPageSize > cfg.MaxPageSize {
		return nil, fmt.Errorf("DEFAULT_PAGE_SIZE (%d) cannot exceed MAX_PAGE_SIZE (%d)", cfg.DefaultPageSize, cfg.MaxPageSize)
	}

	if cfg.PublicIncludeUnderReview, err = getBoolWithDefault("PUBLIC_INCLUDE_UNDER_REVIEW", true); err != nil {
		return nil, err
	}

	tz := getEnvWithDefault("CAMPUS_TIMEZONE", "UTC")
	if cfg.CampusLocation, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("CAMPUS_TIMEZONE %q: %v", tz, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	// Supabase Auth backs login and the profiles table in every mode.
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseAnonKey == "" {
		return fmt.Errorf("SUPABASE_URL_ANON_KEY is required")
	}

	switch c.EventStore {
	case StoreMongo:
		if c.MongoDBURI == "" {
			return fmt.Errorf("MONGODB_URI is required when EVENT_STORE=mongo")
		}
		if strings.Contains(c.MongoDBURI, "<password>") && c.MongoDBPassword == "" {
			return fmt.Errorf("MONGODB_PASSWORD is required")
		}
	case StoreSupabase, StoreMemory:
	default:
		return fmt.Errorf("EVENT_STORE must be one of mongo, supabase, memory; got %q", c.EventStore)
	}

	switch c.ImageStore {
	case ImagesCloudinary:
		if c.CloudinaryCloudName == "" || c.CloudinaryAPIKey == "" || c.CloudinaryAPISecret == "" {
			return fmt.Errorf("CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET are required when IMAGE_STORE=cloudinary")
		}
	case ImagesSupabase:
	default:
		return fmt.Errorf("IMAGE_STORE must be cloudinary or supabase; got %q", c.ImageStore)
	}
	return nil
}

// SupabaseServerKey is the key used for server-side table and storage
// writes. The service role key bypasses row level security when set.
func (c *Config) SupabaseServerKey() string {
	if c.SupabaseServiceRoleKey != "" {
		return c.SupabaseServiceRoleKey
	}
	return c.SupabaseAnonKey
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntWithDefault(key string, defaultValue, min int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %v", key, err)
	}
	if v < min {
		return 0, fmt.Errorf("%s must be at least %d", key, min)
	}
	return v, nil
}

func getBoolWithDefault(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %v", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
