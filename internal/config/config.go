package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret    string
	AccessTTL time.Duration
}

// KafkaConfig holds broker settings. Disabled means events are only logged.
type KafkaConfig struct {
	Enabled     bool
	Brokers     []string
	GroupPrefix string
}

// ProviderConfig holds settings for the third-party geo providers.
type ProviderConfig struct {
	GeoapifyAPIKey    string
	GeoapifyBaseURL   string
	ORSAPIKey         string
	ORSBaseURL        string
	Timeout           time.Duration
	DefaultBiasLat    float64
	DefaultBiasLon    float64
	CountryFilter     string
	AutocompleteLimit int
}

// AdminConfig holds the back-office login.
type AdminConfig struct {
	Username     string
	PasswordHash string
}

// ServiceConfig holds all configuration for the booking service.
type ServiceConfig struct {
	Port             string
	AppEnv           string
	AllowedOrigins   []string
	DBConfig         DatabaseConfig
	JWTConfig        JWTConfig
	KafkaConfig      KafkaConfig
	ProviderConfig   ProviderConfig
	AdminConfig      AdminConfig
	PricingSeedFile  string
	AirportKeywords  []string
	WhatsAppNumber   string
	EstimateDebounce time.Duration
	MigrationsDir    string
}

// Load reads configuration from a .env file (if any) and BOOKING_* environment variables.
func Load() (*ServiceConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("BOOKING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return &ServiceConfig{
		Port:           normalizePort(v.GetString("SERVICE_PORT")),
		AppEnv:         v.GetString("APP_ENV"),
		AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		DBConfig: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		JWTConfig: JWTConfig{
			Secret:    v.GetString("JWT_SECRET"),
			AccessTTL: v.GetDuration("JWT_ACCESS_TTL"),
		},
		KafkaConfig: KafkaConfig{
			Enabled:     v.GetBool("KAFKA_ENABLED"),
			Brokers:     splitList(v.GetString("KAFKA_BROKERS")),
			GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
		},
		ProviderConfig: ProviderConfig{
			GeoapifyAPIKey:    v.GetString("GEOAPIFY_API_KEY"),
			GeoapifyBaseURL:   v.GetString("GEOAPIFY_BASE_URL"),
			ORSAPIKey:         v.GetString("ORS_API_KEY"),
			ORSBaseURL:        v.GetString("ORS_BASE_URL"),
			Timeout:           v.GetDuration("PROVIDER_TIMEOUT"),
			DefaultBiasLat:    v.GetFloat64("DEFAULT_BIAS_LAT"),
			DefaultBiasLon:    v.GetFloat64("DEFAULT_BIAS_LON"),
			CountryFilter:     v.GetString("COUNTRY_FILTER"),
			AutocompleteLimit: v.GetInt("AUTOCOMPLETE_LIMIT"),
		},
		AdminConfig: AdminConfig{
			Username:     v.GetString("ADMIN_USERNAME"),
			PasswordHash: v.GetString("ADMIN_PASSWORD_HASH"),
		},
		PricingSeedFile:  v.GetString("PRICING_SEED_FILE"),
		AirportKeywords:  splitList(v.GetString("AIRPORT_KEYWORDS")),
		WhatsAppNumber:   v.GetString("WHATSAPP_NUMBER"),
		EstimateDebounce: v.GetDuration("ESTIMATE_DEBOUNCE"),
		MigrationsDir:    v.GetString("MIGRATIONS_DIR"),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_PORT", ":8004")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("ALLOWED_ORIGINS", "")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "ridemax_booking")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("JWT_ACCESS_TTL", "12h")

	v.SetDefault("KAFKA_ENABLED", false)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_PREFIX", "ridemax-")

	v.SetDefault("GEOAPIFY_BASE_URL", "https://api.geoapify.com")
	v.SetDefault("ORS_BASE_URL", "https://api.openrouteservice.org")
	v.SetDefault("PROVIDER_TIMEOUT", "5s")
	v.SetDefault("DEFAULT_BIAS_LAT", 19.0760)
	v.SetDefault("DEFAULT_BIAS_LON", 72.8777)
	v.SetDefault("COUNTRY_FILTER", "in")
	v.SetDefault("AUTOCOMPLETE_LIMIT", 5)

	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("PRICING_SEED_FILE", "configs/pricing.yaml")
	v.SetDefault("AIRPORT_KEYWORDS", "")
	v.SetDefault("WHATSAPP_NUMBER", "919876543210")
	v.SetDefault("ESTIMATE_DEBOUNCE", "300ms")
	v.SetDefault("MIGRATIONS_DIR", "migrations")
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizePort(port string) string {
	if port != "" && !strings.Contains(port, ":") {
		return ":" + port
	}
	return port
}
