package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	EventStore EventStoreConfig
	Auth       AuthConfig
	Oracle     OracleConfig
	Registry   RegistryConfig
	Guidelines GuidelinesConfig
}

// GuidelinesConfig holds the published poverty-guideline figures and the
// program thresholds derived from them. These track the federal guidelines
// published each year, so they are configuration rather than code.
type GuidelinesConfig struct {
	// FPLBase is the annual federal poverty line for a one-person household
	FPLBase float64
	// FPLPerPerson is the annual increment for each additional household member
	FPLPerPerson float64
	// AMIMultiplier approximates area median income as a multiple of the FPL
	// when no regional AMI data is available
	AMIMultiplier float64
	// HousingBurdenRatio is the rent-to-income ratio above which a household
	// is considered housing cost burdened
	HousingBurdenRatio float64
	// TANFLimitPercent is the state-style cash assistance income limit,
	// expressed as a percent of the FPL
	TANFLimitPercent float64
	// CTCAgeCutoff is the qualifying-child age limit for the child credit
	CTCAgeCutoff int
}

// OracleConfig holds configuration for the external scoring oracle.
// The oracle is advisory only; the rule engine remains authoritative.
type OracleConfig struct {
	URL            string
	Enabled        bool
	TimeoutSeconds int
}

// RegistryConfig holds configuration for the legacy state benefits registry
// (an MSSQL system some counties still run enrollment records on).
type RegistryConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// EventStoreConfig holds configuration for the EventStoreDB audit stream.
type EventStoreConfig struct {
	Host     string
	Port     int
	Insecure bool
	Username string
	Password string
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

type AuthConfig struct {
	JWTSecret       string
	SessionTTLHours int
}

func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("SERVER_PORT", 8080),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "aidmatch"),
			Password: getEnv("DB_PASSWORD", "aidmatch"),
			Database: getEnv("DB_NAME", "aidmatch"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		EventStore: EventStoreConfig{
			Host:     getEnv("EVENTSTORE_HOST", "localhost"),
			Port:     getEnvInt("EVENTSTORE_PORT", 2113),
			Insecure: getEnvBool("EVENTSTORE_INSECURE", true),
			Username: getEnv("EVENTSTORE_USERNAME", ""),
			Password: getEnv("EVENTSTORE_PASSWORD", ""),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("JWT_SECRET", "dev-secret-change-in-prod"),
			SessionTTLHours: getEnvInt("SESSION_TTL_HOURS", 24),
		},
		Oracle: OracleConfig{
			URL:            getEnv("ORACLE_URL", "http://localhost:5000"),
			Enabled:        getEnvBool("ORACLE_ENABLED", false),
			TimeoutSeconds: getEnvInt("ORACLE_TIMEOUT_SECONDS", 10),
		},
		Registry: RegistryConfig{
			Enabled:  getEnvBool("REGISTRY_ENABLED", false),
			Host:     getEnv("REGISTRY_HOST", "localhost"),
			Port:     getEnvInt("REGISTRY_PORT", 1433),
			User:     getEnv("REGISTRY_USER", "sa"),
			Password: getEnv("REGISTRY_PASSWORD", ""),
			Database: getEnv("REGISTRY_DB", "StateBenefits"),
		},
		Guidelines: GuidelinesConfig{
			FPLBase:            getEnvFloat("FPL_BASE_ANNUAL", 15060),
			FPLPerPerson:       getEnvFloat("FPL_PER_PERSON_ANNUAL", 5380),
			AMIMultiplier:      getEnvFloat("AMI_FPL_MULTIPLIER", 2.5),
			HousingBurdenRatio: getEnvFloat("HOUSING_BURDEN_RATIO", 0.30),
			TANFLimitPercent:   getEnvFloat("TANF_LIMIT_PERCENT_FPL", 50),
			CTCAgeCutoff:       getEnvInt("CTC_AGE_CUTOFF", 17),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
