package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ehr/mpi/internal/platform/mpi"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	LogLevel       string   `mapstructure:"LOG_LEVEL"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir  string   `mapstructure:"MIGRATIONS_DIR"`
	AuthIssuer     string   `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string   `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey string   `mapstructure:"AUTH_SIGNING_KEY"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout string   `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit      string   `mapstructure:"BODY_LIMIT"`

	DuplicateThreshold  int    `mapstructure:"MPI_DUPLICATE_THRESHOLD"`
	CandidateLimit      int    `mapstructure:"MPI_CANDIDATE_LIMIT"`
	PhoneCountryCode    string `mapstructure:"MPI_PHONE_COUNTRY_CODE"`
	PhoneSuffixDigits   int    `mapstructure:"MPI_PHONE_SUFFIX_DIGITS"`
	PhoneNationalLength int    `mapstructure:"MPI_PHONE_NATIONAL_LENGTH"`
	PatientNumberPrefix string `mapstructure:"MPI_PATIENT_NUMBER_PREFIX"`
	WeightFirstName     int    `mapstructure:"MPI_WEIGHT_FIRST_NAME"`
	WeightLastName      int    `mapstructure:"MPI_WEIGHT_LAST_NAME"`
	WeightMiddleName    int    `mapstructure:"MPI_WEIGHT_MIDDLE_NAME"`
	WeightDateOfBirth   int    `mapstructure:"MPI_WEIGHT_DATE_OF_BIRTH"`
	WeightPhoneNumber   int    `mapstructure:"MPI_WEIGHT_PHONE_NUMBER"`
	WeightGender        int    `mapstructure:"MPI_WEIGHT_GENDER"`
}

var envKeys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "MIGRATIONS_DIR",
	"AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_SIGNING_KEY", "CORS_ORIGINS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT", "BODY_LIMIT",
	"MPI_DUPLICATE_THRESHOLD", "MPI_CANDIDATE_LIMIT",
	"MPI_PHONE_COUNTRY_CODE", "MPI_PHONE_SUFFIX_DIGITS", "MPI_PHONE_NATIONAL_LENGTH",
	"MPI_PATIENT_NUMBER_PREFIX",
	"MPI_WEIGHT_FIRST_NAME", "MPI_WEIGHT_LAST_NAME", "MPI_WEIGHT_MIDDLE_NAME",
	"MPI_WEIGHT_DATE_OF_BIRTH", "MPI_WEIGHT_PHONE_NUMBER", "MPI_WEIGHT_GENDER",
}

// Load reads configuration from the environment, falling back to a .env
// file in the working directory and then to defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	def := mpi.DefaultConfig()
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("REQUEST_TIMEOUT", "15s")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("MPI_DUPLICATE_THRESHOLD", def.DuplicateThreshold)
	v.SetDefault("MPI_CANDIDATE_LIMIT", def.CandidateLimit)
	v.SetDefault("MPI_PHONE_COUNTRY_CODE", def.Phone.CountryCode)
	v.SetDefault("MPI_PHONE_SUFFIX_DIGITS", def.Phone.SuffixDigits)
	v.SetDefault("MPI_PHONE_NATIONAL_LENGTH", def.Phone.NationalLength)
	v.SetDefault("MPI_PATIENT_NUMBER_PREFIX", def.PatientNumberPrefix)
	v.SetDefault("MPI_WEIGHT_FIRST_NAME", def.Weights.FirstName)
	v.SetDefault("MPI_WEIGHT_LAST_NAME", def.Weights.LastName)
	v.SetDefault("MPI_WEIGHT_MIDDLE_NAME", def.Weights.MiddleName)
	v.SetDefault("MPI_WEIGHT_DATE_OF_BIRTH", def.Weights.DateOfBirth)
	v.SetDefault("MPI_WEIGHT_PHONE_NUMBER", def.Weights.PhoneNumber)
	v.SetDefault("MPI_WEIGHT_GENDER", def.Weights.Gender)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Timeout parses REQUEST_TIMEOUT. Zero disables the request deadline.
func (c *Config) Timeout() (time.Duration, error) {
	if c.RequestTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid REQUEST_TIMEOUT %q: %w", c.RequestTimeout, err)
	}
	return d, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// MPI builds the matching engine configuration. Thresholds and the
// phonetic bonus are fixed; everything else is tunable.
func (c *Config) MPI() mpi.Config {
	m := mpi.DefaultConfig()
	m.DuplicateThreshold = c.DuplicateThreshold
	m.CandidateLimit = c.CandidateLimit
	m.PatientNumberPrefix = c.PatientNumberPrefix
	m.Phone = mpi.PhoneRules{
		CountryCode:    c.PhoneCountryCode,
		SuffixDigits:   c.PhoneSuffixDigits,
		NationalLength: c.PhoneNationalLength,
	}
	m.Weights = mpi.Weights{
		FirstName:   c.WeightFirstName,
		LastName:    c.WeightLastName,
		MiddleName:  c.WeightMiddleName,
		DateOfBirth: c.WeightDateOfBirth,
		PhoneNumber: c.WeightPhoneNumber,
		Gender:      c.WeightGender,
	}
	return m
}

// Validate checks settings shared by every command: the engine
// configuration and, outside development, the token settings.
func (c *Config) Validate() error {
	if err := c.MPI().Validate(); err != nil {
		return err
	}
	if _, err := c.Timeout(); err != nil {
		return err
	}
	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is required when ENV=%q", c.Env)
	}
	if c.AuthSigningKey != "" && len(c.AuthSigningKey) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 characters, got %d", len(c.AuthSigningKey))
	}
	return nil
}

// RequireDatabase reports a missing DATABASE_URL for commands that need one.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}
