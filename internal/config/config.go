package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed cohorts.yaml
var cohortsYAML []byte

type Config struct {
	Database    DatabaseConfig
	Detector    DetectorConfig
	Recognition RecognitionConfig
	Web         WebConfig
	SIS         SISConfig
	Cohorts     CohortsConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

// DetectorConfig points at the external face detection/embedding service.
// The service owns the model; this application only ever sees the resulting
// fixed-length vectors.
type DetectorConfig struct {
	URL string // defaults to http://localhost:8000
	Dim int    // embedding dimensionality, defaults to 512
}

type RecognitionConfig struct {
	Threshold    float64 // L2 distance threshold for a positive match (default 0.5)
	WarnDistance float64 // enrollment near-duplicate warning distance (default 0.35)
}

type WebConfig struct {
	APIToken string // static bearer token for the JSON API (empty disables auth)
}

// SISConfig is the optional read-only connection to the institution's
// legacy student information system (MariaDB), used for bulk roster import.
type SISConfig struct {
	DSN string
}

type CohortsConfig struct {
	// DeprioritizedPrefixes lists USN prefixes (case-insensitive) whose
	// students sort after everyone else in rosters and reports.
	DeprioritizedPrefixes []string `yaml:"deprioritized_prefixes"`
	// Branches maps branch codes to display names for report headings.
	Branches map[string]string `yaml:"branches"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func Load() *Config {
	var cohorts CohortsConfig
	if err := yaml.Unmarshal(cohortsYAML, &cohorts); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded cohorts.yaml: " + err.Error())
	}

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Detector: DetectorConfig{
			URL: os.Getenv("DETECTOR_URL"),
			Dim: envInt("DETECTOR_DIM", 512),
		},
		Recognition: RecognitionConfig{
			Threshold:    envFloat("RECOGNITION_THRESHOLD", 0.5),
			WarnDistance: envFloat("RECOGNITION_WARN_DISTANCE", 0.35),
		},
		Web: WebConfig{
			APIToken: os.Getenv("API_TOKEN"),
		},
		SIS: SISConfig{
			DSN: os.Getenv("SIS_DATABASE_URL"),
		},
		Cohorts: cohorts,
	}
}

// BranchName returns the display name for a branch code, or the code itself
// if no mapping is configured.
func (c *Config) BranchName(code string) string {
	if name, ok := c.Cohorts.Branches[code]; ok {
		return name
	}
	return code
}
