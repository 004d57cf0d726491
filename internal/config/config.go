package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// Config holds the full runtime configuration, loaded from environment
// variables with sensible defaults for a local deployment.
type Config struct {
	Data        DataConfig
	Descriptor  DescriptorConfig
	Quality     QualityConfig
	Trainer     TrainerConfig
	Recognition RecognitionConfig
	Server      ServerConfig
	Log         LogConfig
}

// DataConfig locates the on-disk stores.
type DataConfig struct {
	Dir        string // base data directory (default ./data)
	CorpusPath string // descriptor corpus artifact
	ModelPath  string // trained model artifact
	LedgerDir  string // per-identity attendance CSV files
}

// DescriptorConfig controls the gradient-histogram extractor. The descriptor
// width is fully determined by this geometry; changing any field invalidates
// every previously persisted corpus and model.
type DescriptorConfig struct {
	ImageSize    int // face region is resized to ImageSize x ImageSize
	CellSize     int // pixels per histogram cell
	BlockSize    int // cells per normalization block (square)
	Orientations int // gradient orientation bins
}

// QualityConfig holds the training-time sample acceptance thresholds.
type QualityConfig struct {
	MinRegionSize int     // reject face regions smaller than this (pixels)
	MinBrightness float64 // mean grayscale intensity floor (0-255)
	MinSharpness  float64 // Laplacian variance floor
}

// OverfitSeverity selects how the trainer treats an excessive
// train/test accuracy gap.
type OverfitSeverity string

// Overfit gap handling modes.
const (
	OverfitWarn   OverfitSeverity = "warn"
	OverfitReject OverfitSeverity = "reject"
)

// TrainerConfig holds the model acceptance policy.
type TrainerConfig struct {
	Learner         string          // knn | linear | boost | mlp
	TestFraction    float64         // held-out share for validation
	MinTestAccuracy float64         // hard acceptance bar
	MaxOverfitGap   float64         // train minus test accuracy bar
	OverfitSeverity OverfitSeverity // warn (default) or reject
	Seed            int64           // split shuffle seed, fixed for reproducibility
}

// RecognitionConfig controls the recognition gate.
type RecognitionConfig struct {
	MaxAttempts int     // frames examined before giving up
	Threshold   float64 // confidence override; <= 0 means use the model's own
	UseQuality  bool    // apply the quality gate to live frames too
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Port       int
	Host       string
	AuthToken  string // bearer token for user endpoints
	AdminToken string // bearer token for admin endpoints
}

// LogConfig controls logging output.
type LogConfig struct {
	Level string // debug | info | warn | error
	Dir   string // rotated log files; empty disables file output
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

// envFloat reads an environment variable and parses it as a float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

// envString reads an environment variable with a default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envBool reads an environment variable as a boolean flag.
func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return defaultVal
	}
	return b
}

// Load builds the configuration from the environment.
func Load() *Config {
	dataDir := envString("FACECLOCK_DATA_DIR", "data")

	severity := OverfitSeverity(envString("TRAINER_OVERFIT_SEVERITY", string(OverfitWarn)))
	if severity != OverfitWarn && severity != OverfitReject {
		severity = OverfitWarn
	}

	return &Config{
		Data: DataConfig{
			Dir:        dataDir,
			CorpusPath: envString("FACECLOCK_CORPUS_PATH", filepath.Join(dataDir, "dataset", "corpus.json")),
			ModelPath:  envString("FACECLOCK_MODEL_PATH", filepath.Join(dataDir, "models", "model.json")),
			LedgerDir:  envString("FACECLOCK_LEDGER_DIR", filepath.Join(dataDir, "logs")),
		},
		Descriptor: DescriptorConfig{
			ImageSize:    envInt("DESCRIPTOR_IMAGE_SIZE", 96),
			CellSize:     envInt("DESCRIPTOR_CELL_SIZE", 8),
			BlockSize:    envInt("DESCRIPTOR_BLOCK_SIZE", 2),
			Orientations: envInt("DESCRIPTOR_ORIENTATIONS", 9),
		},
		Quality: QualityConfig{
			MinRegionSize: envInt("QUALITY_MIN_REGION_SIZE", 10),
			MinBrightness: envFloat("QUALITY_MIN_BRIGHTNESS", 50),
			MinSharpness:  envFloat("QUALITY_MIN_SHARPNESS", 100),
		},
		Trainer: TrainerConfig{
			Learner:         envString("TRAINER_LEARNER", "knn"),
			TestFraction:    envFloat("TRAINER_TEST_FRACTION", 0.3),
			MinTestAccuracy: envFloat("TRAINER_MIN_TEST_ACCURACY", 0.8),
			MaxOverfitGap:   envFloat("TRAINER_MAX_OVERFIT_GAP", 0.15),
			OverfitSeverity: severity,
			Seed:            42,
		},
		Recognition: RecognitionConfig{
			MaxAttempts: envInt("RECOGNITION_MAX_ATTEMPTS", 10),
			Threshold:   envFloat("RECOGNITION_THRESHOLD", 0),
			UseQuality:  envBool("RECOGNITION_USE_QUALITY", false),
		},
		Server: ServerConfig{
			Port:       envInt("WEB_PORT", 8080),
			Host:       envString("WEB_HOST", "0.0.0.0"),
			AuthToken:  os.Getenv("WEB_AUTH_TOKEN"),
			AdminToken: os.Getenv("WEB_ADMIN_TOKEN"),
		},
		Log: LogConfig{
			Level: envString("LOG_LEVEL", "info"),
			Dir:   os.Getenv("LOG_DIR"),
		},
	}
}
