package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Recognition RecognitionConfig
	Encoder     EncoderConfig
	Database    DatabaseConfig
	Directory   DirectoryConfig
	Storage     StorageConfig
	JWT         JWTConfig
}

// RecognitionConfig holds the face matching parameters. Defaults come from
// the embedded defaults.yaml and can be overridden by environment variables.
type RecognitionConfig struct {
	EmbeddingDim    int     `yaml:"embedding_dim"`
	MaxFacesPerUser int     `yaml:"max_faces_per_user"`
	Threshold       float64 `yaml:"threshold"`
	MaxDistance     float64 `yaml:"max_distance"`
}

type EncoderConfig struct {
	URL string // face-embedding service base URL, defaults to http://localhost:8000
}

type DatabaseConfig struct {
	URL           string // PostgreSQL connection URL
	MaxOpenConns  int    // Maximum open connections (default 25)
	MaxIdleConns  int    // Maximum idle connections (default 5)
	HNSWIndexPath string // Path to persist the gallery HNSW index (optional, if empty index is rebuilt on startup)
}

type DirectoryConfig struct {
	DatabaseURL string // MariaDB DSN of the external user directory (e.g. directory:directory@tcp(mariadb:3306)/directory?parseTime=true)
}

type StorageConfig struct {
	FaceImagesDir string // directory for registration source images
}

type JWTConfig struct {
	Secret     string
	TTLSeconds int // access token lifetime (default 3600)
}

type defaultsFile struct {
	Recognition RecognitionConfig `yaml:"recognition"`
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
	var defaults defaultsFile
	if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	return &Config{
		Recognition: RecognitionConfig{
			EmbeddingDim:    envInt("EMBEDDING_DIM", defaults.Recognition.EmbeddingDim),
			MaxFacesPerUser: envInt("MAX_FACES_PER_USER", defaults.Recognition.MaxFacesPerUser),
			Threshold:       envFloat("AUTH_THRESHOLD", defaults.Recognition.Threshold),
			MaxDistance:     envFloat("MAX_DISTANCE", defaults.Recognition.MaxDistance),
		},
		Encoder: EncoderConfig{
			URL: os.Getenv("ENCODER_URL"),
		},
		Database: DatabaseConfig{
			URL:           os.Getenv("DATABASE_URL"),
			MaxOpenConns:  envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:  envInt("DATABASE_MAX_IDLE_CONNS", 5),
			HNSWIndexPath: os.Getenv("HNSW_INDEX_PATH"),
		},
		Directory: DirectoryConfig{
			DatabaseURL: os.Getenv("DIRECTORY_DATABASE_URL"),
		},
		Storage: StorageConfig{
			FaceImagesDir: os.Getenv("FACE_IMAGES_DIR"),
		},
		JWT: JWTConfig{
			Secret:     os.Getenv("JWT_SECRET"),
			TTLSeconds: envInt("JWT_TTL_SECONDS", 3600),
		},
	}
}
