package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	AutoMigrate bool   `envconfig:"AUTO_MIGRATE" default:"true"`

	// Storage
	EmbeddingBackend string `envconfig:"EMBEDDING_BACKEND" default:"file"`
	EmbeddingsDir    string `envconfig:"EMBEDDINGS_DIR" default:"static/embeddings"`
	CapturesDir      string `envconfig:"CAPTURES_DIR" default:"static/captures"`
	RawUploadDir     string `envconfig:"RAW_UPLOAD_DIR" default:"static/captures/raw"`

	// Providers
	EmbeddingProvider string `envconfig:"EMBEDDING_PROVIDER" default:"deepface"`
	LandmarkProvider  string `envconfig:"LANDMARK_PROVIDER" default:"rekognition"`
	DeepFaceURL       string `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`
	DeepFaceModel     string `envconfig:"DEEPFACE_MODEL" default:"Dlib"`
	DeepFaceDetector  string `envconfig:"DEEPFACE_DETECTOR" default:"dlib"`
	AWSRegion         string `envconfig:"AWS_REGION" default:"us-east-1"`
	DlibModelsDir     string `envconfig:"DLIB_MODELS_DIR" default:"models"`

	// Liveness
	EARThreshold     float64 `envconfig:"EAR_THRESHOLD" default:"0.25"`
	EARConsecFrames  int     `envconfig:"EAR_CONSEC_FRAMES" default:"2"`
	FrameStride      int     `envconfig:"FRAME_STRIDE" default:"1"`
	Downscale        float64 `envconfig:"DOWNSCALE" default:"1.0"`
	FallbackInterval int     `envconfig:"FALLBACK_INTERVAL" default:"0"`

	// Matching
	MatchTolerance float64 `envconfig:"MATCH_TOLERANCE" default:"0.6"`
	MatchStrategy  string  `envconfig:"MATCH_STRATEGY" default:"first"`

	// Limits
	MaxUploadBytes    int64         `envconfig:"MAX_UPLOAD_BYTES" default:"52428800"`
	MaxVideoSeconds   int           `envconfig:"MAX_VIDEO_SECONDS" default:"30"`
	ProcessingTimeout time.Duration `envconfig:"PROCESSING_TIMEOUT" default:"2m"`
	VideoDecoder      string        `envconfig:"VIDEO_DECODER" default:"ffmpeg"`
	FFmpegPath        string        `envconfig:"FFMPEG_PATH" default:"ffmpeg"`
	RateLimitMax      int           `envconfig:"RATE_LIMIT_MAX" default:"30"`

	// Locking
	LockBackend string `envconfig:"LOCK_BACKEND" default:"memory"`
	RedisAddr   string `envconfig:"REDIS_ADDR" default:"localhost:6379"`

	// Notifications (disabled when SMTP_HOST is empty)
	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM"`

	// Broker events (disabled when MQTT_BROKER is empty)
	MQTTBroker   string `envconfig:"MQTT_BROKER"`
	MQTTTopic    string `envconfig:"MQTT_TOPIC" default:"ponto/attendance"`
	MQTTClientID string `envconfig:"MQTT_CLIENT_ID"`
	MQTTQoS      int    `envconfig:"MQTT_QOS" default:"1"`

	// Raw upload janitor
	UploadSweepInterval time.Duration `envconfig:"UPLOAD_SWEEP_INTERVAL" default:"10m"`
	UploadMaxAge        time.Duration `envconfig:"UPLOAD_MAX_AGE" default:"30m"`

	// Logging
	LogFile string `envconfig:"LOG_FILE"`
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.EARThreshold <= 0:
		return errors.New("EAR_THRESHOLD must be positive")
	case c.EARConsecFrames < 1:
		return errors.New("EAR_CONSEC_FRAMES must be at least 1")
	case c.FrameStride < 1:
		return errors.New("FRAME_STRIDE must be at least 1")
	case c.Downscale <= 0 || c.Downscale > 1:
		return errors.New("DOWNSCALE must be in (0, 1]")
	case c.FallbackInterval < 0:
		return errors.New("FALLBACK_INTERVAL must not be negative")
	case c.MatchTolerance <= 0:
		return errors.New("MATCH_TOLERANCE must be positive")
	case c.MaxUploadBytes <= 0:
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	case c.MQTTQoS < 0 || c.MQTTQoS > 2:
		return errors.New("MQTT_QOS must be 0, 1 or 2")
	case c.UploadSweepInterval < 0:
		return errors.New("UPLOAD_SWEEP_INTERVAL must not be negative")
	case c.UploadSweepInterval > 0 && c.UploadMaxAge <= c.ProcessingTimeout:
		return errors.New("UPLOAD_MAX_AGE must exceed PROCESSING_TIMEOUT")
	}

	switch c.EmbeddingBackend {
	case "file", "postgres":
	default:
		return fmt.Errorf("unknown EMBEDDING_BACKEND %q", c.EmbeddingBackend)
	}

	switch c.MatchStrategy {
	case "first", "best":
	default:
		return fmt.Errorf("unknown MATCH_STRATEGY %q", c.MatchStrategy)
	}

	switch c.VideoDecoder {
	case "ffmpeg", "gocv":
	default:
		return fmt.Errorf("unknown VIDEO_DECODER %q", c.VideoDecoder)
	}

	switch c.LockBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown LOCK_BACKEND %q", c.LockBackend)
	}

	return nil
}

// NotificationsEnabled reports whether SMTP settings are present.
func (c *Config) NotificationsEnabled() bool {
	return c.SMTPHost != ""
}

// BrokerEnabled reports whether attendance events go to an MQTT broker.
func (c *Config) BrokerEnabled() bool {
	return c.MQTTBroker != ""
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
