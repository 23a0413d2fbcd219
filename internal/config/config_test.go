package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*Config) bool
	}{
		{
			name: "loads with all required vars",
			envVars: map[string]string{
				"PORT":            "8080",
				"ENV":             "production",
				"DATABASE_URL":    "postgres://localhost/test",
				"MATCH_TOLERANCE": "0.5",
				"LOCK_BACKEND":    "redis",
			},
			wantErr: false,
			check: func(c *Config) bool {
				return c.Port == 8080 &&
					c.Environment == "production" &&
					c.DatabaseURL == "postgres://localhost/test" &&
					c.MatchTolerance == 0.5 &&
					c.LockBackend == "redis"
			},
		},
		{
			name: "uses defaults when optional vars missing",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://localhost/test",
			},
			wantErr: false,
			check: func(c *Config) bool {
				return c.Port == 3000 &&
					c.Environment == "development" &&
					c.EmbeddingProvider == "deepface" &&
					c.EmbeddingBackend == "file" &&
					c.EARThreshold == 0.25 &&
					c.EARConsecFrames == 2 &&
					c.MatchTolerance == 0.6 &&
					c.MatchStrategy == "first" &&
					c.AutoMigrate &&
					c.ProcessingTimeout == 2*time.Minute &&
					c.UploadSweepInterval == 10*time.Minute &&
					c.MQTTTopic == "ponto/attendance" &&
					!c.NotificationsEnabled() &&
					!c.BrokerEnabled()
			},
		},
		{
			name:    "fails when DATABASE_URL missing",
			envVars: map[string]string{},
			wantErr: true,
		},
		{
			name: "fails on invalid downscale",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://localhost/test",
				"DOWNSCALE":    "1.5",
			},
			wantErr: true,
		},
		{
			name: "fails on unknown embedding backend",
			envVars: map[string]string{
				"DATABASE_URL":      "postgres://localhost/test",
				"EMBEDDING_BACKEND": "s3",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("Load() unexpected error: %v", err)
				return
			}

			if tt.check != nil && !tt.check(cfg) {
				t.Errorf("Load() config check failed, got: %+v", cfg)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			EmbeddingBackend: "file",
			LockBackend:      "memory",
			VideoDecoder:     "ffmpeg",
			EARThreshold:     0.25,
			EARConsecFrames:  2,
			FrameStride:      1,
			Downscale:        1,
			MatchTolerance:   0.6,
			MatchStrategy:    "first",
			MaxUploadBytes:   1024,

			ProcessingTimeout:   2 * time.Minute,
			UploadSweepInterval: 10 * time.Minute,
			UploadMaxAge:        30 * time.Minute,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"zero threshold", func(c *Config) { c.EARThreshold = 0 }, true},
		{"zero consecutive frames", func(c *Config) { c.EARConsecFrames = 0 }, true},
		{"zero stride", func(c *Config) { c.FrameStride = 0 }, true},
		{"negative fallback", func(c *Config) { c.FallbackInterval = -1 }, true},
		{"zero tolerance", func(c *Config) { c.MatchTolerance = 0 }, true},
		{"postgres backend", func(c *Config) { c.EmbeddingBackend = "postgres" }, false},
		{"unknown lock backend", func(c *Config) { c.LockBackend = "etcd" }, true},
		{"gocv decoder", func(c *Config) { c.VideoDecoder = "gocv" }, false},
		{"unknown decoder", func(c *Config) { c.VideoDecoder = "vlc" }, true},
		{"best strategy", func(c *Config) { c.MatchStrategy = "best" }, false},
		{"unknown strategy", func(c *Config) { c.MatchStrategy = "closest" }, true},
		{"qos out of range", func(c *Config) { c.MQTTQoS = 3 }, true},
		{"sweep disabled", func(c *Config) { c.UploadSweepInterval = 0; c.UploadMaxAge = 0 }, false},
		{"max age below timeout", func(c *Config) { c.UploadMaxAge = time.Minute }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"development", "development", true},
		{"production", "production", false},
		{"staging", "staging", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Environment: tt.env}
			if got := c.IsDevelopment(); got != tt.want {
				t.Errorf("IsDevelopment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"production", "production", true},
		{"development", "development", false},
		{"staging", "staging", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Environment: tt.env}
			if got := c.IsProduction(); got != tt.want {
				t.Errorf("IsProduction() = %v, want %v", got, tt.want)
			}
		})
	}
}
