// Package face builds the configured landmark detector and embedding
// provider. Providers are created once at startup and injected.
package face

import (
	"context"
	"fmt"

	"github.com/saturnino-fabrica-de-software/ponto/internal/audit"
	"github.com/saturnino-fabrica-de-software/ponto/internal/config"
	"github.com/saturnino-fabrica-de-software/ponto/internal/provider"
	"github.com/saturnino-fabrica-de-software/ponto/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/ponto/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/ponto/internal/provider/rekognition"
)

// ProviderType defines supported provider implementations
type ProviderType string

const (
	// ProviderTypeDeepFace computes embeddings through a DeepFace server
	ProviderTypeDeepFace ProviderType = "deepface"
	// ProviderTypeRekognition detects eye landmarks with AWS Rekognition
	ProviderTypeRekognition ProviderType = "rekognition"
	// ProviderTypeDlib computes embeddings in-process (build tag "dlib")
	ProviderTypeDlib ProviderType = "dlib"
	// ProviderTypeMock is deterministic and offline, for development
	ProviderTypeMock ProviderType = "mock"
)

// mockBlinkPeriod makes the development detector blink every half second
// of 30 fps video.
const mockBlinkPeriod = 15

// NewEmbeddingProvider creates the provider selected by EMBEDDING_PROVIDER.
func NewEmbeddingProvider(cfg *config.Config) (provider.EmbeddingProvider, error) {
	switch ProviderType(cfg.EmbeddingProvider) {
	case ProviderTypeDeepFace, "":
		return createDeepFaceProvider(cfg), nil
	case ProviderTypeDlib:
		return newDlibProvider(cfg)
	case ProviderTypeMock:
		return mock.NewEmbeddingProvider(), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: %s, %s, %s)",
			cfg.EmbeddingProvider, ProviderTypeDeepFace, ProviderTypeDlib, ProviderTypeMock)
	}
}

// NewLandmarkDetector creates the detector selected by LANDMARK_PROVIDER.
func NewLandmarkDetector(ctx context.Context, cfg *config.Config, auditLogger audit.Logger) (provider.LandmarkDetector, error) {
	switch ProviderType(cfg.LandmarkProvider) {
	case ProviderTypeRekognition, "":
		return createRekognitionProvider(ctx, cfg, auditLogger)
	case ProviderTypeMock:
		return mock.NewBlinkingDetector(mockBlinkPeriod), nil
	default:
		return nil, fmt.Errorf("unknown landmark provider: %s (supported: %s, %s)",
			cfg.LandmarkProvider, ProviderTypeRekognition, ProviderTypeMock)
	}
}

func createRekognitionProvider(ctx context.Context, cfg *config.Config, auditLogger audit.Logger) (provider.LandmarkDetector, error) {
	rekogConfig := rekognition.DefaultConfig()
	if cfg.AWSRegion != "" {
		rekogConfig.Region = cfg.AWSRegion
	}

	var opts []rekognition.ProviderOption
	if auditLogger != nil {
		opts = append(opts, rekognition.WithAuditLogger(auditLogger))
	}

	prov, err := rekognition.NewProvider(ctx, rekogConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("create rekognition provider: %w", err)
	}

	return prov, nil
}

// createDeepFaceProvider fills unset fields from deepface.DefaultConfig.
func createDeepFaceProvider(cfg *config.Config) provider.EmbeddingProvider {
	deepfaceConfig := deepface.DefaultConfig()
	if cfg.DeepFaceURL != "" {
		deepfaceConfig.BaseURL = cfg.DeepFaceURL
	}
	if cfg.DeepFaceModel != "" {
		deepfaceConfig.Model = cfg.DeepFaceModel
	}
	if cfg.DeepFaceDetector != "" {
		deepfaceConfig.Detector = cfg.DeepFaceDetector
	}

	return deepface.NewProvider(deepfaceConfig)
}
