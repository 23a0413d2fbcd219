package rekognition

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/saturnino-fabrica-de-software/ponto/internal/audit"
	"github.com/saturnino-fabrica-de-software/ponto/internal/geometry"
	"github.com/saturnino-fabrica-de-software/ponto/internal/provider"
)

// maxImageSize is the maximum image size accepted by DetectFaces (5MB)
const maxImageSize = 5 * 1024 * 1024

// Provider implements provider.LandmarkDetector using AWS Rekognition DetectFaces.
type Provider struct {
	api         RekognitionAPI
	config      Config
	auditLogger audit.Logger
}

// ProviderOption defines optional configuration for Provider
type ProviderOption func(*Provider)

// WithAuditLogger sets the audit logger for the provider
func WithAuditLogger(logger audit.Logger) ProviderOption {
	return func(p *Provider) {
		p.auditLogger = logger
	}
}

var _ provider.LandmarkDetector = (*Provider)(nil)

// NewProvider creates a provider backed by a real Rekognition client.
func NewProvider(ctx context.Context, cfg Config, opts ...ProviderOption) (*Provider, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create rekognition client: %w", err)
	}
	return NewProviderWithAPI(client, cfg, opts...), nil
}

// NewProviderWithAPI creates a provider over any RekognitionAPI implementation.
func NewProviderWithAPI(api RekognitionAPI, cfg Config, opts ...ProviderOption) *Provider {
	p := &Provider{
		api:    api,
		config: cfg,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// logAudit is fire-and-forget: audit failures never affect detection.
func (p *Provider) logAudit(ctx context.Context, success bool, err error, metadata map[string]string) {
	if p.auditLogger == nil {
		return
	}

	event := audit.Event{
		EventType: audit.EventLandmarksDetected,
		Provider:  "rekognition",
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = err.Error()
	}

	_ = p.auditLogger.Log(ctx, event)
}

// DetectLandmarks returns eye contours in pixel coordinates for every face
// above MinConfidence. Rekognition reports landmarks as ratios of the image
// size, so the image header is decoded to scale them back; otherwise the
// aspect ratio of a non-square frame would distort the EAR.
func (p *Provider) DetectLandmarks(ctx context.Context, img []byte) ([]provider.FaceLandmarks, error) {
	if len(img) == 0 || len(img) > maxImageSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidImage, len(img))
	}

	imgCfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	width, height := float64(imgCfg.Width), float64(imgCfg.Height)

	output, err := p.api.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image:      &types.Image{Bytes: img},
		Attributes: []types.Attribute{types.AttributeAll},
	})
	if err != nil {
		err = classifyError(err)
		p.logAudit(ctx, false, err, map[string]string{"image_size": strconv.Itoa(len(img))})
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	faces := make([]provider.FaceLandmarks, 0, len(output.FaceDetails))
	for _, detail := range output.FaceDetails {
		if detail.Confidence != nil && float64(*detail.Confidence) < p.config.MinConfidence {
			continue
		}
		faces = append(faces, toFaceLandmarks(detail, width, height))
	}

	p.logAudit(ctx, true, nil, map[string]string{
		"faces_count": strconv.Itoa(len(faces)),
		"image_size":  strconv.Itoa(len(img)),
	})

	return faces, nil
}

func toFaceLandmarks(detail types.FaceDetail, width, height float64) provider.FaceLandmarks {
	var face provider.FaceLandmarks
	if bb := detail.BoundingBox; bb != nil {
		face.BoundingBox = provider.BoundingBox{
			X:      float64(deref(bb.Left)) * width,
			Y:      float64(deref(bb.Top)) * height,
			Width:  float64(deref(bb.Width)) * width,
			Height: float64(deref(bb.Height)) * height,
		}
	}

	points := make(map[types.LandmarkType]geometry.Point, len(detail.Landmarks))
	for _, lm := range detail.Landmarks {
		if lm.X == nil || lm.Y == nil {
			continue
		}
		points[lm.Type] = geometry.Point{
			X: float64(*lm.X) * width,
			Y: float64(*lm.Y) * height,
		}
	}

	face.LeftEye = eyeContour(points,
		types.LandmarkTypeLeftEyeLeft, types.LandmarkTypeLeftEyeUp,
		types.LandmarkTypeLeftEyeRight, types.LandmarkTypeLeftEyeDown)
	face.RightEye = eyeContour(points,
		types.LandmarkTypeRightEyeLeft, types.LandmarkTypeRightEyeUp,
		types.LandmarkTypeRightEyeRight, types.LandmarkTypeRightEyeDown)

	return face
}

// eyeContour expands Rekognition's four eye landmarks into the six-point
// order EyeAspectRatio expects: corner, up, up, corner, down, down.
// Returns nil if any landmark is missing.
func eyeContour(points map[types.LandmarkType]geometry.Point, left, up, right, down types.LandmarkType) []geometry.Point {
	l, okL := points[left]
	u, okU := points[up]
	r, okR := points[right]
	d, okD := points[down]
	if !okL || !okU || !okR || !okD {
		return nil
	}
	return []geometry.Point{l, u, u, r, d, d}
}

func deref(v *float32) float32 {
	if v == nil {
		return 0
	}
	return *v
}
