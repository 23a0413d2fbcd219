package deepface

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/saturnino-fabrica-de-software/ponto/internal/provider"
)

// Provider implements provider.EmbeddingProvider using the DeepFace API
type Provider struct {
	client *Client
}

// NewProvider creates a new DeepFace provider
func NewProvider(config Config) *Provider {
	return &Provider{
		client: NewClient(config),
	}
}

// Represent returns the embedding of the first face DeepFace finds.
func (p *Provider) Represent(ctx context.Context, image []byte) ([]float64, error) {
	imageBase64 := base64.StdEncoding.EncodeToString(image)

	resp, err := p.client.Represent(ctx, imageBase64)
	if err != nil {
		if isNoFaceError(err) {
			return nil, provider.ErrNoFace
		}
		return nil, fmt.Errorf("represent: %w", err)
	}

	if len(resp.Results) == 0 || len(resp.Results[0].Embedding) == 0 {
		return nil, provider.ErrNoFace
	}

	return resp.Results[0].Embedding, nil
}

// isNoFaceError recognises the 400 DeepFace sends when enforce_detection
// rejects an image.
func isNoFaceError(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	if statusErr.Code != http.StatusBadRequest {
		return false
	}
	return strings.Contains(strings.ToLower(statusErr.Body), "face could not be detected")
}

var _ provider.EmbeddingProvider = (*Provider)(nil)
