//go:build dlib

package face

import (
	"github.com/saturnino-fabrica-de-software/ponto/internal/config"
	"github.com/saturnino-fabrica-de-software/ponto/internal/provider"
	"github.com/saturnino-fabrica-de-software/ponto/internal/provider/dlib"
)

func newDlibProvider(cfg *config.Config) (provider.EmbeddingProvider, error) {
	return dlib.NewProvider(cfg.DlibModelsDir)
}
