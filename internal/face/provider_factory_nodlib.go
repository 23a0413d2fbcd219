//go:build !dlib

package face

import (
	"errors"

	"github.com/saturnino-fabrica-de-software/ponto/internal/config"
	"github.com/saturnino-fabrica-de-software/ponto/internal/provider"
)

var errDlibNotBuilt = errors.New("dlib embedding provider requires building with -tags dlib")

func newDlibProvider(_ *config.Config) (provider.EmbeddingProvider, error) {
	return nil, errDlibNotBuilt
}
