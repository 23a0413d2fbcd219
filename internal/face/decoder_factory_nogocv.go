//go:build !gocv

package face

import (
	"errors"

	"github.com/saturnino-fabrica-de-software/ponto/internal/video"
)

var errGoCVNotBuilt = errors.New("gocv video decoder requires building with -tags gocv")

func newGoCVOpener() (video.Opener, error) {
	return nil, errGoCVNotBuilt
}
