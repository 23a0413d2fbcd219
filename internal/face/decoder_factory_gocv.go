//go:build gocv

package face

import "github.com/saturnino-fabrica-de-software/ponto/internal/video"

func newGoCVOpener() (video.Opener, error) {
	return video.GoCVOpener{}, nil
}
