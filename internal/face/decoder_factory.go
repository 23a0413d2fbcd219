package face

import (
	"fmt"
	"time"

	"github.com/saturnino-fabrica-de-software/ponto/internal/config"
	"github.com/saturnino-fabrica-de-software/ponto/internal/video"
)

const (
	DecoderFFmpeg = "ffmpeg"
	// DecoderGoCV reads through OpenCV (build tag "gocv")
	DecoderGoCV = "gocv"
)

// NewVideoOpener creates the decoder selected by VIDEO_DECODER.
func NewVideoOpener(cfg *config.Config) (video.Opener, error) {
	switch cfg.VideoDecoder {
	case DecoderFFmpeg, "":
		return video.NewFFmpegOpener(cfg.FFmpegPath, time.Duration(cfg.MaxVideoSeconds)*time.Second), nil
	case DecoderGoCV:
		return newGoCVOpener()
	default:
		return nil, fmt.Errorf("unknown video decoder: %s (supported: %s, %s)",
			cfg.VideoDecoder, DecoderFFmpeg, DecoderGoCV)
	}
}
