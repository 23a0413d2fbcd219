package face

import (
	"strings"
	"testing"
	"time"

	"github.com/saturnino-fabrica-de-software/ponto/internal/config"
	"github.com/saturnino-fabrica-de-software/ponto/internal/video"
)

func TestNewVideoOpener_FFmpeg(t *testing.T) {
	for _, decoder := range []string{"ffmpeg", ""} {
		o, err := NewVideoOpener(&config.Config{VideoDecoder: decoder, FFmpegPath: "/usr/bin/ffmpeg", MaxVideoSeconds: 30})
		if err != nil {
			t.Fatalf("NewVideoOpener(%q) error = %v", decoder, err)
		}
		ff, ok := o.(*video.FFmpegOpener)
		if !ok {
			t.Fatalf("NewVideoOpener(%q) returned %T, want *video.FFmpegOpener", decoder, o)
		}
		if ff.Path != "/usr/bin/ffmpeg" || ff.MaxDuration != 30*time.Second {
			t.Errorf("NewVideoOpener(%q) = %+v", decoder, ff)
		}
	}
}

func TestNewVideoOpener_Unknown(t *testing.T) {
	_, err := NewVideoOpener(&config.Config{VideoDecoder: "vlc"})
	if err == nil || !strings.HasPrefix(err.Error(), "unknown video decoder: vlc") {
		t.Errorf("NewVideoOpener() error = %v", err)
	}
}
