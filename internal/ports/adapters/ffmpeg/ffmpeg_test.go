package ffmpeg

import (
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/gifcut/internal/ports"
)

func TestGIFFilter(t *testing.T) {
	tests := []struct {
		name string
		opts ports.GIFOptions
		want string
	}{
		{
			name: "defaults",
			opts: ports.GIFOptions{},
			want: "fps=10,split[s0][s1];[s0]palettegen[p];[s1][p]paletteuse",
		},
		{
			name: "caption and width",
			opts: ports.GIFOptions{CaptionASS: "/tmp/run/clip_0.ass", FPS: 12, Width: 480},
			want: "subtitles=/tmp/run/clip_0.ass,fps=12,scale=480:-1:flags=lanczos,split[s0][s1];[s0]palettegen[p];[s1][p]paletteuse",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gifFilter(tt.opts); got != tt.want {
				t.Fatalf("gifFilter() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEscapeFilterPath(t *testing.T) {
	got := escapeFilterPath(`C:\tmp\it's,a.ass`)
	want := `C\:\\tmp\\it\'s\,a.ass`
	if got != want {
		t.Fatalf("escapeFilterPath() = %q, want %q", got, want)
	}
}

func TestParseProbe(t *testing.T) {
	in := `{"programs":[],"streams":[{"width":1280,"height":720}],"format":{"duration":"12.500000"}}`
	info, err := parseProbe([]byte(in))
	if err != nil {
		t.Fatalf("parseProbe: %v", err)
	}
	if info.Width != 1280 || info.Height != 720 {
		t.Fatalf("unexpected size %dx%d", info.Width, info.Height)
	}
	if info.Duration != 12500*time.Millisecond {
		t.Fatalf("unexpected duration %s", info.Duration)
	}
}

func TestParseProbe_NoVideoStream(t *testing.T) {
	_, err := parseProbe([]byte(`{"streams":[],"format":{"duration":"3.0"}}`))
	if err == nil || !strings.Contains(err.Error(), "no video stream") {
		t.Fatalf("expected no video stream error, got %v", err)
	}
}

func TestFmtSeconds(t *testing.T) {
	if got := fmtSeconds(61*time.Second + 234*time.Millisecond); got != "61.234" {
		t.Fatalf("fmtSeconds() = %q", got)
	}
}
