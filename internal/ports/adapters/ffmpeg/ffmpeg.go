package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/gifcut/internal/ports"
	"github.com/forPelevin/gifcut/internal/types"
)

const defaultFPS = 10

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (a *Adapter) ExtractAudioMono16k(ctx context.Context, inMP4, outWav string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", inMP4,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outWav,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, string(b))
	}
	return nil
}

func (a *Adapter) RenderGIF(ctx context.Context, inMP4 string, start, end time.Duration, outGIF string, opts ports.GIFOptions) error {
	if end <= start {
		return fmt.Errorf("ffmpeg render gif: empty range %s..%s", start, end)
	}
	args := []string{
		"-y",
		"-ss", fmtSeconds(start),
		"-to", fmtSeconds(end),
		"-i", inMP4,
		"-an",
		"-vf", gifFilter(opts),
		"-loop", "0",
		outGIF,
	}
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg render gif: %w\n%s", err, string(b))
	}
	return nil
}

func (a *Adapter) Probe(ctx context.Context, inMP4 string) (types.VideoInfo, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height:format=duration",
		"-of", "json",
		inMP4,
	)
	b, err := cmd.Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return types.VideoInfo{}, fmt.Errorf("ffprobe: %w\n%s", err, string(ee.Stderr))
		}
		return types.VideoInfo{}, fmt.Errorf("ffprobe: %w", err)
	}
	return parseProbe(b)
}

type probeOutput struct {
	Streams []struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseProbe(b []byte) (types.VideoInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(b, &out); err != nil {
		return types.VideoInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return types.VideoInfo{}, errors.New("ffprobe: no video stream")
	}
	info := types.VideoInfo{Width: out.Streams[0].Width, Height: out.Streams[0].Height}
	s := strings.TrimSpace(out.Format.Duration)
	if s != "" && s != "N/A" {
		sec, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return types.VideoInfo{}, fmt.Errorf("parse duration %q: %w", s, err)
		}
		info.Duration = time.Duration(sec * float64(time.Second))
	}
	return info, nil
}

// gifFilter burns the caption before scaling so ASS coordinates stay in
// source pixels, then builds a per-clip palette.
func gifFilter(opts ports.GIFOptions) string {
	fps := opts.FPS
	if fps <= 0 {
		fps = defaultFPS
	}
	var chain []string
	if opts.CaptionASS != "" {
		chain = append(chain, "subtitles="+escapeFilterPath(opts.CaptionASS))
	}
	chain = append(chain, "fps="+strconv.Itoa(fps))
	if opts.Width > 0 {
		chain = append(chain, fmt.Sprintf("scale=%d:-1:flags=lanczos", opts.Width))
	}
	return strings.Join(chain, ",") + ",split[s0][s1];[s0]palettegen[p];[s1][p]paletteuse"
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	p = strings.ReplaceAll(p, "'", "\\'")
	p = strings.ReplaceAll(p, ",", "\\,")
	return p
}
