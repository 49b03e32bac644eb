package youtube

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"

	"github.com/forPelevin/gifcut/internal/types"
)

const (
	videoName     = "input_video.mp4"
	subtitlesName = "subs.vtt"
)

// Adapter downloads videos without external binaries. Captions come from the
// YouTube transcript panel and are written as WebVTT so downstream parsing
// matches the yt-dlp path.
type Adapter struct {
	client youtube.Client
	langs  []string
}

func New(langs []string) *Adapter {
	return &Adapter{langs: langs}
}

func (a *Adapter) Fetch(ctx context.Context, url, workDir string) (types.Download, error) {
	video, err := a.client.GetVideoContext(ctx, url)
	if err != nil {
		return types.Download{}, fmt.Errorf("youtube metadata: %w", err)
	}
	format, err := pickFormat(video.Formats)
	if err != nil {
		return types.Download{}, err
	}

	videoPath := filepath.Join(workDir, videoName)
	if err := a.download(ctx, video, format, videoPath); err != nil {
		return types.Download{}, err
	}

	subsPath := filepath.Join(workDir, subtitlesName)
	ok, err := a.writeTranscript(ctx, video, subsPath)
	if err != nil {
		return types.Download{}, err
	}
	if !ok {
		subsPath = ""
	}
	return types.Download{VideoPath: videoPath, SubtitlesPath: subsPath}, nil
}

func (a *Adapter) download(ctx context.Context, video *youtube.Video, format *youtube.Format, outPath string) error {
	stream, _, err := a.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return fmt.Errorf("youtube stream: %w", err)
	}
	defer stream.Close()

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, stream); err != nil {
		f.Close()
		return fmt.Errorf("youtube download: %w", err)
	}
	return f.Close()
}

// writeTranscript tries each language in order. A video without captions is
// not an error; speech recognition covers it.
func (a *Adapter) writeTranscript(ctx context.Context, video *youtube.Video, outPath string) (bool, error) {
	for _, lang := range a.langs {
		tr, err := a.client.GetTranscriptCtx(ctx, video, lang)
		if err != nil {
			if errors.Is(err, youtube.ErrTranscriptDisabled) {
				return false, nil
			}
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			continue
		}
		if len(tr) == 0 {
			continue
		}
		f, err := os.Create(outPath)
		if err != nil {
			return false, err
		}
		if err := writeVTT(f, tr); err != nil {
			f.Close()
			return false, err
		}
		return true, f.Close()
	}
	return false, nil
}

// pickFormat prefers the tallest muxed mp4 stream, then any stream with audio.
func pickFormat(formats youtube.FormatList) (*youtube.Format, error) {
	candidates := formats.Type("video/mp4").WithAudioChannels()
	if len(candidates) == 0 {
		candidates = formats.WithAudioChannels()
	}
	if len(candidates) == 0 {
		return nil, errors.New("no format with audio channels found")
	}
	best := 0
	for i := range candidates {
		if candidates[i].Height > candidates[best].Height {
			best = i
		}
	}
	return &candidates[best], nil
}

func writeVTT(w io.Writer, tr youtube.VideoTranscript) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("WEBVTT\n")
	for _, s := range tr {
		text := strings.Join(strings.Fields(s.Text), " ")
		if text == "" {
			continue
		}
		start := time.Duration(s.StartMs) * time.Millisecond
		end := start + time.Duration(s.Duration)*time.Millisecond
		fmt.Fprintf(bw, "\n%s --> %s\n%s\n", vttTime(start), vttTime(end), text)
	}
	return bw.Flush()
}

func vttTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	return fmt.Sprintf("%02d:%02d:%02d.%03d", int(h), int(m), int(s), int(d/time.Millisecond))
}
