package pipeline

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/forPelevin/gifcut/internal/ports/adapters/minio"
	"github.com/forPelevin/gifcut/internal/ports/adapters/ytdlp"
)

const (
	FetcherYtDlp  = "ytdlp"
	FetcherNative = "native"
)

type Config struct {
	FFmpegPath  string
	FFprobePath string

	WhisperBin   string
	WhisperModel string

	// Fetcher selects the YouTube downloader: FetcherYtDlp or FetcherNative.
	Fetcher       string
	YtDlpPath     string
	SubtitleLangs []string

	MaxSegments int
	GIFFPS      int
	GIFWidth    int

	RenderWorkers  int
	ScratchDir     string
	MaxUploadBytes int64
	RequestTimeout time.Duration

	MinIO minio.Config
}

func DefaultConfig() Config {
	return Config{
		FFmpegPath:     "ffmpeg",
		FFprobePath:    "ffprobe",
		WhisperBin:     ".cache/bin/whisper.cpp",
		WhisperModel:   ".cache/models/ggml-base.bin",
		Fetcher:        FetcherYtDlp,
		YtDlpPath:      "yt-dlp",
		SubtitleLangs:  ytdlp.DefaultLangs,
		MaxSegments:    3,
		GIFFPS:         10,
		RenderWorkers:  3,
		ScratchDir:     os.TempDir(),
		MaxUploadBytes: 512 << 20,
		RequestTimeout: 15 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Fetcher == "" {
		c.Fetcher = d.Fetcher
	}
	if len(c.SubtitleLangs) == 0 {
		c.SubtitleLangs = d.SubtitleLangs
	}
	if c.MaxSegments == 0 {
		c.MaxSegments = d.MaxSegments
	}
	if c.GIFFPS == 0 {
		c.GIFFPS = d.GIFFPS
	}
	if c.RenderWorkers == 0 {
		c.RenderWorkers = d.RenderWorkers
	}
	if c.ScratchDir == "" {
		c.ScratchDir = d.ScratchDir
	}
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	return c
}

func (c Config) Validate() error {
	if c.WhisperModel == "" {
		return errors.New("whisper model path is required")
	}
	switch c.Fetcher {
	case FetcherYtDlp, FetcherNative:
	default:
		return fmt.Errorf("unknown fetcher %q (want %s or %s)", c.Fetcher, FetcherYtDlp, FetcherNative)
	}
	if c.MaxSegments < 1 || c.MaxSegments > 10 {
		return fmt.Errorf("max segments must be in 1..10, got %d", c.MaxSegments)
	}
	if c.GIFFPS < 1 || c.GIFFPS > 30 {
		return fmt.Errorf("gif fps must be in 1..30, got %d", c.GIFFPS)
	}
	if c.GIFWidth < 0 {
		return fmt.Errorf("gif width must be >= 0")
	}
	if c.RenderWorkers < 1 {
		return fmt.Errorf("render workers must be > 0")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload size must be > 0")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout must be >= 0")
	}
	return c.MinIO.Validate()
}
