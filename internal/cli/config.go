package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/gifcut/internal/pipeline"
)

func configFromEnv() (pipeline.Config, error) {
	cfg := pipeline.DefaultConfig()
	cfg.FFmpegPath = getenvDefault("FFMPEG_PATH", cfg.FFmpegPath)
	cfg.FFprobePath = getenvDefault("FFPROBE_PATH", cfg.FFprobePath)
	cfg.WhisperBin = getenvDefault("WHISPER_BIN", cfg.WhisperBin)
	cfg.WhisperModel = getenvDefault("WHISPER_MODEL", cfg.WhisperModel)
	cfg.Fetcher = strings.ToLower(getenvDefault("GIFCUT_FETCHER", cfg.Fetcher))
	cfg.YtDlpPath = getenvDefault("YTDLP_PATH", cfg.YtDlpPath)
	cfg.ScratchDir = getenvDefault("GIFCUT_SCRATCH_DIR", cfg.ScratchDir)
	if v := os.Getenv("SUBTITLE_LANGS"); v != "" {
		cfg.SubtitleLangs = splitList(v)
	}

	var err error
	if cfg.MaxSegments, err = getenvInt("GIFCUT_MAX_SEGMENTS", cfg.MaxSegments); err != nil {
		return cfg, err
	}
	if cfg.GIFFPS, err = getenvInt("GIFCUT_GIF_FPS", cfg.GIFFPS); err != nil {
		return cfg, err
	}
	if cfg.GIFWidth, err = getenvInt("GIFCUT_GIF_WIDTH", cfg.GIFWidth); err != nil {
		return cfg, err
	}
	if cfg.RenderWorkers, err = getenvInt("GIFCUT_RENDER_WORKERS", cfg.RenderWorkers); err != nil {
		return cfg, err
	}
	uploadMB, err := getenvInt("GIFCUT_MAX_UPLOAD_MB", int(cfg.MaxUploadBytes>>20))
	if err != nil {
		return cfg, err
	}
	cfg.MaxUploadBytes = int64(uploadMB) << 20
	if v := os.Getenv("GIFCUT_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("GIFCUT_REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}

	cfg.MinIO.Endpoint = os.Getenv("MINIO_ENDPOINT")
	cfg.MinIO.AccessKey = os.Getenv("MINIO_ACCESS_KEY")
	cfg.MinIO.SecretKey = os.Getenv("MINIO_SECRET_KEY")
	cfg.MinIO.Bucket = getenvDefault("MINIO_BUCKET", "gifs")
	cfg.MinIO.Region = getenvDefault("MINIO_REGION", "us-east-1")
	cfg.MinIO.UseSSL = os.Getenv("MINIO_USE_SSL") == "true" || os.Getenv("MINIO_USE_SSL") == "1"

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
