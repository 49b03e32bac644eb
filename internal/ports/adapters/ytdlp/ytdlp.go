package ytdlp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/forPelevin/gifcut/internal/types"
)

const videoName = "input_video.mp4"

var DefaultLangs = []string{"en", "hi", "en-US", "hi-IN"}

type Adapter struct {
	bin   string
	langs []string
}

func New(binPath string, langs []string) *Adapter {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	if len(langs) == 0 {
		langs = DefaultLangs
	}
	return &Adapter{bin: binPath, langs: langs}
}

// Fetch downloads url into workDir together with any manual or automatic
// captions in the configured languages.
func (a *Adapter) Fetch(ctx context.Context, url, workDir string) (types.Download, error) {
	videoPath := filepath.Join(workDir, videoName)
	cmd := exec.CommandContext(ctx, a.bin, a.args(url, videoPath)...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Download{}, fmt.Errorf("yt-dlp failed to download: %w\n%s", err, string(b))
	}
	if _, err := os.Stat(videoPath); err != nil {
		return types.Download{}, fmt.Errorf("yt-dlp output: %w", err)
	}
	subs, err := findSubtitles(workDir, a.langs)
	if err != nil {
		return types.Download{}, err
	}
	return types.Download{VideoPath: videoPath, SubtitlesPath: subs}, nil
}

func (a *Adapter) args(url, videoPath string) []string {
	return []string{
		"--quiet",
		"--no-warnings",
		"--no-playlist",
		"--format", "best[ext=mp4]/best",
		"--output", videoPath,
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", strings.Join(a.langs, ","),
		"--sub-format", "vtt",
		url,
	}
}

// findSubtitles returns the caption file for the earliest preferred
// language, or any .vtt when none carries a known language suffix.
func findSubtitles(dir string, langs []string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.vtt"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", nil
	}
	sort.Strings(matches)
	for _, lang := range langs {
		suffix := "." + lang + ".vtt"
		for _, m := range matches {
			if strings.HasSuffix(m, suffix) {
				return m, nil
			}
		}
	}
	return matches[0], nil
}
