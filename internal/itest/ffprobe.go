//go:build integration

package itest

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

type streamInfo struct {
	codec string
	width int
}

// probeFirstStream reports the codec and width of the first stream in path.
func probeFirstStream(path string) (streamInfo, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=codec_name,width",
		"-of", "default=noprint_wrappers=1",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return streamInfo{}, fmt.Errorf("ffprobe: %w\n%s", err, string(b))
	}
	var info streamInfo
	for _, line := range strings.Split(strings.TrimSpace(string(b)), "\n") {
		k, v, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		switch k {
		case "codec_name":
			info.codec = v
		case "width":
			w, err := strconv.Atoi(v)
			if err != nil {
				return streamInfo{}, fmt.Errorf("parse width %q: %w", v, err)
			}
			info.width = w
		}
	}
	return info, nil
}
