package subtitles

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/asticode/go-astisub"

	"github.com/forPelevin/gifcut/internal/types"
)

type Format string

const (
	FormatVTT Format = "vtt"
	FormatSRT Format = "srt"
)

var reTag = regexp.MustCompile(`<[^>]+>`)

// FormatFromPath guesses the caption format from the file extension,
// defaulting to WebVTT which is what yt-dlp is asked to write.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".srt") {
		return FormatSRT
	}
	return FormatVTT
}

// Parse reads a caption file. A missing or empty file is an empty transcript.
func Parse(path string) (types.Transcript, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.Transcript{}, nil
		}
		return types.Transcript{}, err
	}
	return ParseReader(bytes.NewReader(b), FormatFromPath(path))
}

func ParseReader(r io.Reader, f Format) (types.Transcript, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return types.Transcript{}, err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return types.Transcript{}, nil
	}

	var subs *astisub.Subtitles
	switch f {
	case FormatSRT:
		subs, err = astisub.ReadFromSRT(bytes.NewReader(b))
	default:
		subs, err = astisub.ReadFromWebVTT(bytes.NewReader(normalizeVTT(b)))
	}
	if err != nil {
		return types.Transcript{}, fmt.Errorf("parse %s captions: %w", f, err)
	}
	return fromItems(subs.Items), nil
}

// normalizeVTT removes whitespace-only lines inside cues. yt-dlp auto-captions
// open each cue with a " " line, which a WebVTT reader takes as the end of the
// cue. Elsewhere such lines become plain blank lines.
func normalizeVTT(b []byte) []byte {
	lines := strings.Split(strings.ReplaceAll(string(b), "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	inCue := false
	for i, line := range lines {
		switch {
		case line == "":
			inCue = false
		case strings.Contains(line, "-->"):
			inCue = true
		case strings.TrimSpace(line) == "":
			if inCue && i+1 < len(lines) && isCueText(lines[i+1]) {
				continue
			}
			line = ""
			inCue = false
		}
		out = append(out, line)
	}
	return []byte(strings.Join(out, "\n"))
}

func isCueText(line string) bool {
	return strings.TrimSpace(line) != "" && !strings.Contains(line, "-->")
}

// minCueSeconds is the shortest cue kept on its own. Auto-captions insert
// 10ms cues between rolling lines.
const minCueSeconds = 0.1

// fromItems flattens cues into segments. Auto-generated captions roll: each
// cue repeats the previous cue's last line above the new one. Only lines that
// were not on screen in the previous cue become segment text. A cue with
// nothing new extends the previous segment, and cues shorter than
// minCueSeconds are folded into the next segment.
func fromItems(items []*astisub.Item) types.Transcript {
	var (
		tr      types.Transcript
		prev    map[string]struct{}
		pending *types.Segment
	)
	for _, it := range items {
		lines := itemLines(it)
		if len(lines) == 0 {
			continue
		}
		var fresh []string
		for _, l := range lines {
			if _, ok := prev[l]; !ok {
				fresh = append(fresh, l)
			}
		}
		prev = make(map[string]struct{}, len(lines))
		for _, l := range lines {
			prev[l] = struct{}{}
		}

		start := it.StartAt.Seconds()
		end := it.EndAt.Seconds()
		if len(fresh) == 0 {
			last := pending
			if last == nil && len(tr.Segments) > 0 {
				last = &tr.Segments[len(tr.Segments)-1]
			}
			if last != nil && end > last.End {
				last.End = end
			}
			continue
		}

		seg := types.Segment{Start: start, End: end, Text: strings.Join(fresh, " ")}
		if pending != nil {
			seg.Start = pending.Start
			seg.Text = pending.Text + " " + seg.Text
			pending = nil
		}
		if seg.End-seg.Start < minCueSeconds {
			pending = &seg
			continue
		}
		tr.Segments = append(tr.Segments, seg)
	}

	if pending != nil {
		if n := len(tr.Segments); n > 0 {
			last := &tr.Segments[n-1]
			last.Text += " " + pending.Text
			if pending.End > last.End {
				last.End = pending.End
			}
		} else {
			tr.Segments = append(tr.Segments, *pending)
		}
	}
	return tr
}

// itemLines returns the cleaned, non-empty text lines of a cue.
func itemLines(it *astisub.Item) []string {
	var lines []string
	for _, l := range it.Lines {
		var parts []string
		for _, li := range l.Items {
			if t := strings.TrimSpace(reTag.ReplaceAllString(li.Text, "")); t != "" {
				parts = append(parts, t)
			}
		}
		if text := strings.Join(strings.Fields(strings.Join(parts, " ")), " "); text != "" {
			lines = append(lines, text)
		}
	}
	return lines
}
