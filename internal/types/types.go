package types

import "time"

type Transcript struct {
	Segments []Segment `json:"segments"`
}

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

func (s Segment) StartDur() time.Duration { return dur(s.Start) }
func (s Segment) EndDur() time.Duration   { return dur(s.End) }

type VideoInfo struct {
	Width    int
	Height   int
	Duration time.Duration
}

type Download struct {
	VideoPath string
	// SubtitlesPath is empty when the source had no captions.
	SubtitlesPath string
}

type Clip struct {
	Segment    Segment
	GIF        []byte
	ArchiveKey string
}

type Result struct {
	Clips []Clip
}

type Manifest struct {
	Prompt string         `json:"prompt"`
	Source string         `json:"source"`
	Clips  []ManifestClip `json:"clips"`
}

type ManifestClip struct {
	ID         string  `json:"id"`
	StartSec   float64 `json:"start_sec"`
	EndSec     float64 `json:"end_sec"`
	Text       string  `json:"text"`
	File       string  `json:"file"`
	ArchiveKey string  `json:"archive_key,omitempty"`
}

func dur(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
