package ports

import (
	"context"
	"time"

	"github.com/forPelevin/gifcut/internal/types"
)

type GIFOptions struct {
	// CaptionASS is burned into the frames when set.
	CaptionASS string
	FPS        int
	// Width scales the output; 0 keeps the source width.
	Width int
}

type VideoTool interface {
	ExtractAudioMono16k(ctx context.Context, inMP4, outWav string) error
	RenderGIF(ctx context.Context, inMP4 string, start, end time.Duration, outGIF string, opts GIFOptions) error
	Probe(ctx context.Context, inMP4 string) (types.VideoInfo, error)
}

type ASR interface {
	Transcribe(ctx context.Context, wavPath, workDir string) (types.Transcript, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, url, workDir string) (types.Download, error)
}

type Archive interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
}
