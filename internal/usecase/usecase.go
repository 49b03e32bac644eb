package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"github.com/forPelevin/gifcut/internal/domain/highlights"
	"github.com/forPelevin/gifcut/internal/domain/subtitles"
	"github.com/forPelevin/gifcut/internal/ports"
	"github.com/forPelevin/gifcut/internal/types"
)

const submitRetryDelay = 50 * time.Millisecond

type Deps struct {
	Video  ports.VideoTool
	ASR    ports.ASR
	Pool   *ants.Pool
	Logger zerolog.Logger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase { return Usecase{d: d} }

type Input struct {
	Prompt        string
	VideoPath     string
	SubtitlesPath string
	WorkDir       string
	MaxSegments   int
	FPS           int
	// Width scales GIFs down; 0 keeps the source width.
	Width   int
	Caption subtitles.CaptionStyle
}

func (u Usecase) Run(ctx context.Context, in Input) (types.Result, error) {
	limit := in.MaxSegments
	if limit <= 0 {
		limit = highlights.DefaultLimit
	}
	if in.Caption == (subtitles.CaptionStyle{}) {
		in.Caption = subtitles.DefaultCaptionStyle()
	}
	log := u.d.Logger

	segs := u.fromSubtitles(in, limit)
	if len(segs) == 0 {
		log.Info().Str("stage", "transcribe").Msg("no caption match, running speech recognition")
		tr, err := u.transcribe(ctx, in)
		if err != nil {
			return types.Result{}, err
		}
		segs = highlights.Select(tr, in.Prompt, limit, true)
	}
	log.Info().Str("stage", "select").Int("segments", len(segs)).Msg("segments selected")
	if len(segs) == 0 {
		return types.Result{}, nil
	}

	info, err := u.d.Video.Probe(ctx, in.VideoPath)
	if err != nil {
		return types.Result{}, err
	}
	segs = clampToDuration(segs, info.Duration)

	clips, err := u.render(ctx, in, info, segs)
	if err != nil {
		return types.Result{}, err
	}
	return types.Result{Clips: clips}, nil
}

// fromSubtitles never fails the run: unreadable captions fall through to
// speech recognition.
func (u Usecase) fromSubtitles(in Input, limit int) []types.Segment {
	if in.SubtitlesPath == "" {
		return nil
	}
	tr, err := subtitles.Parse(in.SubtitlesPath)
	if err != nil {
		u.d.Logger.Warn().Err(err).Str("stage", "captions").Msg("ignoring unreadable captions")
		return nil
	}
	segs := highlights.Select(tr, in.Prompt, limit, false)
	u.d.Logger.Debug().
		Str("stage", "captions").
		Int("cues", len(tr.Segments)).
		Int("matched", len(segs)).
		Msg("captions parsed")
	return segs
}

func (u Usecase) transcribe(ctx context.Context, in Input) (types.Transcript, error) {
	wav := filepath.Join(in.WorkDir, "audio.wav")
	if err := u.d.Video.ExtractAudioMono16k(ctx, in.VideoPath, wav); err != nil {
		return types.Transcript{}, err
	}
	tr, err := u.d.ASR.Transcribe(ctx, wav, in.WorkDir)
	if err != nil {
		return types.Transcript{}, err
	}
	return tr, nil
}

// clampToDuration trims segment ends past the end of the video and drops
// segments left empty. An unknown duration leaves segments untouched.
func clampToDuration(segs []types.Segment, d time.Duration) []types.Segment {
	if d <= 0 {
		return segs
	}
	maxSec := d.Seconds()
	out := make([]types.Segment, 0, len(segs))
	for _, s := range segs {
		if s.End > maxSec {
			s.End = maxSec
		}
		if s.End <= s.Start {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (u Usecase) render(ctx context.Context, in Input, info types.VideoInfo, segs []types.Segment) ([]types.Clip, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	// The first failure wins; siblings killed by cancel report after it.
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		cancel()
	}

	clips := make([]types.Clip, len(segs))
	for i, seg := range segs {
		i, seg := i, seg
		wg.Add(1)
		err := u.submit(ctx, func() {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					fail(fmt.Errorf("render clip %d: panic: %v", i, p))
				}
			}()
			clip, err := u.renderOne(ctx, in, info, i, seg)
			if err != nil {
				fail(err)
				return
			}
			clips[i] = clip
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("submit render: %w", err))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return clips, nil
}

// submit hands task to the shared pool. A non-blocking pool that is full is
// retried until ctx ends.
func (u Usecase) submit(ctx context.Context, task func()) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := u.d.Pool.Submit(task)
		if !errors.Is(err, ants.ErrPoolOverload) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(submitRetryDelay):
		}
	}
}

func (u Usecase) renderOne(ctx context.Context, in Input, info types.VideoInfo, idx int, seg types.Segment) (types.Clip, error) {
	if err := ctx.Err(); err != nil {
		return types.Clip{}, err
	}
	start, end := seg.StartDur(), seg.EndDur()
	assPath := filepath.Join(in.WorkDir, fmt.Sprintf("clip_%d.ass", idx))
	gifPath := filepath.Join(in.WorkDir, fmt.Sprintf("clip_%d.gif", idx))

	ass := subtitles.RenderCaptionASS(seg.Text, end-start, info.Width, info.Height, in.Caption)
	if err := writeFile(assPath, []byte(ass)); err != nil {
		return types.Clip{}, err
	}

	u.d.Logger.Debug().Int("clip", idx).Float64("start", seg.Start).Float64("end", seg.End).Msg("rendering gif")
	if err := u.d.Video.RenderGIF(ctx, in.VideoPath, start, end, gifPath, ports.GIFOptions{
		CaptionASS: assPath,
		FPS:        in.FPS,
		Width:      in.Width,
	}); err != nil {
		return types.Clip{}, fmt.Errorf("clip %d: %w", idx, err)
	}

	b, err := os.ReadFile(gifPath)
	if err != nil {
		return types.Clip{}, fmt.Errorf("read clip %d: %w", idx, err)
	}
	return types.Clip{Segment: seg, GIF: b}, nil
}

func writeFile(path string, b []byte) error {
	return os.WriteFile(path, b, 0o644)
}
