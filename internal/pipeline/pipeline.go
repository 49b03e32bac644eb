package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"github.com/forPelevin/gifcut/internal/ports"
	"github.com/forPelevin/gifcut/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/gifcut/internal/ports/adapters/minio"
	"github.com/forPelevin/gifcut/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/gifcut/internal/ports/adapters/youtube"
	"github.com/forPelevin/gifcut/internal/ports/adapters/ytdlp"
	"github.com/forPelevin/gifcut/internal/types"
	"github.com/forPelevin/gifcut/internal/usecase"
)

const uploadName = "input_video.mp4"

// Request carries one prompt and exactly one video source. YouTubeURL wins
// when both are set.
type Request struct {
	ID         string
	Prompt     string
	YouTubeURL string
	Upload     io.Reader
	// UploadName only names the scratch directory.
	UploadName string
}

func (r Request) sourceName() string {
	if r.YouTubeURL != "" {
		return "youtube"
	}
	if r.UploadName != "" {
		return filepath.Base(r.UploadName)
	}
	return "upload"
}

type Deps struct {
	Video   ports.VideoTool
	ASR     ports.ASR
	Fetcher ports.Fetcher
	// Archive is optional.
	Archive ports.Archive
}

type Service struct {
	cfg     Config
	deps    Deps
	uc      usecase.Usecase
	pool    *ants.Pool
	logger  zerolog.Logger
	nowFunc func() time.Time
}

// New wires the external tools named by cfg. Close releases the render pool.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	deps := Deps{
		Video: ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath),
		ASR:   whispercpp.New(cfg.WhisperBin, cfg.WhisperModel),
	}
	switch cfg.Fetcher {
	case FetcherNative:
		deps.Fetcher = youtube.New(cfg.SubtitleLangs)
	default:
		deps.Fetcher = ytdlp.New(cfg.YtDlpPath, cfg.SubtitleLangs)
	}
	if cfg.MinIO.Enabled() {
		a, err := minio.New(ctx, cfg.MinIO, logger.With().Str("component", "archive").Logger())
		if err != nil {
			return nil, err
		}
		deps.Archive = a
	}
	return NewWithDeps(cfg, deps, logger)
}

func NewWithDeps(cfg Config, deps Deps, logger zerolog.Logger) (*Service, error) {
	cfg = cfg.withDefaults()
	// Shared by all requests. Submit fails fast when full and the usecase
	// retries until the request context ends.
	pool, err := ants.NewPool(cfg.RenderWorkers,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(p any) {
			logger.Error().Err(fmt.Errorf("%v", p)).Msg("panic in render pool")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("render pool: %w", err)
	}
	return &Service{
		cfg:  cfg,
		deps: deps,
		uc: usecase.New(usecase.Deps{
			Video:  deps.Video,
			ASR:    deps.ASR,
			Pool:   pool,
			Logger: logger,
		}),
		pool:    pool,
		logger:  logger,
		nowFunc: time.Now,
	}, nil
}

func (s *Service) Close() { s.pool.Release() }

func (s *Service) Config() Config { return s.cfg }

// Generate runs one request inside its own scratch directory, which is
// removed before returning.
func (s *Service) Generate(ctx context.Context, req Request) (types.Result, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return types.Result{}, errors.New("prompt is empty")
	}
	if req.YouTubeURL == "" && req.Upload == nil {
		return types.Result{}, errors.New("no video source")
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	log := s.logger.With().Str("request_id", req.ID).Logger()

	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	workDir := buildRunOutDir(s.cfg.ScratchDir, req.sourceName(), s.nowFunc())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return types.Result{}, err
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			log.Warn().Err(err).Str("dir", workDir).Msg("failed to remove scratch dir")
		}
	}()
	log.Debug().Str("dir", workDir).Msg("scratch dir ready")

	dl, err := s.acquire(ctx, req, workDir, log)
	if err != nil {
		return types.Result{}, err
	}

	res, err := s.uc.Run(ctx, usecase.Input{
		Prompt:        req.Prompt,
		VideoPath:     dl.VideoPath,
		SubtitlesPath: dl.SubtitlesPath,
		WorkDir:       workDir,
		MaxSegments:   s.cfg.MaxSegments,
		FPS:           s.cfg.GIFFPS,
		Width:         s.cfg.GIFWidth,
	})
	if err != nil {
		return types.Result{}, err
	}

	if s.deps.Archive != nil {
		if err := s.archive(ctx, req.ID, &res); err != nil {
			return types.Result{}, err
		}
	}
	log.Info().Int("gifs", len(res.Clips)).Msg("gifs generated")
	return res, nil
}

func (s *Service) acquire(ctx context.Context, req Request, workDir string, log zerolog.Logger) (types.Download, error) {
	if req.YouTubeURL != "" {
		log.Info().Str("stage", "download").Str("url", req.YouTubeURL).Msg("downloading video")
		dl, err := s.deps.Fetcher.Fetch(ctx, req.YouTubeURL, workDir)
		if err != nil {
			return types.Download{}, err
		}
		log.Info().Str("stage", "download").Bool("captions", dl.SubtitlesPath != "").Msg("video downloaded")
		return dl, nil
	}

	log.Info().Str("stage", "upload").Msg("saving uploaded video")
	videoPath := filepath.Join(workDir, uploadName)
	if err := saveUpload(req.Upload, videoPath); err != nil {
		return types.Download{}, err
	}
	return types.Download{VideoPath: videoPath}, nil
}

func saveUpload(r io.Reader, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("save upload: %w", err)
	}
	return f.Close()
}

func (s *Service) archive(ctx context.Context, requestID string, res *types.Result) error {
	for i := range res.Clips {
		key := fmt.Sprintf("%s/clip_%d.gif", requestID, i)
		stored, err := s.deps.Archive.Put(ctx, key, res.Clips[i].GIF)
		if err != nil {
			return err
		}
		res.Clips[i].ArchiveKey = stored
	}
	return nil
}

// WriteRun stores a result under outRoot in a fresh run directory and
// returns that directory.
func WriteRun(outRoot, prompt, source string, res types.Result, now time.Time) (string, error) {
	runDir := buildRunOutDir(outRoot, source, now)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}
	m := types.Manifest{Prompt: prompt, Source: source, Clips: []types.ManifestClip{}}
	for i, c := range res.Clips {
		id := fmt.Sprintf("%03d", i+1)
		file := "clip_" + id + ".gif"
		if err := os.WriteFile(filepath.Join(runDir, file), c.GIF, 0o644); err != nil {
			return "", err
		}
		m.Clips = append(m.Clips, types.ManifestClip{
			ID:         id,
			StartSec:   c.Segment.Start,
			EndSec:     c.Segment.End,
			Text:       c.Segment.Text,
			File:       file,
			ArchiveKey: c.ArchiveKey,
		})
	}

	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "manifest.json"), b, 0o644); err != nil {
		return "", err
	}
	return runDir, nil
}

func buildRunOutDir(outRoot, source string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", source, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var _ ports.VideoTool = (*ffmpeg.Adapter)(nil)
var _ ports.ASR = (*whispercpp.Adapter)(nil)
var _ ports.Fetcher = (*ytdlp.Adapter)(nil)
var _ ports.Fetcher = (*youtube.Adapter)(nil)
var _ ports.Archive = (*minio.Adapter)(nil)
