package httpapi

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/rs/zerolog"

	"github.com/forPelevin/gifcut/internal/pipeline"
	"github.com/forPelevin/gifcut/internal/types"
)

const (
	msgPromptRequired = "Prompt is required."
	msgSourceRequired = "Provide either youtube_url or video_file."
	msgSuccess        = "GIFs generated successfully."

	// Multipart parts above this size spill to temp files.
	multipartMemory = 32 << 20
)

var (
	ErrEmptyPrompt = errors.New(msgPromptRequired)
	ErrNoSource    = errors.New(msgSourceRequired)
)

type Generator interface {
	Generate(ctx context.Context, req pipeline.Request) (types.Result, error)
}

type GIFController interface {
	GenerateGIF(c *gin.Context)
	RegisterRoutes(g *gin.Engine)
}

type gifController struct {
	logger         zerolog.Logger
	generator      Generator
	maxUploadBytes int64
}

func NewGIFController(logger zerolog.Logger, generator Generator, maxUploadBytes int64) GIFController {
	return &gifController{
		logger:         logger,
		generator:      generator,
		maxUploadBytes: maxUploadBytes,
	}
}

func (g *gifController) RegisterRoutes(r *gin.Engine) {
	r.POST("/api/generate_gif/", g.GenerateGIF)
	r.POST("/api/generate_gif", g.GenerateGIF)
}

func (g *gifController) GenerateGIF(c *gin.Context) {
	requestID := c.GetString(requestIDKey)
	log := g.logger.With().Str(requestIDKey, requestID).Logger()

	if g.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, g.maxUploadBytes)
	}

	in, upload, status, err := g.bind(c)
	if err != nil {
		log.Warn().Err(err).Int("status", status).Msg("rejected request")
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}

	req := pipeline.Request{
		ID:         requestID,
		Prompt:     in.Prompt,
		YouTubeURL: in.YouTubeURL,
	}
	if upload != nil && in.YouTubeURL == "" {
		f, err := upload.Open()
		if err != nil {
			g.fail(c, log, err)
			return
		}
		defer f.Close()
		req.Upload = f
		req.UploadName = upload.Filename
	}
	log.Info().
		Str("prompt", in.Prompt).
		Str("youtube_url", in.YouTubeURL).
		Bool("upload", req.Upload != nil).
		Msg("generate gif request")

	res, err := g.generator.Generate(c.Request.Context(), req)
	if err != nil {
		g.fail(c, log, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(res))
}

// bind reads the prompt and source from a JSON or form body and reports the
// status to answer with when the request is unusable.
func (g *gifController) bind(c *gin.Context) (GenerateGIFRequest, *multipart.FileHeader, int, error) {
	var in GenerateGIFRequest
	var upload *multipart.FileHeader

	if c.ContentType() == binding.MIMEJSON {
		if err := c.ShouldBindJSON(&in); err != nil && !errors.Is(err, io.EOF) {
			return in, nil, statusFor(err, http.StatusBadRequest), err
		}
	} else {
		err := c.Request.ParseMultipartForm(multipartMemory)
		if err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return in, nil, statusFor(err, http.StatusBadRequest), err
		}
		in.Prompt = c.PostForm("prompt")
		in.YouTubeURL = c.PostForm("youtube_url")
		fh, err := c.FormFile("video_file")
		if err != nil && !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
			return in, nil, statusFor(err, http.StatusBadRequest), err
		}
		upload = fh
	}

	in.Prompt = strings.TrimSpace(in.Prompt)
	in.YouTubeURL = strings.TrimSpace(in.YouTubeURL)
	if in.Prompt == "" {
		return in, nil, http.StatusBadRequest, ErrEmptyPrompt
	}
	if in.YouTubeURL == "" && upload == nil {
		return in, nil, http.StatusBadRequest, ErrNoSource
	}
	return in, upload, 0, nil
}

func (g *gifController) fail(c *gin.Context, log zerolog.Logger, err error) {
	log.Error().Err(err).Msg("gif generation failed")
	c.JSON(statusFor(err, http.StatusInternalServerError), ErrorResponse{Error: "Unexpected error: " + err.Error()})
}

func statusFor(err error, fallback int) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return fallback
}

func toResponse(res types.Result) GenerateGIFResponse {
	out := GenerateGIFResponse{Message: msgSuccess, GIFs: make([]GIF, 0, len(res.Clips))}
	for _, clip := range res.Clips {
		out.GIFs = append(out.GIFs, GIF{
			SegmentText: clip.Segment.Text,
			GIFBase64:   base64.StdEncoding.EncodeToString(clip.GIF),
			ArchiveKey:  clip.ArchiveKey,
		})
	}
	return out
}
