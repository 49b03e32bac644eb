package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/forPelevin/gifcut/internal/pipeline"
	"github.com/forPelevin/gifcut/internal/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGenerateGIF_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     func(t *testing.T) *http.Request
		wantErr string
	}{
		{
			name:    "missing prompt json",
			req:     jsonRequest(`{"youtube_url":"https://youtu.be/x"}`),
			wantErr: "Prompt is required.",
		},
		{
			name:    "blank prompt form",
			req:     formRequest(url.Values{"prompt": {"   "}, "youtube_url": {"https://youtu.be/x"}}),
			wantErr: "Prompt is required.",
		},
		{
			name:    "no source json",
			req:     jsonRequest(`{"prompt":"cats"}`),
			wantErr: "Provide either youtube_url or video_file.",
		},
		{
			name:    "no source multipart",
			req:     multipartRequest(map[string]string{"prompt": "cats"}, nil),
			wantErr: "Provide either youtube_url or video_file.",
		},
		{
			name:    "empty body",
			req:     jsonRequest(""),
			wantErr: "Prompt is required.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{}
			rec := serve(t, gen, tt.req(t))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			var body ErrorResponse
			decode(t, rec, &body)
			if body.Error != tt.wantErr {
				t.Fatalf("error = %q, want %q", body.Error, tt.wantErr)
			}
			if gen.callCount() != 0 {
				t.Fatalf("generator must not run for invalid requests")
			}
		})
	}
}

func TestGenerateGIF_YouTubeJSON(t *testing.T) {
	gen := &fakeGenerator{res: types.Result{Clips: []types.Clip{
		{Segment: types.Segment{Text: "the cat jumps"}, GIF: []byte("GIF89a-one")},
		{Segment: types.Segment{Text: "cats again"}, GIF: []byte("GIF89a-two"), ArchiveKey: "gifs/k"},
	}}}
	req := jsonRequest(`{"prompt":"  cat ","youtube_url":" https://youtu.be/abc "}`)(t)
	req.Header.Set(requestIDHeader, "req-42")
	rec := serve(t, gen, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(requestIDHeader) != "req-42" {
		t.Fatalf("expected request id echoed, got %q", rec.Header().Get(requestIDHeader))
	}
	var body GenerateGIFResponse
	decode(t, rec, &body)
	if body.Message != "GIFs generated successfully." || len(body.GIFs) != 2 {
		t.Fatalf("unexpected body: %+v", body)
	}
	gif, err := base64.StdEncoding.DecodeString(body.GIFs[0].GIFBase64)
	if err != nil || string(gif) != "GIF89a-one" {
		t.Fatalf("unexpected gif payload %q err=%v", gif, err)
	}
	if body.GIFs[0].SegmentText != "the cat jumps" || body.GIFs[1].ArchiveKey != "gifs/k" {
		t.Fatalf("unexpected gifs: %+v", body.GIFs)
	}

	got := gen.last()
	if got.Prompt != "cat" || got.YouTubeURL != "https://youtu.be/abc" || got.ID != "req-42" {
		t.Fatalf("unexpected pipeline request: %+v", got)
	}
}

func TestGenerateGIF_Upload(t *testing.T) {
	gen := &fakeGenerator{}
	rec := serve(t, gen, multipartRequest(
		map[string]string{"prompt": "dogs"},
		&filePart{name: "clip.mp4", data: "video-bytes"},
	)(t))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body GenerateGIFResponse
	decode(t, rec, &body)
	if body.GIFs == nil || len(body.GIFs) != 0 {
		t.Fatalf("expected empty gif list, got %+v", body.GIFs)
	}
	got := gen.last()
	if got.UploadName != "clip.mp4" || got.uploaded != "video-bytes" {
		t.Fatalf("unexpected upload: name=%q data=%q", got.UploadName, got.uploaded)
	}
	if !strings.Contains(rec.Body.String(), `"gifs":[]`) {
		t.Fatalf("expected gifs to serialize as an empty array, got %s", rec.Body.String())
	}
}

func TestGenerateGIF_UploadTooLarge(t *testing.T) {
	gen := &fakeGenerator{}
	rec := serve(t, gen, multipartRequest(
		map[string]string{"prompt": "dogs"},
		&filePart{name: "big.mp4", data: strings.Repeat("x", 2<<20)},
	)(t))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", rec.Code, rec.Body.String())
	}
	var body ErrorResponse
	decode(t, rec, &body)
	if !strings.Contains(body.Error, "request body too large") {
		t.Fatalf("unexpected error %q", body.Error)
	}
	if gen.callCount() != 0 {
		t.Fatalf("generator must not run for oversized uploads")
	}
}

func TestGenerateGIF_URLWinsOverUpload(t *testing.T) {
	gen := &fakeGenerator{}
	rec := serve(t, gen, multipartRequest(
		map[string]string{"prompt": "dogs", "youtube_url": "https://youtu.be/abc"},
		&filePart{name: "clip.mp4", data: "video-bytes"},
	)(t))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := gen.last()
	if got.YouTubeURL != "https://youtu.be/abc" || got.Upload != nil {
		t.Fatalf("expected youtube source only, got %+v", got)
	}
}

func TestGenerateGIF_PipelineFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("yt-dlp failed to download: exit status 1")}
	rec := serve(t, gen, formRequest(url.Values{"prompt": {"cats"}, "youtube_url": {"https://youtu.be/x"}})(t))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body ErrorResponse
	decode(t, rec, &body)
	if body.Error != "Unexpected error: yt-dlp failed to download: exit status 1" {
		t.Fatalf("unexpected error body: %q", body.Error)
	}
}

func TestGenerateGIF_Panic(t *testing.T) {
	gen := &fakeGenerator{panicWith: "kaboom"}
	rec := serve(t, gen, jsonRequest(`{"prompt":"cats","youtube_url":"u"}`)(t))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	rec := serve(t, &fakeGenerator{}, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected healthz response %d %s", rec.Code, rec.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	wrapped := fmt.Errorf("read body: %w", &http.MaxBytesError{Limit: 10})
	if got := statusFor(wrapped, http.StatusBadRequest); got != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", got)
	}
	if got := statusFor(errors.New("x"), http.StatusBadRequest); got != http.StatusBadRequest {
		t.Fatalf("expected fallback, got %d", got)
	}
}

func serve(t *testing.T, gen Generator, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	router, err := NewRouter(gen, Options{MaxUploadBytes: 1 << 20}, zerolog.Nop())
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
}

func jsonRequest(body string) func(t *testing.T) *http.Request {
	return func(t *testing.T) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/generate_gif/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return req
	}
}

func formRequest(v url.Values) func(t *testing.T) *http.Request {
	return func(t *testing.T) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/generate_gif", strings.NewReader(v.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req
	}
}

type filePart struct {
	name string
	data string
}

func multipartRequest(fields map[string]string, file *filePart) func(t *testing.T) *http.Request {
	return func(t *testing.T) *http.Request {
		t.Helper()
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for k, v := range fields {
			if err := w.WriteField(k, v); err != nil {
				t.Fatal(err)
			}
		}
		if file != nil {
			fw, err := w.CreateFormFile("video_file", file.name)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := io.WriteString(fw, file.data); err != nil {
				t.Fatal(err)
			}
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}
		req := httptest.NewRequest(http.MethodPost, "/api/generate_gif/", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		return req
	}
}

type recordedRequest struct {
	pipeline.Request
	uploaded string
}

type fakeGenerator struct {
	res       types.Result
	err       error
	panicWith string

	mu    sync.Mutex
	calls []recordedRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req pipeline.Request) (types.Result, error) {
	if f.panicWith != "" {
		panic(f.panicWith)
	}
	rec := recordedRequest{Request: req}
	if req.Upload != nil {
		b, err := io.ReadAll(req.Upload)
		if err != nil {
			return types.Result{}, err
		}
		rec.uploaded = string(b)
	}
	f.mu.Lock()
	f.calls = append(f.calls, rec)
	f.mu.Unlock()
	return f.res, f.err
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeGenerator) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}
