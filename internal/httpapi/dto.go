package httpapi

type GenerateGIFRequest struct {
	Prompt     string `json:"prompt" form:"prompt"`
	YouTubeURL string `json:"youtube_url" form:"youtube_url"`
}

type GIF struct {
	SegmentText string `json:"segment_text"`
	GIFBase64   string `json:"gif_base64"`
	ArchiveKey  string `json:"archive_key,omitempty"`
}

type GenerateGIFResponse struct {
	Message string `json:"message"`
	GIFs    []GIF  `json:"gifs"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
