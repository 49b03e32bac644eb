package subtitles

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// CaptionStyle describes how a caption is laid over a clip. Sizes are in
// source video pixels.
type CaptionStyle struct {
	Font      string
	FontSize  int
	Outline   int
	WidthFrac float64
	MarginV   int
}

func DefaultCaptionStyle() CaptionStyle {
	return CaptionStyle{
		Font:      "Arial",
		FontSize:  24,
		Outline:   2,
		WidthFrac: 0.8,
		MarginV:   10,
	}
}

// RenderCaptionASS returns an ASS script showing text for the whole clip,
// bottom-centered and wrapped inside WidthFrac of the frame.
func RenderCaptionASS(text string, clipDur time.Duration, width, height int, style CaptionStyle) string {
	if width <= 0 || height <= 0 {
		width, height = 384, 288
	}
	if style.WidthFrac <= 0 || style.WidthFrac > 1 {
		style.WidthFrac = 1
	}
	side := int(math.Round(float64(width) * (1 - style.WidthFrac) / 2))

	var b strings.Builder
	b.WriteString(assHeader(width, height, style, side))
	b.WriteString("\n\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	b.WriteString("Dialogue: 0,0:00:00.00,")
	b.WriteString(assTime(clipDur))
	b.WriteString(",Caption,,0,0,0,,")
	b.WriteString(sanitizeASS(text))
	b.WriteString("\n")
	return b.String()
}

func assHeader(width, height int, style CaptionStyle, side int) string {
	return strings.TrimSpace(fmt.Sprintf(`
[Script Info]
ScriptType: v4.00+
PlayResX: %d
PlayResY: %d
WrapStyle: 0
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Caption,%s,%d,&H00FFFFFF,&H00FFFFFF,&H00000000,&H00000000,0,0,0,0,100,100,0,0,1,%d,0,2,%d,%d,%d,1
`, width, height, style.Font, style.FontSize, style.Outline, side, side, style.MarginV))
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
