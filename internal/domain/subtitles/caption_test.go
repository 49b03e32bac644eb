package subtitles

import (
	"strings"
	"testing"
	"time"
)

func TestRenderCaptionASS(t *testing.T) {
	ass := RenderCaptionASS("Hello {world}", 3*time.Second+500*time.Millisecond, 1280, 720, DefaultCaptionStyle())

	for _, want := range []string{
		"PlayResX: 1280",
		"PlayResY: 720",
		"Style: Caption,Arial,24,&H00FFFFFF,&H00FFFFFF,&H00000000,&H00000000,0,0,0,0,100,100,0,0,1,2,0,2,128,128,10,1",
		"Dialogue: 0,0:00:00.00,0:00:03.50,Caption,,0,0,0,,Hello (world)",
	} {
		if !strings.Contains(ass, want) {
			t.Fatalf("expected %q in ASS, got:\n%s", want, ass)
		}
	}
}

func TestRenderCaptionASS_UnknownSize(t *testing.T) {
	ass := RenderCaptionASS("x", time.Second, 0, 0, DefaultCaptionStyle())
	if !strings.Contains(ass, "PlayResX: 384") || !strings.Contains(ass, "PlayResY: 288") {
		t.Fatalf("expected fallback play resolution, got:\n%s", ass)
	}
}

func TestAssTime_Format(t *testing.T) {
	got := assTime(61*time.Second + 234*time.Millisecond)
	if got != "0:01:01.23" {
		t.Fatalf("unexpected assTime: %s", got)
	}
}

func TestSanitizeASS_Newlines(t *testing.T) {
	if got := sanitizeASS("line one\r\nline two"); got != "line one line two" {
		t.Fatalf("unexpected sanitizeASS: %q", got)
	}
}
