package whispercpp

import "testing"

func TestDecode(t *testing.T) {
	in := `{
  "result": {"language": "en"},
  "transcription": [
    {"timestamps": {"from": "00:00:00,000", "to": "00:00:02,500"}, "offsets": {"from": 0, "to": 2500}, "text": " Hello there."},
    {"timestamps": {"from": "00:00:02,500", "to": "00:00:03,000"}, "offsets": {"from": 2500, "to": 3000}, "text": "   "},
    {"timestamps": {"from": "00:00:03,000", "to": "00:00:05,120"}, "offsets": {"from": 3000, "to": 5120}, "text": " Cats are great "}
  ]
}`
	tr, err := decode([]byte(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tr.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(tr.Segments))
	}
	if tr.Segments[0].Text != "Hello there." || tr.Segments[0].End != 2.5 {
		t.Fatalf("unexpected first segment: %+v", tr.Segments[0])
	}
	if tr.Segments[1].Start != 3 || tr.Segments[1].End != 5.12 || tr.Segments[1].Text != "Cats are great" {
		t.Fatalf("unexpected second segment: %+v", tr.Segments[1])
	}
}

func TestDecode_Invalid(t *testing.T) {
	if _, err := decode([]byte("not json")); err == nil {
		t.Fatalf("expected error")
	}
}
