package highlights

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/forPelevin/gifcut/internal/types"
)

// DefaultLimit is how many moments a request yields.
const DefaultLimit = 3

const minKeywordRunes = 2

// Keywords lowercases the prompt and splits it into unique word tokens.
// Letters, digits and inner apostrophes form a token ("don't" stays whole);
// everything else separates. Single-rune tokens are dropped because they
// would substring-match almost any segment.
func Keywords(prompt string) []string {
	fields := strings.FieldsFunc(normalize(prompt), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if utf8.RuneCountInString(f) < minKeywordRunes {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// normalize lowercases s and folds typographic apostrophes, which
// auto-captions use, into ASCII ones.
func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), "’", "'")
}

// Match returns, in timeline order, up to limit segments whose text contains
// any keyword as a case-insensitive substring.
func Match(tr types.Transcript, keywords []string, limit int) []types.Segment {
	if limit <= 0 || len(keywords) == 0 {
		return nil
	}
	var out []types.Segment
	for _, s := range tr.Segments {
		text := normalize(strings.TrimSpace(s.Text))
		if text == "" {
			continue
		}
		for _, k := range keywords {
			if strings.Contains(text, k) {
				out = append(out, s)
				break
			}
		}
		if len(out) >= limit {
			break
		}
	}
	return out
}

// Select matches the prompt against the transcript. With fallback set, an
// empty match yields the first limit non-empty segments instead.
func Select(tr types.Transcript, prompt string, limit int, fallback bool) []types.Segment {
	out := Match(tr, Keywords(prompt), limit)
	if len(out) > 0 || !fallback {
		return out
	}
	return head(tr, limit)
}

func head(tr types.Transcript, limit int) []types.Segment {
	var out []types.Segment
	for _, s := range tr.Segments {
		if len(out) >= limit {
			break
		}
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
