package chart

import (
	"errors"
	"regexp"
	"strings"

	"github.com/Rrens/flexy-chat/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	whitespaceRun    = regexp.MustCompile(`\s+`)
	leadingArtifact  = regexp.MustCompile(`^\s*,?\s*`)
	trailingArtifact = regexp.MustCompile(`\s*,?\s*$`)
)

// span is a half-open byte range of a balanced {...} block
type span struct {
	start, end int
}

// Extract separates the chart descriptions embedded in an assistant reply
// from its prose. Charts come back in source order; blocks that fail to
// decode, or decode to something that is not a chart, stay in the prose.
// The remainder may be empty.
func Extract(text string) ([]domain.ChartRecord, string) {
	var charts []domain.ChartRecord
	var out, pending strings.Builder

	// Prose is collapsed, kept blocks are copied verbatim.
	flush := func() {
		out.WriteString(whitespaceRun.ReplaceAllString(pending.String(), " "))
		pending.Reset()
	}

	last := 0
	for _, sp := range scanBlocks(text) {
		block := text[sp.start:sp.end]
		pending.WriteString(text[last:sp.start])
		last = sp.end

		rec, err := decodeBlock([]byte(block))
		if err != nil {
			if !errors.Is(err, errNotChart) {
				log.Debug().Err(err).Int("offset", sp.start).Msg("skipping malformed block")
			}
			flush()
			out.WriteString(block)
			continue
		}
		charts = append(charts, *rec)
	}

	if len(charts) == 0 {
		return nil, strings.TrimSpace(text)
	}

	pending.WriteString(text[last:])
	flush()

	remainder := leadingArtifact.ReplaceAllString(out.String(), "")
	remainder = trailingArtifact.ReplaceAllString(remainder, "")

	log.Debug().Int("charts", len(charts)).Int("prose_len", len(remainder)).Msg("extracted charts")
	return charts, strings.TrimSpace(remainder)
}

// Decorate computes the render-ready view of a message's content
func Decorate(content string) domain.Display {
	charts, prose := Extract(content)
	return domain.Display{Prose: prose, Charts: charts}
}

// scanBlocks finds every maximal balanced {...} block, left to right
func scanBlocks(text string) []span {
	var spans []span
	for pos := 0; pos < len(text); {
		open := strings.IndexByte(text[pos:], '{')
		if open < 0 {
			break
		}
		open += pos

		end := matchBrace(text, open)
		if end < 0 {
			// Unterminated; a later block may still be complete.
			pos = open + 1
			continue
		}
		spans = append(spans, span{start: open, end: end})
		pos = end
	}
	return spans
}

// matchBrace returns the offset just past the brace closing the one at open,
// or -1. Braces inside JSON string literals do not count.
func matchBrace(text string, open int) int {
	depth := 0
	inString, escaped := false, false

	for i := open; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}
