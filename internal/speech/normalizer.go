// Package speech converts assistant markdown replies into text suitable for
// the TTS voice: markup stripped, pauses marked, optional conversational
// opener, truncated on a sentence boundary.
package speech

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reHTMLTag     = regexp.MustCompile(`<[^>]*>`)
	reCodeBlock   = regexp.MustCompile("```[\\s\\S]*?```")
	reInlineCode  = regexp.MustCompile("`([^`]+)`")
	reBoldItalic  = regexp.MustCompile(`\*\*\*([^*]+)\*\*\*`)
	reBold        = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	reItalic      = regexp.MustCompile(`\*([^*]+)\*`)
	reBoldUnder   = regexp.MustCompile(`__([^_]+)__`)
	reItalicUnder = regexp.MustCompile(`_([^_]+)_`)
	reHeading     = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
	reBlockquote  = regexp.MustCompile(`(?m)^>\s+(.+)$`)
	reLink        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	reRefLink     = regexp.MustCompile(`\[([^\]]+)\]\[[^\]]+\]`)
	reBullet      = regexp.MustCompile(`(?m)^\s*[-*+]\s+(.+)$`)
	reOrdered     = regexp.MustCompile(`(?m)^\s*\d+\.\s+(.+)$`)
	reHRule       = regexp.MustCompile(`(?m)^[-*_]{3,}$`)
	reManyBreaks  = regexp.MustCompile(`\n{3,}`)
	reSpaceRun    = regexp.MustCompile(`[ \t]{2,}`)
	reTableRow    = regexp.MustCompile(`\|[^\n]+\|`)
	reStrike      = regexp.MustCompile(`~~([^~]+)~~`)
	reRunOn       = regexp.MustCompile(`([.!?])([A-Z])`)
)

// Options controls Normalize.
type Options struct {
	// AddOpener prepends a conversational opener unless the text already
	// begins with one.
	AddOpener bool
	// MaxLength truncates output to at most this many runes, preferring the
	// last sentence boundary. Zero disables truncation.
	MaxLength int
	// Language is "en", "sw" or "auto"; it only affects VoiceInstructions.
	Language string
}

// StripMarkdown removes markdown formatting while keeping the spoken
// content. Code block bodies are dropped, inline code content is kept.
func StripMarkdown(text string) string {
	if text == "" {
		return ""
	}
	s := text
	s = reHTMLTag.ReplaceAllString(s, "")
	s = reCodeBlock.ReplaceAllString(s, "")
	s = reInlineCode.ReplaceAllString(s, "$1")
	s = reBoldItalic.ReplaceAllString(s, "$1")
	s = reBold.ReplaceAllString(s, "$1")
	s = reItalic.ReplaceAllString(s, "$1")
	s = reBoldUnder.ReplaceAllString(s, "$1")
	s = reItalicUnder.ReplaceAllString(s, "$1")
	s = reHeading.ReplaceAllString(s, "$1")
	s = reBlockquote.ReplaceAllString(s, "$1")
	s = reLink.ReplaceAllString(s, "$1")
	s = reRefLink.ReplaceAllString(s, "$1")
	s = reBullet.ReplaceAllString(s, "$1")
	s = reOrdered.ReplaceAllString(s, "$1")
	s = reHRule.ReplaceAllString(s, "")

	// 3+ breaks collapse to a paragraph break, paragraph breaks become an
	// audible pause, remaining single breaks become spaces.
	s = reManyBreaks.ReplaceAllString(s, "\n\n")
	s = strings.ReplaceAll(s, "\n\n", "... ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = reSpaceRun.ReplaceAllString(s, " ")

	s = reTableRow.ReplaceAllString(s, "")
	s = reStrike.ReplaceAllString(s, "$1")

	// "Rain expected.Tomorrow" reads badly without the space.
	s = reRunOn.ReplaceAllString(s, "${1} ${2}")

	return strings.TrimSpace(s)
}

// openers that mark text as already conversational.
var conversationalStarters = []string{
	"okay", "well", "so", "hmm", "alright", "let me",
	"got it", "i see", "makes sense", "right",
}

// AddConversationalOpener prepends a natural opening chosen from the text
// content unless it already starts with one.
func AddConversationalOpener(text string) string {
	if text == "" {
		return ""
	}
	lower := strings.ToLower(text)
	for _, starter := range conversationalStarters {
		if strings.HasPrefix(lower, starter) {
			return text
		}
	}

	switch {
	case strings.Contains(lower, "weather") || strings.Contains(lower, "forecast"):
		return "Okay, so " + lowerFirst(text)
	case strings.Contains(lower, "plant") || strings.Contains(lower, "should"):
		return "Well, " + text
	case strings.Contains(lower, "irrigate") || strings.Contains(lower, "water"):
		return "Hmm, let me check... " + text
	default:
		return "Alright, " + text
	}
}

func lowerFirst(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// Normalize strips markdown, optionally adds an opener and truncates the
// result at a sentence boundary. Pure: no I/O, deterministic.
func Normalize(text string, opts Options) string {
	s := StripMarkdown(text)
	if opts.AddOpener {
		s = AddConversationalOpener(s)
	}
	if opts.MaxLength > 0 {
		s = truncateAtSentence(s, opts.MaxLength)
	}
	return s
}

// truncateAtSentence cuts s to at most max runes at the last sentence
// terminator inside the limit, or hard-truncates with an ellipsis when no
// terminator is found.
func truncateAtSentence(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	truncated := r[:max]
	last := -1
	for i, c := range truncated {
		if c == '.' || c == '?' || c == '!' {
			last = i
		}
	}
	if last > 0 {
		return string(truncated[:last+1])
	}
	return string(truncated) + "..."
}
