package service

import (
	"unicode/utf8"

	"quill/internal/mfm"
)

const (
	maxTags      = 32
	maxTagLength = 128 // unicode code points
)

// AnalyzedContent is the token stream and derived attributes of an edit's
// text sources.
type AnalyzedContent struct {
	Nodes    []mfm.Node
	Tags     []string
	Emojis   []string
	Mentions []mfm.Mention

	// Derivation flags: true when the field came from a caller override
	// rather than the token stream.
	TagsOverridden     bool
	EmojisOverridden   bool
	MentionsOverridden bool
}

// ContentAnalyzer turns note text into tokens and derived attributes.
type ContentAnalyzer struct{}

// NewContentAnalyzer creates a content analyzer.
func NewContentAnalyzer() *ContentAnalyzer {
	return &ContentAnalyzer{}
}

// Analyze parses body, content-warning, and poll-choice text, in that order,
// into one token stream, then derives hashtags, emoji, and mentions from it.
// A non-nil override replaces derivation entirely for that field; this is how
// a federation-sourced note is reconstructed without re-deriving from
// re-rendered text.
func (a *ContentAnalyzer) Analyze(text, cw string, pollChoices []string, req *EditNoteInput) AnalyzedContent {
	var nodes []mfm.Node
	if text != "" {
		nodes = append(nodes, mfm.Parse(text)...)
	}
	if cw != "" {
		nodes = append(nodes, mfm.Parse(cw)...)
	}
	for _, choice := range pollChoices {
		if choice != "" {
			nodes = append(nodes, mfm.Parse(choice)...)
		}
	}

	out := AnalyzedContent{Nodes: nodes}

	if req.OverrideHashtags != nil {
		out.Tags = capTags(req.OverrideHashtags)
		out.TagsOverridden = true
	} else {
		out.Tags = capTags(mfm.Hashtags(nodes))
	}

	if req.OverrideEmojis != nil {
		out.Emojis = req.OverrideEmojis
		out.EmojisOverridden = true
	} else {
		out.Emojis = mfm.Emojis(nodes)
	}

	if req.OverrideMentions != nil {
		out.MentionsOverridden = true
	} else {
		out.Mentions = mfm.Mentions(nodes)
	}

	return out
}

// capTags drops tags longer than the per-tag cap and truncates the list to
// the tag-count cap, preserving first-seen order. Oversized input never
// errors.
func capTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag == "" || utf8.RuneCountInString(tag) > maxTagLength {
			continue
		}
		out = append(out, tag)
		if len(out) == maxTags {
			break
		}
	}
	return out
}
