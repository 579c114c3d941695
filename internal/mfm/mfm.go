// Package mfm tokenizes note text into the node stream the pipeline consumes.
// It is a minimal scanner covering the token kinds the edit pipeline derives
// from: plain text, hashtags, mentions, and custom emoji shortcodes.
package mfm

import (
	"strings"
	"unicode"
)

// NodeType identifies a token kind.
type NodeType string

const (
	NodeText    NodeType = "text"
	NodeHashtag NodeType = "hashtag"
	NodeMention NodeType = "mention"
	NodeEmoji   NodeType = "emoji"
)

// Node is one token of parsed note text.
type Node struct {
	Type  NodeType
	Value string // tag name, emoji shortcode, or raw text

	// Mention fields, set when Type == NodeMention.
	Username string
	Host     string // empty when the mention has no host part
}

// Mention is the (username, host) pair of a parsed mention token.
type Mention struct {
	Username string
	Host     string
}

// Parse scans src into a flat node stream.
func Parse(src string) []Node {
	var nodes []Node
	runes := []rune(src)
	var text []rune

	flush := func() {
		if len(text) > 0 {
			nodes = append(nodes, Node{Type: NodeText, Value: string(text)})
			text = text[:0]
		}
	}

	i := 0
	for i < len(runes) {
		switch runes[i] {
		case '#':
			if tag, n := scanHashtag(runes[i:]); n > 0 {
				flush()
				nodes = append(nodes, Node{Type: NodeHashtag, Value: tag})
				i += n
				continue
			}
		case '@':
			if username, host, n := scanMention(runes[i:]); n > 0 {
				flush()
				nodes = append(nodes, Node{Type: NodeMention, Username: username, Host: host})
				i += n
				continue
			}
		case ':':
			if name, n := scanEmoji(runes[i:]); n > 0 {
				flush()
				nodes = append(nodes, Node{Type: NodeEmoji, Value: name})
				i += n
				continue
			}
		}
		text = append(text, runes[i])
		i++
	}
	flush()
	return nodes
}

// scanHashtag reads "#tag" and returns the tag and consumed length.
func scanHashtag(runes []rune) (string, int) {
	i := 1
	for i < len(runes) && isTagRune(runes[i]) {
		i++
	}
	if i == 1 {
		return "", 0
	}
	return string(runes[1:i]), i
}

// scanMention reads "@user" or "@user@host".
func scanMention(runes []rune) (username, host string, n int) {
	i := 1
	for i < len(runes) && isNameRune(runes[i]) {
		i++
	}
	if i == 1 {
		return "", "", 0
	}
	username = string(runes[1:i])
	if i < len(runes) && runes[i] == '@' {
		j := i + 1
		for j < len(runes) && isHostRune(runes[j]) {
			j++
		}
		if j > i+1 {
			host = string(runes[i+1 : j])
			i = j
		}
	}
	return username, host, i
}

// scanEmoji reads ":shortcode:".
func scanEmoji(runes []rune) (string, int) {
	i := 1
	for i < len(runes) && isNameRune(runes[i]) {
		i++
	}
	if i == 1 || i >= len(runes) || runes[i] != ':' {
		return "", 0
	}
	return string(runes[1:i]), i + 1
}

func isTagRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-'
}

func isNameRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
}

func isHostRune(r rune) bool {
	return isNameRune(r) || r == '.' || r == '-'
}

// Hashtags returns unique hashtag values in first-seen order.
func Hashtags(nodes []Node) []string {
	return uniqueValues(nodes, NodeHashtag)
}

// Emojis returns unique emoji shortcodes in first-seen order.
func Emojis(nodes []Node) []string {
	return uniqueValues(nodes, NodeEmoji)
}

// Mentions returns unique (username, host) pairs in first-seen order. The
// comparison is case-insensitive on both parts.
func Mentions(nodes []Node) []Mention {
	seen := make(map[string]struct{})
	var out []Mention
	for _, node := range nodes {
		if node.Type != NodeMention {
			continue
		}
		key := strings.ToLower(node.Username) + "@" + strings.ToLower(node.Host)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, Mention{Username: node.Username, Host: node.Host})
	}
	return out
}

func uniqueValues(nodes []Node, t NodeType) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, node := range nodes {
		if node.Type != t {
			continue
		}
		if _, ok := seen[node.Value]; ok {
			continue
		}
		seen[node.Value] = struct{}{}
		out = append(out, node.Value)
	}
	return out
}
