// Package notetext extracts plain text from TipTap editor documents.
package notetext

import (
	"encoding/json"
	"strings"
)

type node struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Content []node `json:"content"`
}

// textNodes returns the text nodes of each top-level block. Invalid
// documents yield nil.
func textNodes(contentJSON string) [][]string {
	if contentJSON == "" {
		return nil
	}
	var doc node
	if err := json.Unmarshal([]byte(contentJSON), &doc); err != nil {
		return nil
	}
	out := make([][]string, 0, len(doc.Content))
	for _, block := range doc.Content {
		var texts []string
		for _, n := range block.Content {
			if n.Type == "text" && n.Text != "" {
				texts = append(texts, n.Text)
			}
		}
		out = append(out, texts)
	}
	return out
}

// PreviewLines returns the first two non-empty trimmed block texts.
func PreviewLines(contentJSON string) (first, second string) {
	var lines []string
	for _, texts := range textNodes(contentJSON) {
		if len(lines) == 2 {
			break
		}
		if trimmed := strings.TrimSpace(strings.Join(texts, "")); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) > 0 {
		first = lines[0]
	}
	if len(lines) > 1 {
		second = lines[1]
	}
	return first, second
}

// WordCount counts whitespace-separated words in every text node of the
// document's top-level blocks. Adjacent nodes are counted separately.
func WordCount(contentJSON string) int64 {
	var n int64
	for _, texts := range textNodes(contentJSON) {
		for _, text := range texts {
			n += int64(len(strings.Fields(text)))
		}
	}
	return n
}

// Document builds a TipTap document from plain text: an optional level-one
// heading, then one paragraph per line of body.
func Document(title, body string) string {
	type out struct {
		Type    string         `json:"type"`
		Attrs   map[string]any `json:"attrs,omitempty"`
		Text    string         `json:"text,omitempty"`
		Content []out          `json:"content,omitempty"`
	}
	doc := out{Type: "doc", Content: []out{}}
	if title != "" {
		doc.Content = append(doc.Content, out{
			Type: "heading", Attrs: map[string]any{"level": 1},
			Content: []out{{Type: "text", Text: title}},
		})
	}
	for _, line := range strings.Split(body, "\n") {
		p := out{Type: "paragraph"}
		if line != "" {
			p.Content = []out{{Type: "text", Text: line}}
		}
		doc.Content = append(doc.Content, p)
	}
	b, _ := json.Marshal(doc)
	return string(b)
}
