package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON means the reply contained nothing that looked like JSON
var ErrNoJSON = errors.New("no JSON found in oracle reply")

// ExtractJSON pulls the first JSON object or array out of a reply that
// may wrap it in prose or a fenced code block.
func ExtractJSON(reply string) (string, error) {
	text := strings.TrimSpace(reply)
	if i := strings.Index(text, "```"); i >= 0 {
		rest := text[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		if j := strings.Index(rest, "```"); j >= 0 {
			text = strings.TrimSpace(rest[:j])
		}
	}

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return "", ErrNoJSON
	}
	closer := byte('}')
	if text[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(text, closer)
	if end < start {
		return "", ErrNoJSON
	}
	return text[start : end+1], nil
}

// Decode extracts and unmarshals a JSON reply into T
func Decode[T any](reply string) (T, error) {
	var v T
	raw, err := ExtractJSON(reply)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return v, fmt.Errorf("malformed oracle JSON: %w", err)
	}
	return v, nil
}

// Ask sends prompt and decodes the JSON reply into T
func Ask[T any](ctx context.Context, o Oracle, prompt string) (T, error) {
	var zero T
	if o == nil {
		return zero, ErrUnavailable
	}
	reply, err := o.Complete(ctx, prompt)
	if err != nil {
		return zero, err
	}
	return Decode[T](reply)
}
