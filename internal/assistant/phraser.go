package assistant

import (
	"context"
	"strings"
)

// PlainPhraser streams the draft unchanged, a word at a time.
type PlainPhraser struct{}

func (PlainPhraser) Phrase(ctx context.Context, req PhraseRequest, emit func(string)) (string, error) {
	for _, chunk := range strings.SplitAfter(req.Draft, " ") {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if chunk != "" && emit != nil {
			emit(chunk)
		}
	}
	return req.Draft, nil
}
