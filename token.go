package toolround

import "unicode/utf8"

// TokenCounter estimates token count for a string.
// Plug in an exact tokenizer when prior-context limits must be precise; default is CharFallbackCounter.
type TokenCounter interface {
	Count(text string) (int, error)
}

// CharFallbackCounter estimates tokens as runes/CharsPerToken.
// Zero value uses 4 chars per token.
type CharFallbackCounter struct {
	CharsPerToken int
}

// Count returns ceil(rune_count / CharsPerToken); CharsPerToken <= 0 means 4.
func (c *CharFallbackCounter) Count(text string) (int, error) {
	cpt := c.CharsPerToken
	if cpt <= 0 {
		cpt = 4
	}
	n := utf8.RuneCountInString(text)
	return (n + cpt - 1) / cpt, nil
}

var _ TokenCounter = (*CharFallbackCounter)(nil)
