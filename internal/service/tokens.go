package service

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter reports the token count of stored content. The count is
// recorded in the point payload next to the content itself.
type TokenCounter interface {
	Count(text string) int
}

// tokenCounterModel is the encoding used for payload token counts.
const tokenCounterModel = "gpt-3.5-turbo"

// TiktokenCounter counts tokens with a BPE encoding.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the BPE encoding. Loading happens once at startup;
// a failure here is startup-fatal like any other model load failure.
func NewTiktokenCounter() (*TiktokenCounter, error) {
	encoding, err := tiktoken.EncodingForModel(tokenCounterModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load token encoding: %w", err)
	}
	return &TiktokenCounter{encoding: encoding}, nil
}

// Count returns the number of tokens in text.
func (c *TiktokenCounter) Count(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}
