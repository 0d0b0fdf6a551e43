// Package tokens estimates token usage of prompt text and scores how
// efficiently a prompt spends those tokens on structure.
package tokens

import "unicode/utf8"

const charsPerToken = 4

// Counter counts tokens in text.
type Counter interface {
	Count(text string) int
}

// EstimatingCounter approximates token count as one token per four
// characters.
type EstimatingCounter struct{}

func NewEstimatingCounter() *EstimatingCounter {
	return &EstimatingCounter{}
}

func (*EstimatingCounter) Count(text string) int {
	return Estimate(text)
}

// Estimate returns the character count of text divided by four, rounded
// down. Characters are runes, not bytes.
func Estimate(text string) int {
	return utf8.RuneCountInString(text) / charsPerToken
}
