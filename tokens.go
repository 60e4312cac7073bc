package toolscope

import (
	"encoding/json"
	"fmt"
)

// DefaultCharsPerToken is the divisor for the character-count token
// heuristic. Roughly four characters per token for English text; this is
// a coarse proxy, not a tokenizer.
const DefaultCharsPerToken = 4

// TokenEstimator approximates the token count of a tool result.
type TokenEstimator interface {
	EstimateTokens(result any) int
}

// CharCountEstimator estimates tokens as the character length of the
// result's textual form divided by CharsPerToken.
type CharCountEstimator struct {
	// CharsPerToken defaults to DefaultCharsPerToken when <= 0.
	CharsPerToken int
}

// EstimateTokens returns the approximate token count for result.
// A nil result estimates to zero.
func (e CharCountEstimator) EstimateTokens(result any) int {
	if result == nil {
		return 0
	}
	divisor := e.CharsPerToken
	if divisor <= 0 {
		divisor = DefaultCharsPerToken
	}
	return len(textForm(result)) / divisor
}

// textForm renders a result as text for size estimation. Strings are used
// as-is; everything else is JSON-encoded, falling back to fmt formatting
// for values JSON cannot represent.
func textForm(result any) string {
	switch v := result.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprint(result)
	}
	return string(data)
}

var defaultEstimator TokenEstimator = CharCountEstimator{}
