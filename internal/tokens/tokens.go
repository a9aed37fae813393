// Package tokens counts prompt and completion tokens for cost estimation.
package tokens

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Encodings load from embedded dictionaries, so startup never downloads.
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// DefaultEncoding is used when the configured encoding cannot be loaded.
const DefaultEncoding = "cl100k_base"

// Counter returns a deterministic, non-negative token count for text.
type Counter interface {
	Count(text string) int
	Profile() string
}

// BPECounter counts tokens with a tiktoken encoding. Encoders are not safe for
// concurrent use, so calls are serialized.
type BPECounter struct {
	mu      sync.Mutex
	enc     *tiktoken.Tiktoken
	profile string
}

// New loads the preferred encoding, falling back to DefaultEncoding and then
// to the character heuristic. It never fails.
func New(encoding string) Counter {
	encoding = strings.TrimSpace(encoding)
	if encoding == "" {
		encoding = DefaultEncoding
	}
	if enc, err := tiktoken.GetEncoding(encoding); err == nil {
		return &BPECounter{enc: enc, profile: encoding}
	}
	if encoding != DefaultEncoding {
		if enc, err := tiktoken.GetEncoding(DefaultEncoding); err == nil {
			return &BPECounter{enc: enc, profile: DefaultEncoding}
		}
	}
	return Heuristic{}
}

func (c *BPECounter) Count(text string) int {
	if text == "" {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.enc.Encode(text, nil, nil))
}

func (c *BPECounter) Profile() string {
	return c.profile
}

// Heuristic approximates one token per four bytes, rounded up.
type Heuristic struct{}

func (Heuristic) Count(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}

func (Heuristic) Profile() string {
	return "heuristic-4cpt"
}
