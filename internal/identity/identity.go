package identity

import (
	"context"
	"strings"
)

// Challenge is a security question/answer pair used to verify a caller.
type Challenge struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Store looks up the challenge for a caller name. Lookups never fail the
// verification flow: an unknown name yields DefaultChallenge so there is
// always something to ask.
type Store interface {
	Lookup(ctx context.Context, name string) (Challenge, error)
}

// DefaultChallenge is asked when no record exists for a name.
var DefaultChallenge = Challenge{
	Question: "When does Gandalf arrive?",
	Answer:   "Exactly on time",
}

// Normalize lowercases and trims a caller name into its lookup key.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
