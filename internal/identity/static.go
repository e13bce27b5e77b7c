package identity

import "context"

// builtinChallenges seed the static store; config entries override them.
var builtinChallenges = map[string]Challenge{
	"mom": {
		Question: "What was our favourite beach you grew up going to?",
		Answer:   "Muizenberg",
	},
	"dad": {
		Question: "What was our first dog's name?",
		Answer:   "Maximillian",
	},
	"david": {
		Question: "What colour do we agree is the best jelly bean?",
		Answer:   "Purple",
	},
}

// StaticStore serves challenges from an in-memory table.
type StaticStore struct {
	challenges map[string]Challenge
}

// NewStaticStore builds a store from the built-in table merged with extra
// entries (keys are normalized).
func NewStaticStore(extra map[string]Challenge) *StaticStore {
	challenges := make(map[string]Challenge, len(builtinChallenges)+len(extra))
	for name, c := range builtinChallenges {
		challenges[name] = c
	}
	for name, c := range extra {
		challenges[Normalize(name)] = c
	}
	return &StaticStore{challenges: challenges}
}

func (s *StaticStore) Lookup(_ context.Context, name string) (Challenge, error) {
	if c, ok := s.challenges[Normalize(name)]; ok {
		return c, nil
	}
	return DefaultChallenge, nil
}
