package session

// responseBuffers accumulates streamed text deltas keyed by response or
// item id. Entries are created lazily on first append and removed when
// taken. Ids that never complete are left behind, which is fine for a
// single-call lifetime.
type responseBuffers map[string]string

func newResponseBuffers() responseBuffers {
	return make(responseBuffers)
}

// Append concatenates delta onto the buffer for id, preserving arrival
// order.
func (b responseBuffers) Append(id, delta string) {
	if id == "" || delta == "" {
		return
	}
	b[id] += delta
}

// Take returns the accumulated text for id and clears the entry. Returns
// "" when nothing was buffered.
func (b responseBuffers) Take(id string) string {
	text, ok := b[id]
	if ok {
		delete(b, id)
	}
	return text
}
