package chunk

// DefaultMaxBytes is the largest encoded blob (exclusive) the disperser accepts.
const DefaultMaxBytes = 2 << 20

// Guard rejects encoded payloads that exceed the transport ceiling.
type Guard struct {
	// MaxBytes is the exclusive upper bound; zero selects DefaultMaxBytes.
	MaxBytes int
}

// Fits reports whether data is strictly smaller than the ceiling.
func (g Guard) Fits(data []byte) bool {
	return len(data) < g.Limit()
}

// Limit returns the effective ceiling.
func (g Guard) Limit() int {
	if g.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return g.MaxBytes
}
