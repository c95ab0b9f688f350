package result

import "sync/atomic"

// IDGenerator hands out incremental detection IDs, it is safe for use by
// multiple goroutines
type IDGenerator struct {
	id atomic.Int64
}

// NewIDGenerator returns an IDGenerator whose first ID is 1
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// GetNext returns the next incremental number
func (g *IDGenerator) GetNext() int64 {
	return g.id.Add(1)
}
