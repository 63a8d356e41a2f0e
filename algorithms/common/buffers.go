package common

// History is a bounded FIFO of float64 values for streaming analysis.
// Pushing into a full history overwrites the oldest value.
type History struct {
	buffer   []float64
	size     int
	writePos int
	count    int
}

// NewHistory creates a history holding at most size values
func NewHistory(size int) *History {
	if size < 1 {
		size = 1
	}
	return &History{
		buffer: make([]float64, size),
		size:   size,
	}
}

// Push appends a value, evicting the oldest when full.
// Reports whether a value was evicted.
func (h *History) Push(value float64) bool {
	h.buffer[h.writePos] = value
	h.writePos = (h.writePos + 1) % h.size
	if h.count < h.size {
		h.count++
		return false
	}
	return true
}

// Len returns the number of retained values
func (h *History) Len() int {
	return h.count
}

// Cap returns the capacity
func (h *History) Cap() int {
	return h.size
}

// At returns the i-th retained value, 0 being the oldest
func (h *History) At(i int) float64 {
	if i < 0 || i >= h.count {
		return 0
	}
	start := (h.writePos - h.count + h.size) % h.size
	return h.buffer[(start+i)%h.size]
}

// CopyTo writes the retained values oldest first into dst and returns the
// number written.
func (h *History) CopyTo(dst []float64) int {
	n := min(len(dst), h.count)
	for i := range n {
		dst[i] = h.At(i)
	}
	return n
}

// Values returns the retained values oldest first
func (h *History) Values() []float64 {
	out := make([]float64, h.count)
	h.CopyTo(out)
	return out
}

// Unordered returns the retained values in storage order without copying.
// Only valid for order-independent reductions (sum, mean) and only until the next Push.
func (h *History) Unordered() []float64 {
	return h.buffer[:h.count]
}

// Clear drops every value
func (h *History) Clear() {
	h.writePos = 0
	h.count = 0
	clear(h.buffer)
}
