package index

// squaredL2 returns the squared Euclidean distance between a and b.
// Both vectors must have the same length.
func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// candidate is a scored slot during top-k selection.
type candidate struct {
	slot int
	dist float64
}

// before reports whether c ranks ahead of o: smaller distance first, then lower slot.
func (c candidate) before(o candidate) bool {
	if c.dist != o.dist {
		return c.dist < o.dist
	}
	return c.slot < o.slot
}

// candidateHeap keeps the worst retained candidate at the root.
type candidateHeap []candidate

func (h candidateHeap) Len() int           { return len(h) }
func (h candidateHeap) Less(i, j int) bool { return h[j].before(h[i]) }
func (h candidateHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) { *h = append(*h, x.(candidate)) }

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}
