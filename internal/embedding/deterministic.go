package embedding

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"
)

// DeterministicClient hashes text into a pseudo-random unit vector. It is
// used when no real embedding model is configured: identical text always
// maps to the identical vector, so reinforcement detection still works,
// while unrelated texts land in effectively random directions.
type DeterministicClient struct {
	dimension int
}

func NewDeterministicClient(dimension int) *DeterministicClient {
	if dimension <= 0 {
		dimension = 1536
	}
	return &DeterministicClient{dimension: dimension}
}

func (c *DeterministicClient) Dimension() int        { return c.dimension }
func (c *DeterministicClient) IsDeterministic() bool { return true }

func (c *DeterministicClient) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	// splitmix64 over the text hash gives signed per-dimension values.
	vec := make([]float32, c.dimension)
	state := seed
	for i := range vec {
		state += 0x9e3779b97f4a7c15
		z := state
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		z ^= z >> 31

		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], z)
		bits := binary.LittleEndian.Uint32(buf[:4])
		// Map to (-1, 1).
		vec[i] = float32(int32(bits)) / float32(math.MaxInt32)
	}

	return normalize(vec), nil
}
