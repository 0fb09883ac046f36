package knowledge

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
	"unicode"
)

// Dims is the sparse embedding dimensionality. Token hashes are bucketed
// into [0, Dims).
const Dims = 4096

// SparseVector is a unit-normalized sparse embedding, bucket -> weight.
type SparseVector map[uint32]float64

// Tokenize splits text into lowercased alphanumeric runs.
func Tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
			continue
		}
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

// bucket hashes a token into [0, Dims) using SHA-256 truncated to 32 bits.
func bucket(token string) uint32 {
	sum := sha256.Sum256([]byte(token))
	return binary.BigEndian.Uint32(sum[:4]) % Dims
}

// Embed builds the L2-normalized sparse vector for a text.
func Embed(text string) SparseVector {
	counts := make(SparseVector)
	for _, tok := range Tokenize(text) {
		counts[bucket(tok)]++
	}
	var norm float64
	for _, c := range counts {
		norm += c * c
	}
	if norm == 0 {
		return counts
	}
	norm = math.Sqrt(norm)
	for b, c := range counts {
		counts[b] = c / norm
	}
	return counts
}

// Dot computes the sparse dot product. For unit vectors this is the cosine
// similarity.
func Dot(a, b SparseVector) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float64
	for k, av := range a {
		if bv, ok := b[k]; ok {
			sum += av * bv
		}
	}
	return sum
}
