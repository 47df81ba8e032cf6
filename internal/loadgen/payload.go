package loadgen

import (
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const bodyAlphabet = "abcdefghijklmnopqrstuvwxyz      0123456789"

// NewUserPool returns n random user identifiers.
func NewUserPool(n int) []string {
	return lo.Times(n, func(int) string {
		return uuid.NewString()
	})
}

// RandomBody returns a body of length characters drawn from a lowercase alphabet padded with
// spaces. intn defaults to math/rand/v2.
func RandomBody(length int, intn func(int) int) string {
	if intn == nil {
		intn = rand.IntN
	}
	var builder strings.Builder
	builder.Grow(length)
	for i := 0; i < length; i++ {
		builder.WriteByte(bodyAlphabet[intn(len(bodyAlphabet))])
	}
	return builder.String()
}
