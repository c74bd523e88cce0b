package qris

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBase assembles a minimal static payload with a valid CRC.
func buildBase(t *testing.T) string {
	t.Helper()
	body := "000201" + // payload format indicator
		"010211" + // static point of initiation
		"26290013ID.CO.EXAMPLE0108ARKA0001" +
		"52045411" +
		"5303360" +
		"5910ARKA STORE" +
		"6007JAKARTA" +
		"6304"
	return body + checksum(body)
}

func TestValidate(t *testing.T) {
	base := buildBase(t)
	require.NoError(t, Validate(base))

	// flip one character inside the merchant name
	bad := strings.Replace(base, "ARKA STORE", "ARKA STORX", 1)
	assert.ErrorIs(t, Validate(bad), ErrBadChecksum)

	assert.ErrorIs(t, Validate("0002"), ErrInvalidPayload)
	assert.ErrorIs(t, Validate(""), ErrInvalidPayload)
}

func TestGenerate(t *testing.T) {
	base := buildBase(t)

	dynamic, err := Generate(base, 50042)
	require.NoError(t, err)

	require.NoError(t, Validate(dynamic))
	assert.Contains(t, dynamic, "010212", "point of initiation must be dynamic")
	assert.Contains(t, dynamic, "540550042", "amount tag must carry the total")
	assert.NotContains(t, dynamic, "010211")

	// amount tag sits between 53 and 55/58 in tag order
	assert.Less(t, strings.Index(dynamic, "5303360"), strings.Index(dynamic, "540550042"))
	assert.Less(t, strings.Index(dynamic, "540550042"), strings.Index(dynamic, "5910ARKA STORE"))
}

func TestGenerateReplacesExistingAmount(t *testing.T) {
	body := "000201" + "010212" + "54041000" + "5303360" + "6304"
	base := body + checksum(body)

	dynamic, err := Generate(base, 7)
	require.NoError(t, err)
	require.NoError(t, Validate(dynamic))
	assert.Contains(t, dynamic, "54017")
	assert.NotContains(t, dynamic, "54041000")
}

func TestGenerateRejectsBadInput(t *testing.T) {
	base := buildBase(t)

	_, err := Generate(base, 0)
	assert.Error(t, err)
	_, err = Generate(base, -5)
	assert.Error(t, err)
	_, err = Generate("garbage", 100)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestRandomAmountAvoidsUsed(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	used := map[int]struct{}{}
	for i := 0; i < 200; i++ {
		n := RandomAmount(used, rng)
		_, seen := used[n]
		require.False(t, seen, "offset %d handed out twice", n)
		used[n] = struct{}{}
	}
}

func TestRandomAmountPrefersLowestRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	n := RandomAmount(nil, rng)
	assert.GreaterOrEqual(t, n, 1)
	assert.LessOrEqual(t, n, 100)

	used := map[int]struct{}{}
	for i := 1; i <= 100; i++ {
		used[i] = struct{}{}
	}
	n = RandomAmount(used, rng)
	assert.GreaterOrEqual(t, n, 101)
	assert.LessOrEqual(t, n, 200)
}

func TestRandomAmountFallback(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	used := map[int]struct{}{}
	for i := 1; i <= 1000; i++ {
		used[i] = struct{}{}
	}
	n := RandomAmount(used, rng)
	assert.GreaterOrEqual(t, n, 1001)
	assert.LessOrEqual(t, n, 9999)
}
