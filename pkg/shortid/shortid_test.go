package shortid

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_FixedLengthLowercase(t *testing.T) {
	for i := 0; i < 50; i++ {
		s := Encode(uuid.New())
		assert.Len(t, s, EncodedLen)
		assert.Equal(t, strings.ToLower(s), s)
		assert.NotContains(t, s, "=")
	}
}

func TestEncode_KnownValue(t *testing.T) {
	// All-zero identifier encodes to 26 'a' characters.
	assert.Equal(t, strings.Repeat("a", 26), Encode(uuid.Nil))
}

func TestRoundTrip(t *testing.T) {
	for i := 0; i < 200; i++ {
		id := uuid.New()
		decoded, err := Decode(Encode(id))
		require.NoError(t, err)
		assert.Equal(t, id, decoded)
	}
}

func TestDecode_AcceptsUppercase(t *testing.T) {
	id := uuid.New()
	decoded, err := Decode(strings.ToUpper(Encode(id)))
	require.NoError(t, err)
	assert.Equal(t, id, decoded)
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"invalid alphabet", strings.Repeat("1", 26)}, // '1' is not in base32
		{"too short", "abcd"},
		{"too long", strings.Repeat("a", 52)},
		{"embedded padding", "ab=d" + strings.Repeat("a", 22)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.input)
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}
