package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"705-555-0101", "(705) 555-0101"},
		{"(705) 555-0101", "(705) 555-0101"},
		{"705.555.0101", "(705) 555-0101"},
		{"+1 705 555 0101", "(705) 555-0101"},
		{"1-705-555-0101", "(705) 555-0101"},
		{"7055550101", "(705) 555-0101"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := NormalizePhone(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizePhone_Invalid(t *testing.T) {
	for _, raw := range []string{"", "N/A", "555-0101", "2-705-555-0101", "705 555 0101 ext 22"} {
		_, err := NormalizePhone(raw)
		assert.ErrorIs(t, err, ErrInvalidPhoneFormat, raw)
	}
}

func TestNormalizePhone_Idempotent(t *testing.T) {
	for _, raw := range []string{"705-555-0101", "+1 (807) 555 1234", "1.249.555.0000", "6135550199"} {
		once, err := NormalizePhone(raw)
		require.NoError(t, err)
		twice, err := NormalizePhone(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	}
}

func TestFindPhone(t *testing.T) {
	got, ok := FindPhone("Open daily. Call us at 705.555.0199 for service")
	require.True(t, ok)
	assert.Equal(t, "(705) 555-0199", got)

	got, ok = FindPhone("Tel: +1 (807) 555-1234")
	require.True(t, ok)
	assert.Equal(t, "(807) 555-1234", got)

	_, ok = FindPhone("established 1998, over 1000 customers")
	assert.False(t, ok)
}
