package secrets

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() string {
	return base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", keySize)))
}

func TestBox_SealOpen(t *testing.T) {
	box, err := NewBox(testKey())
	require.NoError(t, err)
	require.True(t, box.Enabled())

	sealed, err := box.Seal("AKIAEXAMPLE")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "AKIAEXAMPLE")

	plain, err := box.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "AKIAEXAMPLE", plain)
}

func TestBox_OpenRejectsTampering(t *testing.T) {
	box, err := NewBox(testKey())
	require.NoError(t, err)
	sealed, err := box.Seal("secret")
	require.NoError(t, err)

	raw, _ := base64.StdEncoding.DecodeString(sealed)
	raw[len(raw)-1] ^= 0xff
	_, err = box.Open(base64.StdEncoding.EncodeToString(raw))
	assert.ErrorIs(t, err, ErrOpen)

	_, err = box.Open("not base64!")
	assert.ErrorIs(t, err, ErrOpen)
}

func TestNewBox(t *testing.T) {
	box, err := NewBox("")
	require.NoError(t, err)
	assert.False(t, box.Enabled())
	_, err = box.Open("x")
	assert.ErrorIs(t, err, ErrNoKey)

	_, err = NewBox(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, ErrInvalidKey)
}
