package security

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAESEncryptorRoundTrip(t *testing.T) {
	enc, err := NewAESEncryptorFromSecret("calendar-token-key")
	require.NoError(t, err)

	sealed, err := EncryptString(enc, "ya29.access-token")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "ya29")

	plain, err := DecryptString(enc, sealed)
	require.NoError(t, err)
	assert.Equal(t, "ya29.access-token", plain)
}

func TestEncryptStringKeepsEmpty(t *testing.T) {
	enc, err := NewAESEncryptorFromSecret("k")
	require.NoError(t, err)

	sealed, err := EncryptString(enc, "")
	require.NoError(t, err)
	assert.Empty(t, sealed)
}

func TestDecryptWithWrongKey(t *testing.T) {
	a, err := NewAESEncryptorFromSecret("one")
	require.NoError(t, err)
	b, err := NewAESEncryptorFromSecret("two")
	require.NoError(t, err)

	sealed, err := EncryptString(a, "secret")
	require.NoError(t, err)

	_, err = DecryptString(b, sealed)
	assert.ErrorIs(t, err, ErrDecryption)

	_, err = DecryptString(a, "not base64!")
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestInvalidKey(t *testing.T) {
	_, err := NewAESEncryptor([]byte("short"))
	assert.ErrorIs(t, err, ErrInvalidKeySize)

	_, err = NewAESEncryptorFromSecret("")
	assert.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestDeriveKey(t *testing.T) {
	a, err := DeriveKey("calendar-token-key", 32)
	require.NoError(t, err)
	assert.Len(t, a, 32)

	again, err := DeriveKey("calendar-token-key", 32)
	require.NoError(t, err)
	assert.Equal(t, a, again)

	other, err := DeriveKey("calendar-token-key2", 32)
	require.NoError(t, err)
	assert.NotEqual(t, a, other)

	plain := sha256.Sum256([]byte("calendar-token-key"))
	assert.NotEqual(t, plain[:], a)
}
