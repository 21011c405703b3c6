package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptRoundTrip(t *testing.T) {
	enc, err := NewEncryptor("a-sufficiently-long-passphrase")
	require.NoError(t, err)

	sealed, err := enc.Encrypt("hunter2")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "hunter2")

	again, err := enc.Encrypt("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ per call")

	plain, err := enc.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plain)
}

func TestEncryptEmpty(t *testing.T) {
	enc, err := NewEncryptor("a-sufficiently-long-passphrase")
	require.NoError(t, err)

	sealed, err := enc.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	plain, err := enc.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, plain)
}

func TestDecryptFailures(t *testing.T) {
	enc, err := NewEncryptor("a-sufficiently-long-passphrase")
	require.NoError(t, err)
	other, err := NewEncryptor("a-different-long-passphrase")
	require.NoError(t, err)

	sealed, err := enc.Encrypt("secret")
	require.NoError(t, err)

	_, err = other.Decrypt(sealed)
	assert.Error(t, err)

	_, err = enc.Decrypt("not base64!")
	assert.Error(t, err)

	_, err = enc.Decrypt(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestNewEncryptorRejectsShortPassphrase(t *testing.T) {
	_, err := NewEncryptor("short")
	assert.Error(t, err)
}
