package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	const secret = "unit-test-secret"
	sealed, err := EncryptString(secret, "490154203237518")
	require.NoError(t, err)
	assert.NotEqual(t, "490154203237518", sealed)

	plain, err := DecryptString(secret, sealed)
	require.NoError(t, err)
	assert.Equal(t, "490154203237518", plain)
}

func TestEncryptProducesFreshNonce(t *testing.T) {
	a, err := EncryptString("secret", "same input")
	require.NoError(t, err)
	b, err := EncryptString("secret", "same input")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	sealed, err := EncryptString("key-one", "payload")
	require.NoError(t, err)
	_, err = DecryptString("key-two", sealed)
	assert.ErrorIs(t, err, ErrCiphertext)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	_, err := DecryptString("secret", "not base64 at all!!!")
	assert.ErrorIs(t, err, ErrCiphertext)

	_, err = DecryptString("secret", "YWJj") // too short for a nonce
	assert.ErrorIs(t, err, ErrCiphertext)
}
