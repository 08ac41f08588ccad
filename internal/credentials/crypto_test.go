package credentials

import (
	"encoding/base64"
	"testing"

	"github.com/nulzo/chat-router/internal/store/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryption_RoundTrip(t *testing.T) {
	key, err := GenerateKey(32)
	require.NoError(t, err)

	enc, err := NewEncryptionFromBase64(key)
	require.NoError(t, err)

	ct, err := enc.EncryptString("sk-live-123")
	require.NoError(t, err)
	assert.NotContains(t, ct, "sk-live-123")

	pt, err := enc.DecryptString(ct)
	require.NoError(t, err)
	assert.Equal(t, "sk-live-123", pt)

	ct2, _ := enc.EncryptString("sk-live-123")
	assert.NotEqual(t, ct, ct2, "nonce is random")
}

func TestEncryption_InvalidKeys(t *testing.T) {
	_, err := NewEncryption([]byte("short"))
	assert.Error(t, err)

	_, err = NewEncryptionFromBase64("")
	assert.Error(t, err)

	_, err = NewEncryptionFromBase64("!!!")
	assert.Error(t, err)

	_, err = GenerateKey(7)
	assert.Error(t, err)
}

func TestEncryptionFromSecret(t *testing.T) {
	a, err := NewEncryptionFromSecret("correct horse battery staple")
	require.NoError(t, err)
	b, err := NewEncryptionFromSecret("correct horse battery staple")
	require.NoError(t, err)

	ct, err := a.EncryptString("v")
	require.NoError(t, err)
	pt, err := b.DecryptString(ct)
	require.NoError(t, err)
	assert.Equal(t, "v", pt, "passphrase derivation is deterministic")

	other, _ := NewEncryptionFromSecret("another passphrase")
	_, err = other.DecryptString(ct)
	assert.Error(t, err)

	raw := base64.StdEncoding.EncodeToString(make([]byte, 16))
	fromSecret, err := NewEncryptionFromSecret(raw)
	require.NoError(t, err)
	assert.Len(t, fromSecret.key, 16, "valid base64 keys are used as-is")

	_, err = NewEncryptionFromSecret("")
	assert.Error(t, err)
}

func TestEncryption_Tampered(t *testing.T) {
	enc, _ := NewEncryptionFromSecret("k")
	ct, _ := enc.EncryptString("hello")

	raw, _ := base64.StdEncoding.DecodeString(ct)
	raw[len(raw)-1] ^= 0xff
	_, err := enc.Decrypt(base64.StdEncoding.EncodeToString(raw))
	assert.Error(t, err)

	_, err = enc.Decrypt(base64.StdEncoding.EncodeToString([]byte("x")))
	assert.ErrorContains(t, err, "too short")
}

func TestEncryption_JSON(t *testing.T) {
	enc, _ := NewEncryptionFromSecret("k")

	in := []model.Endpoint{{URL: "http://a", APIKey: "x"}, {URL: "http://b"}}
	ct, err := enc.EncryptJSON(in)
	require.NoError(t, err)

	var out []model.Endpoint
	require.NoError(t, enc.DecryptJSON(ct, &out))
	assert.Equal(t, in, out)

	empty, err := enc.EncryptJSON(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	out = nil
	require.NoError(t, enc.DecryptJSON("", &out))
	assert.Nil(t, out)
}
