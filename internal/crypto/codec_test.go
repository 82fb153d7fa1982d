package crypto

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	codec := NewCodec("test_master_key")

	cases := []string{
		"hello",
		"xin chào bạn",
		"a",
		strings.Repeat("long message ", 200),
		"exactly sixteen.", // one full block
		"{\"json\":\"payload\"}",
	}

	for _, plain := range cases {
		env, err := codec.Encrypt(plain)
		require.NoError(t, err)
		assert.NotEqual(t, plain, env)

		got, err := codec.Decrypt(env)
		require.NoError(t, err)
		assert.Equal(t, plain, got)
	}
}

func TestEncryptEmptyIsNoop(t *testing.T) {
	codec := NewCodec("test_master_key")

	env, err := codec.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, env)

	got, err := codec.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEnvelopeFormat(t *testing.T) {
	codec := NewCodec("test_master_key")

	env, err := codec.Encrypt("some message text")
	require.NoError(t, err)

	parts := strings.Split(env, ":")
	require.Len(t, parts, 2, "envelope must contain exactly one separator")

	iv, err := base64.StdEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	assert.Len(t, iv, 16)

	ct, err := base64.StdEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	assert.NotEmpty(t, ct)
	assert.Zero(t, len(ct)%16)
}

func TestEncryptUsesRandomIV(t *testing.T) {
	codec := NewCodec("test_master_key")

	a, err := codec.Encrypt("same text")
	require.NoError(t, err)
	b, err := codec.Encrypt("same text")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestDecryptMalformedEnvelope(t *testing.T) {
	codec := NewCodec("test_master_key")

	cases := map[string]string{
		"no separator":     "bm9zZXBhcmF0b3I=",
		"bad iv base64":    "not-base64!:aGVsbG8=",
		"short iv":         base64.StdEncoding.EncodeToString([]byte("short")) + ":aGVsbG8=",
		"bad data base64":  base64.StdEncoding.EncodeToString(make([]byte, 16)) + ":%%%",
		"unaligned data":   base64.StdEncoding.EncodeToString(make([]byte, 16)) + ":" + base64.StdEncoding.EncodeToString([]byte("abc")),
		"empty ciphertext": base64.StdEncoding.EncodeToString(make([]byte, 16)) + ":",
	}

	for name, env := range cases {
		_, err := codec.Decrypt(env)
		assert.ErrorIs(t, err, ErrDecode, name)
	}
}

func TestKeyTruncatedAndPadded(t *testing.T) {
	// Keys longer than 32 bytes are truncated; both codecs must agree.
	long := NewCodec("0123456789abcdef0123456789abcdefEXTRA")
	exact := NewCodec("0123456789abcdef0123456789abcdef")

	env, err := long.Encrypt("interop")
	require.NoError(t, err)

	got, err := exact.Decrypt(env)
	require.NoError(t, err)
	assert.Equal(t, "interop", got)
}
