package security

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/tusklang/tusk-go/internal/providers"
	"github.com/tusklang/tusk-go/internal/registry"
)

func callSec(t *testing.T, name string, args ...cty.Value) (cty.Value, error) {
	t.Helper()
	r := registry.New()
	(&Module{}).Register(r)
	reg, method, err := r.Lookup(name)
	require.NoError(t, err)
	return reg.Op.Evaluate(context.Background(), &registry.Context{
		Crypto: providers.NewSecretboxCrypto("test-secret"),
	}, &registry.Call{Name: name, Method: method, Args: args})
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := callSec(t, "encrypt", cty.StringVal("hunter2"), cty.StringVal("secretbox"))
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", enc.AsString())

	dec, err := callSec(t, "decrypt", enc, cty.StringVal("secretbox"))
	require.NoError(t, err)
	assert.True(t, dec.RawEquals(cty.StringVal("hunter2")))
}

func TestDecryptGarbageFails(t *testing.T) {
	_, err := callSec(t, "decrypt", cty.StringVal("not-ciphertext"), cty.StringVal("secretbox"))
	require.Error(t, err)
}

func TestHash(t *testing.T) {
	v, err := callSec(t, "hash", cty.StringVal("abc"))
	require.NoError(t, err)
	// sha256("abc")
	assert.True(t, v.RawEquals(cty.StringVal("ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad")))

	md5v, err := callSec(t, "hash", cty.StringVal("abc"), cty.StringVal("md5"))
	require.NoError(t, err)
	assert.True(t, md5v.RawEquals(cty.StringVal("900150983cd24fb0d6963f7d28e17f72")))

	_, err = callSec(t, "hash", cty.StringVal("abc"), cty.StringVal("rot13"))
	require.Error(t, err)
}

func TestBase64(t *testing.T) {
	enc, err := callSec(t, "base", cty.StringVal("tusk"))
	require.NoError(t, err)
	assert.True(t, enc.RawEquals(cty.StringVal("dHVzaw==")))

	dec, err := callSec(t, "base.decode", enc)
	require.NoError(t, err)
	assert.True(t, dec.RawEquals(cty.StringVal("tusk")))

	// "base64" aliases "base".
	alias, err := callSec(t, "base64", cty.StringVal("tusk"))
	require.NoError(t, err)
	assert.True(t, alias.RawEquals(enc))

	_, err = callSec(t, "base.decode", cty.StringVal("!!!"))
	require.Error(t, err)
}

func TestCryptoUnavailable(t *testing.T) {
	r := registry.New()
	(&Module{}).Register(r)
	reg, _, err := r.Lookup("encrypt")
	require.NoError(t, err)
	_, err = reg.Op.Evaluate(context.Background(), &registry.Context{}, &registry.Call{
		Name: "encrypt",
		Args: []cty.Value{cty.StringVal("x")},
	})
	assert.ErrorIs(t, err, registry.ErrUnavailable)
}
