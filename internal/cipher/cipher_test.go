package cipher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name    string
		cipher  string
		keySize int
	}{
		{"des", "des-cbc", 0},
		{"3des", "des-ede3-cbc", 0},
		{"bf128", "bf-cbc", 128},
		{"bf256", "bf-cbc", 256},
		{"aes128", "aes-128-cbc", 0},
		{"aes128gcm", "aes-128-gcm", 0},
		{"aes192", "aes-192-cbc", 0},
		{"aes192gcm", "aes-192-gcm", 0},
		{"aes256", "aes-256-cbc", 0},
		{"aes256gcm", "aes-256-gcm", 0},
	}
	require.Len(t, Names(), len(tests))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := Lookup(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.cipher, s.Cipher)
			assert.Equal(t, tt.keySize, s.KeySize)
		})
	}

	_, ok := Lookup("chacha20")
	assert.False(t, ok)
}

func TestIsGCM(t *testing.T) {
	assert.True(t, IsGCM("aes128gcm"))
	assert.True(t, IsGCM("aes256gcm"))
	assert.False(t, IsGCM("aes256"))
	assert.False(t, IsGCM("3des"))
	assert.False(t, IsGCM(""))
}

func TestNCPList(t *testing.T) {
	assert.Equal(t, "aes-256-gcm:AES-256-GCM:aes-128-cbc:AES-128-CBC",
		NCPList([]string{"aes256gcm", "aes128"}))
	assert.Equal(t, "des-ede3-cbc:DES-EDE3-CBC", NCPList([]string{"bf128", "3des", "unknown"}))
	assert.Empty(t, NCPList(nil))
}
