package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

// Well-known test vector: private key 0x01 controls this address.
const (
	testKeyHex  = "0000000000000000000000000000000000000000000000000000000000000001"
	testKeyAddr = "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"
)

func TestCommitmentHash(t *testing.T) {
	require := require.New(t)

	nonce := common.HexToHash("0x01")
	claimant := common.HexToAddress("0x02")
	target := common.HexToAddress("0x03")

	h := CommitmentHash(nonce, claimant, target)
	require.Equal(h, CommitmentHash(nonce, claimant, target))

	// Every input participates in the digest.
	require.NotEqual(h, CommitmentHash(common.HexToHash("0x04"), claimant, target))
	require.NotEqual(h, CommitmentHash(nonce, common.HexToAddress("0x04"), target))
	require.NotEqual(h, CommitmentHash(nonce, claimant, common.HexToAddress("0x04")))
}

func TestNewNonce(t *testing.T) {
	require := require.New(t)

	a, err := NewNonce()
	require.NoError(err)
	b, err := NewNonce()
	require.NoError(err)
	require.NotEqual(a, b)
}

func TestAddressFromLabel(t *testing.T) {
	require := require.New(t)

	a := AddressFromLabel("equity/SHS")
	require.Equal(a, AddressFromLabel("equity/SHS"))
	require.NotEqual(a, AddressFromLabel("wrapper/DSHS"))
	require.NotEqual(common.Address{}, a)
}

func TestDeriveAddress(t *testing.T) {
	require := require.New(t)

	addr, err := DeriveAddress(testKeyHex)
	require.NoError(err)
	require.Equal(common.HexToAddress(testKeyAddr), addr)

	_, err = DeriveAddress("not-hex")
	require.Error(err)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	require := require.New(t)

	blob, err := EncryptKey("0x"+testKeyHex, "correct horse")
	require.NoError(err)

	got, err := DecryptKey(blob, "correct horse")
	require.NoError(err)
	require.Equal(testKeyHex, got)

	_, err = DecryptKey(blob, "wrong password")
	require.Error(err)
}

func TestEncryptKeyValidation(t *testing.T) {
	require := require.New(t)

	_, err := EncryptKey(testKeyHex, "")
	require.Error(err)

	_, err = EncryptKey("zz", "pw")
	require.Error(err)

	// 16 bytes is not a secp256k1 key.
	_, err = EncryptKey("00112233445566778899aabbccddeeff", "pw")
	require.Error(err)
}

func TestLoadKeyPrecedence(t *testing.T) {
	require := require.New(t)

	blob, err := EncryptKey(testKeyHex, "pw")
	require.NoError(err)
	path := filepath.Join(t.TempDir(), "owner.json")
	require.NoError(os.WriteFile(path, blob, 0o600))

	// Raw key wins even when an encrypted path is configured.
	k, err := LoadKey(KeyConfig{
		RawPrivateKey:    "0x" + testKeyHex,
		EncryptedKeyPath: path,
		KeyPassword:      "pw",
	})
	require.NoError(err)
	require.Equal(testKeyHex, k)

	k, err = LoadKey(KeyConfig{EncryptedKeyPath: path, KeyPassword: "pw"})
	require.NoError(err)
	require.Equal(testKeyHex, k)

	_, err = LoadKey(KeyConfig{EncryptedKeyPath: path, KeyPassword: "bad"})
	require.Error(err)

	_, err = LoadKey(KeyConfig{})
	require.Error(err)
}
