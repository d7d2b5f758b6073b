// Package crypto provides the claim commitment digest and at-rest encryption
// for the registry owner key.
package crypto

import (
	"crypto/rand"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// CommitmentHash binds (nonce, claimant, target) into a one-way digest:
//
//	keccak256(nonce || claimant || target)
//
// The claimant publishes only the digest during prepareClaim and reveals the
// nonce in declareLost; recomputation must reproduce the stored hash. Binding
// the claimant address into the preimage is what defeats front-running: an
// observer who copies the visible digest cannot reveal it from their own
// address.
func CommitmentHash(nonce common.Hash, claimant, target common.Address) common.Hash {
	return common.BytesToHash(ethcrypto.Keccak256(
		nonce.Bytes(),
		claimant.Bytes(),
		target.Bytes(),
	))
}

// NewNonce returns a fresh random 32-byte nonce for a claim commitment.
func NewNonce() (common.Hash, error) {
	var n common.Hash
	if _, err := rand.Read(n[:]); err != nil {
		return common.Hash{}, fmt.Errorf("crypto: generating nonce: %w", err)
	}
	return n, nil
}

// AddressFromLabel derives a stable principal address from a human-readable
// label, for configurations that do not pin token or escrow addresses.
func AddressFromLabel(label string) common.Address {
	return common.BytesToAddress(ethcrypto.Keccak256([]byte(label)))
}

// DeriveAddress returns the address controlled by the given hex-encoded
// secp256k1 private key. Used to resolve the registry owner from a key loaded
// via LoadKey.
func DeriveAddress(privateKeyHex string) (common.Address, error) {
	key, err := ethcrypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto: parsing private key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(key.PublicKey), nil
}
