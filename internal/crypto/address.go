package crypto

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ed25519"
)

const (
	// Base58Alphabet is the Bitcoin/Solana base58 alphabet. 0, O, I and l never appear in an address.
	Base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

	// EncodedKeyLen is the length of an encoded keypair: 32-byte seed followed by the 32-byte public key.
	EncodedKeyLen = ed25519.PrivateKeySize
)

var (
	ErrInvalidKeyLength = errors.New("encoded private key must decode to 64 bytes")
	ErrKeyMismatch      = errors.New("private key does not derive the stated address")
)

// Keypair is an ed25519 keypair whose public key doubles as the account address
type Keypair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// GenerateKeypair produces one fresh random keypair
func GenerateKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key: %w", err)
	}
	return &Keypair{PublicKey: pub, PrivateKey: priv}, nil
}

// Address returns the canonical base58 address of the public key
func (k *Keypair) Address() string {
	return base58.Encode(k.PublicKey)
}

// EncodePrivateKey returns the base58 encoding of the full 64-byte keypair,
// the format wallets import.
func (k *Keypair) EncodePrivateKey() string {
	return base58.Encode(k.PrivateKey)
}

// DecodePrivateKey reverses EncodePrivateKey
func DecodePrivateKey(encoded string) (*Keypair, error) {
	raw, err := base58.Decode(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode base58 private key: %w", err)
	}
	if len(raw) != EncodedKeyLen {
		return nil, ErrInvalidKeyLength
	}
	priv := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
	pub := priv.Public().(ed25519.PublicKey)
	if !bytes.Equal(pub, raw[ed25519.SeedSize:]) {
		return nil, ErrKeyMismatch
	}
	return &Keypair{PublicKey: pub, PrivateKey: priv}, nil
}

// VerifyEncodedKey checks that an encoded private key belongs to address.
// Parsing goes through solana-go so the result matches what a wallet would import.
func VerifyEncodedKey(address, encoded string) error {
	if _, err := DecodePrivateKey(encoded); err != nil {
		return err
	}
	priv, err := solana.PrivateKeyFromBase58(strings.TrimSpace(encoded))
	if err != nil {
		return fmt.Errorf("parse solana private key: %w", err)
	}
	if priv.PublicKey().String() != address {
		return ErrKeyMismatch
	}
	return nil
}

// IsBase58 reports whether every character of s is in the base58 alphabet
func IsBase58(s string) bool {
	for _, c := range s {
		if !strings.ContainsRune(Base58Alphabet, c) {
			return false
		}
	}
	return true
}
