// Package wallet holds the ed25519 fee payer key.
package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"os"

	"github.com/mr-tron/base58"
	"github.com/sugawarayuuta/sonnet"

	"github.com/fd1az/pool-sniper/business/execution/domain"
	"github.com/fd1az/pool-sniper/internal/apperror"
)

// Keypair signs transactions as their fee payer.
type Keypair struct {
	priv ed25519.PrivateKey
	pub  string
}

// Load reads a keypair file in the CLI format: a JSON array of the 64
// secret key bytes.
func Load(path string) (*Keypair, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("execution.keypair_path"), apperror.WithCause(err))
	}
	var ints []int
	if err := sonnet.Unmarshal(raw, &ints); err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext(path), apperror.WithCause(err))
	}
	if len(ints) != ed25519.PrivateKeySize {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext(fmt.Sprintf("%s: want %d bytes, got %d", path, ed25519.PrivateKeySize, len(ints))))
	}
	secret := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, apperror.New(apperror.CodeConfigurationError,
				apperror.WithContext(fmt.Sprintf("%s: byte %d out of range", path, i)))
		}
		secret[i] = byte(v)
	}
	return FromSecret(secret)
}

// FromSecret wraps a 64-byte secret key whose second half is the public key.
func FromSecret(secret []byte) (*Keypair, error) {
	if len(secret) != ed25519.PrivateKeySize {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "secret key length")
	}
	priv := ed25519.NewKeyFromSeed(secret[:ed25519.SeedSize])
	if !priv.Public().(ed25519.PublicKey).Equal(ed25519.PublicKey(secret[ed25519.SeedSize:])) {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "public key does not match seed")
	}
	return newKeypair(priv), nil
}

// Generate creates an ephemeral keypair.
func Generate() (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, apperror.Internal(apperror.CodeInternalError, "generate keypair", err)
	}
	return newKeypair(priv), nil
}

func newKeypair(priv ed25519.PrivateKey) *Keypair {
	return &Keypair{
		priv: priv,
		pub:  base58.Encode(priv.Public().(ed25519.PublicKey)),
	}
}

// PublicKey returns the base58 public key.
func (k *Keypair) PublicKey() string {
	return k.pub
}

// Secret returns the 64-byte secret key in the keypair file layout.
func (k *Keypair) Secret() []byte {
	return append([]byte(nil), k.priv...)
}

// Sign sets the fee payer signature over the compiled message.
func (k *Keypair) Sign(tx *domain.Transaction) error {
	if len(tx.Message) == 0 {
		return apperror.Validation(apperror.CodeInvalidTransaction, tx.ID+": message not compiled")
	}
	if tx.FeePayer != "" && tx.FeePayer != k.pub {
		return apperror.Validation(apperror.CodeInvalidTransaction,
			fmt.Sprintf("%s: fee payer %s is not the wallet", tx.ID, tx.FeePayer))
	}
	sig := ed25519.Sign(k.priv, tx.Message)
	if len(tx.Signatures) == 0 {
		tx.Signatures = [][]byte{sig}
	} else {
		tx.Signatures[0] = sig
	}
	return nil
}
