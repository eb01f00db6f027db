package ledger

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// ParsePrivateKey accepts a base58 secret or a solana-keygen JSON byte array.
func ParsePrivateKey(s string) (solana.PrivateKey, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(s), &ints); err != nil {
			return nil, fmt.Errorf("wallet: invalid JSON private key: %w", err)
		}
		b := make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("wallet: invalid byte at %d", i)
			}
			b[i] = byte(v)
		}
		return checkKey(b)
	}

	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("wallet: invalid base58 private key")
	}
	return checkKey(raw)
}

func checkKey(b []byte) (solana.PrivateKey, error) {
	if len(b) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("wallet: expected %d bytes, got %d", ed25519.PrivateKeySize, len(b))
	}
	key := solana.PrivateKey(ed25519.PrivateKey(b))
	// The trailing 32 bytes must be the public half of the seed.
	derived := ed25519.NewKeyFromSeed(b[:ed25519.SeedSize])
	if !solana.PrivateKey(derived).PublicKey().Equals(key.PublicKey()) {
		return nil, fmt.Errorf("wallet: public key does not match secret seed")
	}
	return key, nil
}
