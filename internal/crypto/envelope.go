package crypto

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/and161185/capture-queue/internal/errs"
)

// Envelope is a sealed blob: its nonce and the ciphertext||tag.
type Envelope struct {
	Nonce      []byte
	Ciphertext []byte
}

// String renders the stored form base64(nonce) ":" base64(ciphertext).
func (e Envelope) String() string {
	return base64.StdEncoding.EncodeToString(e.Nonce) + ":" + base64.StdEncoding.EncodeToString(e.Ciphertext)
}

// ParseEnvelope parses the stored form produced by Envelope.String.
func ParseEnvelope(s string) (Envelope, error) {
	nonceB64, ctB64, ok := strings.Cut(s, ":")
	if !ok || strings.Contains(ctB64, ":") {
		return Envelope{}, fmt.Errorf("%w: malformed envelope", errs.ErrDecryptionFailed)
	}
	nonce, err := base64.StdEncoding.DecodeString(nonceB64)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: nonce: %w", errs.ErrDecryptionFailed, err)
	}
	ct, err := base64.StdEncoding.DecodeString(ctB64)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: ciphertext: %w", errs.ErrDecryptionFailed, err)
	}
	return Envelope{Nonce: nonce, Ciphertext: ct}, nil
}
