package secrets

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/vidyalane/schoolops-backend/pkg/logger"
)

const (
	encPrefix       = "ENC:"
	plaintextPrefix = "PLAINTEXT:"
)

// ErrDecode indicates the stored value could not be decoded. Callers treat it
// as permanent: a bad credential will not fix itself on retry.
var ErrDecode = errors.New("secrets: cannot decode stored value")

// Codec seals and opens credential maps. With a key configured values are
// AEAD-sealed and tagged "ENC:"; without one they degrade to a clearly tagged
// "PLAINTEXT:" encoding. The two forms are always distinguishable.
type Codec struct {
	key []byte
}

// NewCodec builds a codec from a base64-encoded 32-byte key. An empty key
// yields a plaintext codec.
func NewCodec(encodedKey string) (*Codec, error) {
	if strings.TrimSpace(encodedKey) == "" {
		return &Codec{}, nil
	}
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("decoding credentials key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("credentials key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &Codec{key: key}, nil
}

// Sealed reports whether the codec encrypts values.
func (c *Codec) Sealed() bool {
	return len(c.key) > 0
}

// WarnIfUnsealed logs a startup warning when a production process runs with
// the plaintext fallback. New credentials stored through this codec are not
// encrypted at rest.
func (c *Codec) WarnIfUnsealed(ctx context.Context, logg *logger.Logger, prod bool) {
	if !prod || c.Sealed() {
		return
	}
	logg.Warn(ctx, "credentials key not configured, provider credentials will be stored in plaintext")
}

// IsSealed reports whether a stored value carries the encrypted tag.
func IsSealed(stored string) bool {
	return strings.HasPrefix(stored, encPrefix)
}

// Encode serializes and seals the credential map.
func (c *Codec) Encode(values map[string]string) (string, error) {
	raw, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("marshal credentials: %w", err)
	}
	if !c.Sealed() {
		return plaintextPrefix + base64.StdEncoding.EncodeToString(raw), nil
	}
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", fmt.Errorf("build cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, raw, nil)
	return encPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decode opens a stored value. It fails closed: an "ENC:" value without the
// matching key, an untagged value, or corrupt ciphertext all return ErrDecode.
func (c *Codec) Decode(stored string) (map[string]string, error) {
	switch {
	case strings.HasPrefix(stored, plaintextPrefix):
		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, plaintextPrefix))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return unmarshalValues(raw)
	case strings.HasPrefix(stored, encPrefix):
		if !c.Sealed() {
			return nil, fmt.Errorf("%w: sealed value but no key configured", ErrDecode)
		}
		sealed, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, encPrefix))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		aead, err := chacha20poly1305.NewX(c.key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		if len(sealed) < aead.NonceSize() {
			return nil, fmt.Errorf("%w: truncated ciphertext", ErrDecode)
		}
		nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
		raw, err := aead.Open(nil, nonce, ciphertext, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return unmarshalValues(raw)
	default:
		return nil, fmt.Errorf("%w: unrecognized encoding", ErrDecode)
	}
}

func unmarshalValues(raw []byte) (map[string]string, error) {
	values := map[string]string{}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return values, nil
}
