// Package password hashes user passwords with Argon2id in PHC string format.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/arcmed/arcmed_backend/config"
)

var (
	ErrInvalidHash         = errors.New("invalid password hash format")
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
	ErrMismatch            = errors.New("password does not match")
)

// Params defines the Argon2id parameters.
type Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams follows the OWASP password storage recommendations.
func DefaultParams() *Params {
	return &Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// FromCentralConfig builds Params from the central config, falling back to
// defaults for unset fields.
func FromCentralConfig(c config.PasswordConfig) *Params {
	p := DefaultParams()
	if c.MemoryKiB > 0 {
		p.Memory = c.MemoryKiB
	}
	if c.Iterations > 0 {
		p.Iterations = c.Iterations
	}
	if c.Parallelism > 0 {
		p.Parallelism = c.Parallelism
	}
	if c.SaltLength > 0 {
		p.SaltLength = c.SaltLength
	}
	if c.KeyLength > 0 {
		p.KeyLength = c.KeyLength
	}
	return p
}

var defaultParams = DefaultParams()

// Hash generates an Argon2id hash of the password using default parameters.
func Hash(password string) (string, error) {
	return HashWithParams(password, defaultParams)
}

// HashWithParams generates an Argon2id hash with custom parameters.
func HashWithParams(password string, p *Params) (string, error) {
	if p == nil {
		p = defaultParams
	}

	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)

	// PHC string format: $argon2id$v=19$m=65536,t=3,p=2$<salt>$<hash>
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Iterations,
		p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify compares a password against an Argon2id hash. Returns nil on match,
// ErrMismatch on mismatch, or another error for malformed hashes.
func Verify(hash, password string) error {
	p, salt, hashBytes, err := decodeHash(hash)
	if err != nil {
		return err
	}

	other := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
	if subtle.ConstantTimeCompare(hashBytes, other) != 1 {
		return ErrMismatch
	}
	return nil
}

// Match is a convenience wrapper returning true when password matches hash.
func Match(hash, password string) bool {
	return Verify(hash, password) == nil
}

func decodeHash(encoded string) (*Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, nil, ErrInvalidHash
	}
	if version != argon2.Version {
		return nil, nil, nil, ErrIncompatibleVersion
	}

	var p Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return nil, nil, nil, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, nil, ErrInvalidHash
	}
	p.SaltLength = uint32(len(salt))

	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, nil, ErrInvalidHash
	}
	p.KeyLength = uint32(len(hash))

	return &p, salt, hash, nil
}
