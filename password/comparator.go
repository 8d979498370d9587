package password

import (
	"errors"
	"strings"
)

// ErrMalformedHash is returned when a stored hash cannot be parsed. It is a
// configuration problem, never a credential mismatch.
var ErrMalformedHash = errors.New("malformed password hash")

// ErrUnsupportedScheme is returned by [Dispatch] for hashes with an unknown prefix.
var ErrUnsupportedScheme = errors.New("unsupported password hash scheme")

// Comparator checks a credential against a stored slow hash.
type Comparator interface {
	Compare(hash, credential string) (bool, error)
}

// Hasher produces stored hashes and can verify them.
type Hasher interface {
	Comparator
	Hash(credential string) (string, error)
}

// Dispatcher selects a comparator by hash prefix and hashes new credentials
// with a primary [Hasher].
type Dispatcher struct {
	primary Hasher
	bcrypt  Comparator
	argon2  Comparator
}

// Dispatch returns a [Dispatcher] that hashes with primary and compares
// bcrypt ("$2a$", "$2b$", "$2y$") and argon2id ("$argon2id$") hashes.
func Dispatch(primary Hasher) *Dispatcher {
	return &Dispatcher{
		primary: primary,
		bcrypt:  Bcrypt{},
		argon2:  &Argon2{},
	}
}

// Hash delegates to the primary hasher.
func (d *Dispatcher) Hash(credential string) (string, error) {
	return d.primary.Hash(credential)
}

// Compare routes to the comparator matching the hash prefix.
func (d *Dispatcher) Compare(hash, credential string) (bool, error) {
	switch {
	case strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"), strings.HasPrefix(hash, "$2y$"):
		return d.bcrypt.Compare(hash, credential)
	case strings.HasPrefix(hash, "$"+algorithmID+"$"):
		return d.argon2.Compare(hash, credential)
	case hash == "":
		return false, ErrMalformedHash
	default:
		return false, ErrUnsupportedScheme
	}
}
