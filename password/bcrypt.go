package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Bcrypt hashes and compares bcrypt credentials. The zero value hashes with
// [bcrypt.DefaultCost].
type Bcrypt struct {
	Cost int
}

// NewBcrypt validates cost and returns a [Bcrypt] hasher.
func NewBcrypt(cost int) (Bcrypt, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return Bcrypt{}, fmt.Errorf("bcrypt cost must be within [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return Bcrypt{Cost: cost}, nil
}

func (b Bcrypt) Hash(credential string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	out, err := bcrypt.GenerateFromPassword([]byte(credential), cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (b Bcrypt) Compare(hash, credential string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(credential))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword),
		errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
}
