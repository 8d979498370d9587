package privilege

import (
	"strconv"
	"strings"
)

// Mask is a 64-bit set of token privileges.
type Mask uint64

const (
	Login           Mask = 1 << 0
	EditSettings    Mask = 1 << 1
	PostContent     Mask = 1 << 2
	PostArticles    Mask = 1 << 3
	Nominations     Mask = 1 << 4
	LoginAdminPanel Mask = 1 << 10
	EditUsers       Mask = 1 << 11
	EditPunishments Mask = 1 << 12
	ReadUsersFull   Mask = 1 << 13
)

// ElevatedThreshold is the boundary above which a mask is considered
// elevated. A mask equal to the threshold is not elevated.
const ElevatedThreshold Mask = LoginAdminPanel

// Default is the mask issued when a caller requests none.
const Default = Login

// Has reports whether every bit of p is set in m.
func (m Mask) Has(p Mask) bool {
	return m&p == p
}

// SubsetOf reports whether m grants nothing outside of grant.
func (m Mask) SubsetOf(grant Mask) bool {
	return m&^grant == 0
}

// Elevated reports whether m exceeds [ElevatedThreshold].
func (m Mask) Elevated() bool {
	return m > ElevatedThreshold
}

// Raw returns the underlying integer.
func (m Mask) Raw() uint64 {
	return uint64(m)
}

// String renders known bits by name joined with "|". Unknown bits are
// appended as a hex literal.
func (m Mask) String() string {
	if m == 0 {
		return "NONE"
	}

	parts := make([]string, 0, 4)
	rest := m
	for _, def := range definitions {
		if m.Has(def.bit) {
			parts = append(parts, def.name)
			rest &^= def.bit
		}
	}
	if rest != 0 {
		parts = append(parts, "0x"+strconv.FormatUint(uint64(rest), 16))
	}

	return strings.Join(parts, "|")
}
