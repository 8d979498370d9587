package privilege

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownPrivilege is returned when a name does not map to a known bit.
var ErrUnknownPrivilege = errors.New("unknown privilege")

type definition struct {
	name string
	bit  Mask
}

var definitions = []definition{
	{name: "LOGIN", bit: Login},
	{name: "EDIT_SETTINGS", bit: EditSettings},
	{name: "POST_CONTENT", bit: PostContent},
	{name: "POST_ARTICLES", bit: PostArticles},
	{name: "NOMINATIONS", bit: Nominations},
	{name: "LOGIN_ADMIN_PANEL", bit: LoginAdminPanel},
	{name: "EDIT_USERS", bit: EditUsers},
	{name: "EDIT_PUNISHMENTS", bit: EditPunishments},
	{name: "READ_USERS_FULL", bit: ReadUsersFull},
}

// Lookup returns the bit for a privilege name. Matching ignores case.
func Lookup(name string) (Mask, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for _, def := range definitions {
		if def.name == name {
			return def.bit, true
		}
	}
	return 0, false
}

// Names returns the names of every known privilege in bit order.
func Names() []string {
	out := make([]string, len(definitions))
	for i, def := range definitions {
		out[i] = def.name
	}
	return out
}

// Parse accepts either a decimal integer ("1025") or a list of names
// separated by "|" or "," ("LOGIN|EDIT_USERS"). An empty string parses
// to zero.
func Parse(value string) (Mask, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}

	if n, err := strconv.ParseUint(value, 10, 64); err == nil {
		return Mask(n), nil
	}

	var m Mask
	for _, field := range strings.FieldsFunc(value, func(r rune) bool { return r == '|' || r == ',' }) {
		bit, ok := Lookup(field)
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnknownPrivilege, strings.TrimSpace(field))
		}
		m |= bit
	}

	return m, nil
}
