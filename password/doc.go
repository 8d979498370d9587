// Package password implements the slow hashes that guard stored credentials.
//
// A [Comparator] answers "does this credential match this stored hash" and
// must distinguish a mismatch (false, nil) from a stored hash it cannot
// parse ([ErrMalformedHash]). A [Hasher] additionally produces new hashes.
//
// Two schemes are provided: bcrypt (the canonical format of stored profile
// hashes) and argon2id in PHC string form. [Dispatch] routes comparisons by
// hash prefix so both can coexist in one profile table.
package password
