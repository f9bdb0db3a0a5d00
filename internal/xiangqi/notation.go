package xiangqi

import (
	"errors"
	"fmt"
	"strings"
)

// ICCS coordinates: files a..i left to right, ranks 0..9 from red's back rank upward.
// Red's left cannon opening "h2e2" is File 7 Rank 7 -> File 4 Rank 7 in board terms.

var ErrBadNotation = errors.New("bad move notation")

// SquareName returns the ICCS name of p, e.g. "e0" for red's general.
func SquareName(p Position) string {
	if !p.Valid() {
		return "??"
	}
	return fmt.Sprintf("%c%d", 'a'+p.File, Ranks-1-p.Rank)
}

// ParseSquare parses an ICCS square such as "h2".
func ParseSquare(s string) (Position, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 {
		return Position{}, fmt.Errorf("%w: %q", ErrBadNotation, s)
	}
	f, r := int(s[0]-'a'), int(s[1]-'0')
	p := Position{File: f, Rank: Ranks - 1 - r}
	if s[0] < 'a' || s[1] < '0' || s[1] > '9' || !p.Valid() {
		return Position{}, fmt.Errorf("%w: %q", ErrBadNotation, s)
	}
	return p, nil
}

// FormatMove renders from/to as "h2e2".
func FormatMove(from, to Position) string {
	return SquareName(from) + SquareName(to)
}

// ParseMove accepts "h2e2", "h2-e2" or "H2 E2".
func ParseMove(s string) (from, to Position, err error) {
	clean := strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(s))
	if len(clean) != 4 {
		return Position{}, Position{}, fmt.Errorf("%w: %q", ErrBadNotation, s)
	}
	if from, err = ParseSquare(clean[:2]); err != nil {
		return Position{}, Position{}, err
	}
	if to, err = ParseSquare(clean[2:]); err != nil {
		return Position{}, Position{}, err
	}
	return from, to, nil
}

// LooksLikeMove is a cheap syntactic test used by chat parsing.
func LooksLikeMove(s string) bool {
	_, _, err := ParseMove(s)
	return err == nil
}
