package xiangqi

import "fmt"

// Side identifies a player. The sign matches the sign of the side's piece codes.
type Side int8

const (
	NoSide Side = 0
	Red    Side = 1
	Black  Side = -1
)

// Opponent returns the other side. NoSide maps to itself.
func (s Side) Opponent() Side { return -s }

func (s Side) String() string {
	switch s {
	case Red:
		return "red"
	case Black:
		return "black"
	default:
		return "none"
	}
}

// ParseSide accepts the String form of a side.
func ParseSide(v string) (Side, error) {
	switch v {
	case "red":
		return Red, nil
	case "black":
		return Black, nil
	case "none", "":
		return NoSide, nil
	}
	return NoSide, fmt.Errorf("unknown side %q", v)
}

// Kind is the unsigned piece type (1..7).
type Kind int8

const (
	Empty    Kind = 0
	General  Kind = 1 // 帥/將
	Advisor  Kind = 2 // 仕/士
	Elephant Kind = 3 // 相/象
	Horse    Kind = 4 // 馬
	Chariot  Kind = 5 // 車
	Cannon   Kind = 6 // 炮/砲
	Soldier  Kind = 7 // 兵/卒
)

var kindLetters = [...]byte{'.', 'K', 'A', 'E', 'H', 'R', 'C', 'P'}

// Letter returns the upper-case letter used in text diagrams.
func (k Kind) Letter() byte {
	if k < 0 || int(k) >= len(kindLetters) {
		return '?'
	}
	return kindLetters[k]
}

func (k Kind) String() string {
	switch k {
	case General:
		return "general"
	case Advisor:
		return "advisor"
	case Elephant:
		return "elephant"
	case Horse:
		return "horse"
	case Chariot:
		return "chariot"
	case Cannon:
		return "cannon"
	case Soldier:
		return "soldier"
	}
	return "empty"
}

// Piece is a signed piece code: 0 empty, >0 red, <0 black, magnitude = Kind.
type Piece int8

// MakePiece builds the code of kind k owned by side s.
func MakePiece(s Side, k Kind) Piece {
	if s == NoSide || k == Empty {
		return 0
	}
	return Piece(int8(s) * int8(k))
}

func (p Piece) Kind() Kind {
	if p < 0 {
		return Kind(-p)
	}
	return Kind(p)
}

func (p Piece) Side() Side {
	switch {
	case p > 0:
		return Red
	case p < 0:
		return Black
	}
	return NoSide
}

func (p Piece) IsEmpty() bool { return p == 0 }

// Letter is upper-case for red and lower-case for black.
func (p Piece) Letter() byte {
	l := p.Kind().Letter()
	if p < 0 {
		return l + ('a' - 'A')
	}
	return l
}
