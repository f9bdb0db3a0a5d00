package xiangqi

import "strings"

const (
	Files = 9
	Ranks = 10
)

// Position is a board coordinate. File runs 0..8 left to right, Rank runs 0..9 from
// black's back rank down to red's back rank.
type Position struct {
	File int `json:"x"`
	Rank int `json:"y"`
}

func Pos(file, rank int) Position { return Position{File: file, Rank: rank} }

func (p Position) Valid() bool {
	return p.File >= 0 && p.File < Files && p.Rank >= 0 && p.Rank < Ranks
}

// Board is indexed [rank][file]. It is a value type; assignment copies it.
type Board [Ranks][Files]Piece

var backRank = [Files]Kind{Chariot, Horse, Elephant, Advisor, General, Advisor, Elephant, Horse, Chariot}

// NewInitialBoard returns the standard opening layout with red on ranks 5..9.
func NewInitialBoard() Board {
	var b Board
	for f, k := range backRank {
		b[0][f] = MakePiece(Black, k)
		b[9][f] = MakePiece(Red, k)
	}
	for _, f := range []int{1, 7} {
		b[2][f] = MakePiece(Black, Cannon)
		b[7][f] = MakePiece(Red, Cannon)
	}
	for f := 0; f < Files; f += 2 {
		b[3][f] = MakePiece(Black, Soldier)
		b[6][f] = MakePiece(Red, Soldier)
	}
	return b
}

// Get returns the piece at p. Off-board positions read as empty.
func (b *Board) Get(p Position) Piece {
	if !p.Valid() {
		return 0
	}
	return b[p.Rank][p.File]
}

func (b *Board) Set(p Position, pc Piece) {
	if !p.Valid() {
		return
	}
	b[p.Rank][p.File] = pc
}

// FindGeneral scans for the general of side s.
func (b *Board) FindGeneral(s Side) (Position, bool) {
	want := MakePiece(s, General)
	for r := 0; r < Ranks; r++ {
		for f := 0; f < Files; f++ {
			if b[r][f] == want {
				return Position{File: f, Rank: r}, true
			}
		}
	}
	return Position{}, false
}

// Apply moves the piece at from to to and returns whatever was captured.
// No legality checks are made.
func (b *Board) Apply(from, to Position) (moved, captured Piece) {
	moved = b.Get(from)
	captured = b.Get(to)
	b.Set(to, moved)
	b.Set(from, 0)
	return moved, captured
}

// Undo reverses Apply.
func (b *Board) Undo(from, to Position, moved, captured Piece) {
	b.Set(from, moved)
	b.Set(to, captured)
}

// Rows returns the board as plain int8 rows for serialization.
func (b *Board) Rows() [][]int8 {
	out := make([][]int8, Ranks)
	for r := 0; r < Ranks; r++ {
		row := make([]int8, Files)
		for f := 0; f < Files; f++ {
			row[f] = int8(b[r][f])
		}
		out[r] = row
	}
	return out
}

// BoardFromRows is the inverse of Rows. Missing cells stay empty.
func BoardFromRows(rows [][]int8) Board {
	var b Board
	for r := 0; r < Ranks && r < len(rows); r++ {
		for f := 0; f < Files && f < len(rows[r]); f++ {
			b[r][f] = Piece(rows[r][f])
		}
	}
	return b
}

// String draws the board with rank 0 on top, one letter per square.
func (b *Board) String() string {
	var sb strings.Builder
	for r := 0; r < Ranks; r++ {
		for f := 0; f < Files; f++ {
			pc := b[r][f]
			if pc == 0 {
				sb.WriteByte('.')
			} else {
				sb.WriteByte(pc.Letter())
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
