package xiangqi

// Candidate is a (from, to) pair produced by move search.
type Candidate struct {
	From Position
	To   Position
}

// IsInCheck reports whether side's general is attacked by any enemy piece.
// A side without a general is never in check; callers detect that case separately.
func IsInCheck(b *Board, side Side) bool {
	g, ok := b.FindGeneral(side)
	if !ok {
		return false
	}
	enemy := side.Opponent()
	for r := 0; r < Ranks; r++ {
		for f := 0; f < Files; f++ {
			pc := b[r][f]
			if pc == 0 || pc.Side() != enemy {
				continue
			}
			if IsLegalShape(b, Position{File: f, Rank: r}, g, pc) {
				return true
			}
		}
	}
	return false
}

// WouldExposeCheck reports whether moving from -> to leaves side in check.
// b is not modified.
func WouldExposeCheck(b *Board, from, to Position, side Side) bool {
	scratch := *b
	scratch.Apply(from, to)
	return IsInCheck(&scratch, side)
}

// IsLegalMove combines the shape test with the self-check test for the piece at from.
func IsLegalMove(b *Board, from, to Position) bool {
	pc := b.Get(from)
	if pc == 0 || !IsLegalShape(b, from, to, pc) {
		return false
	}
	return !WouldExposeCheck(b, from, to, pc.Side())
}

// HasAnyLegalMove searches every (from, to) pair for side and stops at the first legal one.
func HasAnyLegalMove(b *Board, side Side) bool {
	found := false
	walkLegal(b, side, func(Candidate) bool {
		found = true
		return false
	})
	return found
}

// LegalMoves lists every legal move for side in board scan order.
func LegalMoves(b *Board, side Side) []Candidate {
	var out []Candidate
	walkLegal(b, side, func(c Candidate) bool {
		out = append(out, c)
		return true
	})
	return out
}

// walkLegal calls fn for each legal move until fn returns false.
func walkLegal(b *Board, side Side, fn func(Candidate) bool) {
	scratch := *b
	for r := 0; r < Ranks; r++ {
		for f := 0; f < Files; f++ {
			pc := scratch[r][f]
			if pc == 0 || pc.Side() != side {
				continue
			}
			from := Position{File: f, Rank: r}
			for tr := 0; tr < Ranks; tr++ {
				for tf := 0; tf < Files; tf++ {
					to := Position{File: tf, Rank: tr}
					if !IsLegalShape(&scratch, from, to, pc) {
						continue
					}
					moved, captured := scratch.Apply(from, to)
					exposed := IsInCheck(&scratch, side)
					scratch.Undo(from, to, moved, captured)
					if exposed {
						continue
					}
					if !fn(Candidate{From: from, To: to}) {
						return
					}
				}
			}
		}
	}
}

// Verdict summarizes the position from the point of view of the side to move.
type Verdict struct {
	// MissingGeneral is the side whose general is absent, NoSide if both are present.
	MissingGeneral Side
	Check          bool
	Checkmate      bool
	Stalemate      bool
}

// Over reports whether the verdict ends the game.
func (v Verdict) Over() bool {
	return v.MissingGeneral != NoSide || v.Checkmate || v.Stalemate
}

// Evaluate computes the verdict for toMove. A missing general is checked first, then
// checkmate, then stalemate.
func Evaluate(b *Board, toMove Side) Verdict {
	var v Verdict
	if _, ok := b.FindGeneral(Red); !ok {
		v.MissingGeneral = Red
		return v
	}
	if _, ok := b.FindGeneral(Black); !ok {
		v.MissingGeneral = Black
		return v
	}
	v.Check = IsInCheck(b, toMove)
	if HasAnyLegalMove(b, toMove) {
		return v
	}
	if v.Check {
		v.Checkmate = true
	} else {
		v.Stalemate = true
	}
	return v
}
