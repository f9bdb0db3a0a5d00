package xiangqi

// IsLegalShape reports whether piece p may move from -> to on b, considering geometry,
// blocking and cannon screens only. It does not look at check.
func IsLegalShape(b *Board, from, to Position, p Piece) bool {
	if !from.Valid() || !to.Valid() || p == 0 {
		return false
	}
	if from == to {
		return false
	}
	side := p.Side()
	if dst := b.Get(to); dst != 0 && dst.Side() == side {
		return false
	}

	switch p.Kind() {
	case General:
		return generalShape(from, to, side)
	case Advisor:
		return advisorShape(from, to, side)
	case Elephant:
		return elephantShape(b, from, to, side)
	case Horse:
		return horseShape(b, from, to)
	case Chariot:
		return orthogonal(from, to) && screensBetween(b, from, to) == 0
	case Cannon:
		return cannonShape(b, from, to)
	case Soldier:
		return soldierShape(from, to, side)
	}
	return false
}

// InPalace reports whether p lies inside side's 3x3 palace.
func InPalace(p Position, side Side) bool {
	if p.File < 3 || p.File > 5 {
		return false
	}
	if side == Red {
		return p.Rank >= 7 && p.Rank <= 9
	}
	return p.Rank >= 0 && p.Rank <= 2
}

// OwnHalf reports whether p is on side's half of the river.
func OwnHalf(p Position, side Side) bool {
	if side == Red {
		return p.Rank >= 5
	}
	return p.Rank <= 4
}

// forward is the rank delta of one step toward the enemy.
func forward(side Side) int {
	if side == Red {
		return -1
	}
	return 1
}

func generalShape(from, to Position, side Side) bool {
	if !InPalace(to, side) {
		return false
	}
	dx, dy := abs(to.File-from.File), abs(to.Rank-from.Rank)
	return dx+dy == 1
}

func advisorShape(from, to Position, side Side) bool {
	if !InPalace(to, side) {
		return false
	}
	return abs(to.File-from.File) == 1 && abs(to.Rank-from.Rank) == 1
}

func elephantShape(b *Board, from, to Position, side Side) bool {
	if !OwnHalf(to, side) {
		return false
	}
	if abs(to.File-from.File) != 2 || abs(to.Rank-from.Rank) != 2 {
		return false
	}
	eye := Position{File: (from.File + to.File) / 2, Rank: (from.Rank + to.Rank) / 2}
	return b.Get(eye) == 0
}

func horseShape(b *Board, from, to Position) bool {
	dx, dy := to.File-from.File, to.Rank-from.Rank
	var leg Position
	switch {
	case abs(dx) == 2 && abs(dy) == 1:
		leg = Position{File: from.File + sign(dx), Rank: from.Rank}
	case abs(dx) == 1 && abs(dy) == 2:
		leg = Position{File: from.File, Rank: from.Rank + sign(dy)}
	default:
		return false
	}
	return b.Get(leg) == 0
}

func cannonShape(b *Board, from, to Position) bool {
	if !orthogonal(from, to) {
		return false
	}
	n := screensBetween(b, from, to)
	if b.Get(to) == 0 {
		return n == 0
	}
	return n == 1
}

func soldierShape(from, to Position, side Side) bool {
	dx, dy := to.File-from.File, to.Rank-from.Rank
	if abs(dx)+abs(dy) != 1 {
		return false
	}
	fwd := forward(side)
	if OwnHalf(from, side) {
		return dx == 0 && dy == fwd
	}
	// across the river: forward or sideways, never back
	return dy == fwd || dy == 0
}

func orthogonal(from, to Position) bool {
	return from.File == to.File || from.Rank == to.Rank
}

// screensBetween counts occupied squares strictly between from and to on a shared line.
func screensBetween(b *Board, from, to Position) int {
	sx, sy := sign(to.File-from.File), sign(to.Rank-from.Rank)
	n := 0
	for p := (Position{File: from.File + sx, Rank: from.Rank + sy}); p != to; p = (Position{File: p.File + sx, Rank: p.Rank + sy}) {
		if b.Get(p) != 0 {
			n++
		}
	}
	return n
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
