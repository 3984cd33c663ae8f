package mpc

import "github.com/san-kum/mpcdrive/internal/vehicle"

// Block names one state trajectory in the decision vector.
type Block int

const (
	BlockX Block = iota
	BlockY
	BlockPsi
	BlockV
	BlockCTE
	BlockEPsi
)

var blockNames = [...]string{"x", "y", "psi", "v", "cte", "epsi"}

func (b Block) String() string {
	if b < 0 || int(b) >= len(blockNames) {
		return "block?"
	}
	return blockNames[b]
}

// Blocks lists the state blocks in vector order.
func Blocks() []Block {
	return []Block{BlockX, BlockY, BlockPsi, BlockV, BlockCTE, BlockEPsi}
}

type Actuator int

const (
	Steer Actuator = iota
	Accel
)

// Layout addresses the flat decision vector and the constraint rows.
type Layout struct {
	N int
}

func NewLayout(n int) Layout { return Layout{N: n} }

// Len is 6N + 2(N-1).
func (l Layout) Len() int { return vehicle.StateWidth*l.N + 2*(l.N-1) }

// Rows is the number of constraint rows, 6N.
func (l Layout) Rows() int { return vehicle.StateWidth * l.N }

func (l Layout) State(b Block, t int) int { return int(b)*l.N + t }

func (l Layout) Actuator(a Actuator, t int) int {
	return vehicle.StateWidth*l.N + int(a)*(l.N-1) + t
}

// Row is the constraint row tying state block b at step t.
func (l Layout) Row(b Block, t int) int { return int(b)*l.N + t }

// View reads a decision vector of any arithmetic type through a Layout.
type View[T any] struct {
	L Layout
	X []T
}

func NewView[T any](l Layout, x []T) View[T] {
	return View[T]{L: l, X: x}
}

func (v View[T]) At(b Block, t int) T { return v.X[v.L.State(b, t)] }

func (v View[T]) State(t int) vehicle.State[T] {
	return vehicle.State[T]{
		X:    v.At(BlockX, t),
		Y:    v.At(BlockY, t),
		Psi:  v.At(BlockPsi, t),
		V:    v.At(BlockV, t),
		CTE:  v.At(BlockCTE, t),
		EPsi: v.At(BlockEPsi, t),
	}
}

// SetState writes s into step t.
func (v View[T]) SetState(t int, s vehicle.State[T]) {
	for b, val := range s.Slice() {
		v.X[v.L.State(Block(b), t)] = val
	}
}

func (v View[T]) Steer(t int) T { return v.X[v.L.Actuator(Steer, t)] }
func (v View[T]) Accel(t int) T { return v.X[v.L.Actuator(Accel, t)] }
