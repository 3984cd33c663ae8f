package solver

import "fmt"

// Jacobian stores constraint derivatives row by row. Row i lists the
// variable indices it depends on in Cols[i] and the matching partials in
// Vals[i].
type Jacobian struct {
	Cols [][]int
	Vals [][]float64
}

func NewJacobian(m int) *Jacobian {
	return &Jacobian{
		Cols: make([][]int, m),
		Vals: make([][]float64, m),
	}
}

func (j *Jacobian) Rows() int { return len(j.Cols) }

// SetRow replaces row i. The slices are copied.
func (j *Jacobian) SetRow(i int, cols []int, vals []float64) {
	j.Cols[i] = append(j.Cols[i][:0], cols...)
	j.Vals[i] = append(j.Vals[i][:0], vals...)
}

// NonZeros counts stored entries.
func (j *Jacobian) NonZeros() int {
	nz := 0
	for _, c := range j.Cols {
		nz += len(c)
	}
	return nz
}

// MulTransAdd accumulates dst += J^T w.
func (j *Jacobian) MulTransAdd(dst, w []float64) {
	for i, cols := range j.Cols {
		if w[i] == 0 {
			continue
		}
		for k, c := range cols {
			dst[c] += w[i] * j.Vals[i][k]
		}
	}
}

// DenseRow writes row i into dst, which must have one slot per variable.
func (j *Jacobian) DenseRow(dst []float64, i int) {
	for k := range dst {
		dst[k] = 0
	}
	for k, c := range j.Cols[i] {
		dst[c] = j.Vals[i][k]
	}
}

func (j *Jacobian) At(i, c int) float64 {
	for k, cc := range j.Cols[i] {
		if cc == c {
			return j.Vals[i][k]
		}
	}
	return 0
}

func (j *Jacobian) String() string {
	return fmt.Sprintf("jacobian(%d rows, %d nonzeros)", j.Rows(), j.NonZeros())
}
