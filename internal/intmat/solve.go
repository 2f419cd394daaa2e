package intmat

// SolveSystem returns an integer vector x with A*x = b, or ok=false if
// no integer solution exists. It factors A into Smith Normal Form
// L*A*R = D, transforms b into the diagonal basis (c = L*b), solves
// the decoupled diagonal system for c, and maps the solution back
// through R.
func SolveSystem(a Matrix, b Vector) (Vector, bool) {
	snf := SmithNormal(a)
	h := a.Rows()
	w := a.Cols()
	c := LinearTransform(snf.L, b)

	for i := 0; i < h; i++ {
		d := snf.D[i][i]
		if d == 0 {
			if c[i] != 0 {
				return nil, false
			}
			continue
		}
		if c[i]%d != 0 {
			return nil, false
		}
		c[i] /= d
	}

	padded := make(Vector, w)
	copy(padded, c)
	return LinearTransform(snf.R, padded), true
}
