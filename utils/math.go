package utils

func ConstArray(N int, val float64) (v []float64) {
	v = make([]float64, N)
	for i := range v {
		v[i] = val
	}
	return
}

// Linspace returns N equally spaced values over [min, max], or the midpoint when N == 1
func Linspace(min, max float64, N int) (v []float64) {
	switch {
	case N <= 0:
		return nil
	case N == 1:
		return []float64{0.5 * (min + max)}
	}
	v = make([]float64, N)
	dx := (max - min) / float64(N-1)
	for i := range v {
		v[i] = min + float64(i)*dx
	}
	v[N-1] = max
	return
}

// SqDist is the squared Euclidean distance between a and b
func SqDist(a, b []float64) (d float64) {
	for i := range a {
		dx := a[i] - b[i]
		d += dx * dx
	}
	return
}

// Flatten packs a ragged-free 2D slice row-major
func Flatten(X [][]float64) (v []float64) {
	if len(X) == 0 {
		return nil
	}
	v = make([]float64, 0, len(X)*len(X[0]))
	for _, row := range X {
		v = append(v, row...)
	}
	return
}

// Reshape is the inverse of Flatten
func Reshape(v []float64, nc int) (X [][]float64) {
	nr := len(v) / nc
	X = make([][]float64, nr)
	for i := range X {
		X[i] = v[i*nc : (i+1)*nc]
	}
	return
}
