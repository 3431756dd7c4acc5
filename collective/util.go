package collective

import "strconv"

func itoa(i int) string { return strconv.Itoa(i) }

// segment returns the k-th of n equal parts of buf.
func segment(buf []float64, k, size int) []float64 {
	return buf[k*size : (k+1)*size]
}
