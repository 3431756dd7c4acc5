// File: collective/sendrecv.go
// Author: momentics <momentics@gmail.com>

package collective

import (
	"github.com/momentics/hioload-coll/api"
	"github.com/momentics/hioload-coll/internal/doorbell"
)

// Send writes src into dst every stride words and then rings bell with
// token. A synthetic payload writes the word index instead of copying.
// The doorbell store orders the payload before the signal.
func Send(src api.Payload, dst []float64, bell *doorbell.Cell, token uint64, stride int) {
	if stride < 1 {
		stride = 1
	}
	if data := src.Data(); src.IsReal() {
		n := min(len(data), len(dst))
		if stride == 1 {
			copy(dst[:n], data[:n])
		} else {
			for i := 0; i < n; i += stride {
				dst[i] = data[i]
			}
		}
	} else {
		for i := 0; i < len(dst); i += stride {
			dst[i] = float64(i)
		}
	}
	bell.Set(token)
}

// Wait blocks until bell carries token.
func Wait(bell *doorbell.Cell, token uint64) { bell.Wait(token) }

// Add accumulates src into dst elementwise.
func Add(src, dst []float64) {
	n := min(len(src), len(dst))
	for i := 0; i < n; i++ {
		dst[i] += src[i]
	}
}
