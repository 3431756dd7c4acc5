// File: api/payload.go
// Author: momentics <momentics@gmail.com>
//
// Send source variant: real data or synthetic signaling.

package api

// Payload selects what a Send writes into the destination buffer.
// The zero value is Synthetic.
type Payload struct {
	data []float64
	real bool
}

// RealPayload copies words from data.
func RealPayload(data []float64) Payload { return Payload{data: data, real: true} }

// Synthetic writes incrementing values instead of copying, isolating
// doorbell cost from payload-copy cost.
func Synthetic() Payload { return Payload{} }

// IsReal reports whether the payload carries data.
func (p Payload) IsReal() bool { return p.real }

// Data returns the source words; nil for Synthetic.
func (p Payload) Data() []float64 { return p.data }

// PayloadIf returns RealPayload(data) when apply is set, Synthetic otherwise.
func PayloadIf(apply bool, data []float64) Payload {
	if apply {
		return RealPayload(data)
	}
	return Synthetic()
}
