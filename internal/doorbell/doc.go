// File: internal/doorbell/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Doorbells are single-writer, multi-reader polled words used for
// round-based signaling. A writer publishes its payload with plain stores
// and then sets the doorbell; the atomic store/load pair orders the payload
// before the flag for every waiter that observes the token.
//
// Tokens change every round. Forward signals use the round r, reverse
// signals use Neg(r), so a late reader never passes on a stale value.
// A Wait with no matching Set never returns.
package doorbell
