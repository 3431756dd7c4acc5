// Package collective
// Author: momentics <momentics@gmail.com>
//
// Shared-memory collective communication built from doorbells: a
// hierarchical barrier, point-to-point Send/Wait, ring all-reduce,
// binary-tree reduce, linear scatter and gather, and all-to-all.
//
// Every collective is constructed once per lane with all of its buffers
// and doorbells allocated up front, one arena entry per node. Each
// participant then calls Run with its node id and a caller-supplied round
// that strictly increases across calls starting at 1. Rounds are never
// reset; tokens derived from them keep a late reader from passing on a
// previous round's signal.
//
// apply selects real data movement and reduction; without it only
// synthetic values and doorbells move, isolating signaling cost.
package collective
