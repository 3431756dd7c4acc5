// Package pool
// Author: momentics <momentics@gmail.com>
//
// Memory Region Allocator for hioload-coll.
// Hands out zero-initialized, cache-line aligned regions tagged plain,
// non-temporal or release-ordered, and forwards every allocation to an
// optional api.RegionRegistrar. On Linux regions are anonymous mappings;
// elsewhere they are heap words. See allocator.go and region.go.
package pool
