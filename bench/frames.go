// File: bench/frames.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Synthetic frame pool shared by the histogram kernels. Node 0 builds the
// pool and every other node keeps its own copy.

package bench

import (
	"github.com/momentics/hioload-coll/api"
	"github.com/momentics/hioload-coll/control"
)

// scanStride models coalesced access to the frame pool.
const scanStride = 8

func frameValue(i int) uint64 { return uint64(i) * 53 }

func buildFrames(env *Env) ([][]uint64, error) {
	o := env.Opts
	src, err := env.Alloc.Uint64s(api.RegionPlain, o.Frames*o.FrameSize, 0)
	if err != nil {
		return nil, err
	}
	for i := range src {
		src[i] = frameValue(i)
	}
	env.Log.Debug().Int("frames", o.Frames).Msg("node[0] built frames")
	frames := make([][]uint64, o.Nodes)
	frames[0] = src
	for n := 1; n < o.Nodes; n++ {
		if frames[n], err = env.Alloc.Uint64s(api.RegionPlain, len(src), n); err != nil {
			return nil, err
		}
		copy(frames[n], src)
		env.Log.Debug().Int("node", n).Msg("copied frames")
	}
	return frames, nil
}

// frameItem numbers the work of (node, thread) in 1-based round r.
func frameItem(o *control.Options, r uint64, node, thread int) int {
	return int(r-1)*o.Nodes*o.Threads + node*o.Threads + thread
}
