// File: protocol/scan.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import "github.com/momentics/hioload-aio/api"

// Next decodes the first frame in data, skipping bytes for as long as the
// codec reports Desynced. skipped counts the discarded bytes; the returned
// result is never Desynced. Callers drop skipped+res.Consumed bytes.
func Next(p api.Protocol, data []byte) (res api.DecodeResult, skipped int, err error) {
	for {
		res, err = p.Decode(data[skipped:])
		if err != nil || res.Status != api.Desynced {
			return res, skipped, err
		}
		step := res.Consumed
		if step <= 0 {
			step = 1
		}
		skipped += step
	}
}
