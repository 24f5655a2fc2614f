// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Length-prefixed framing codecs for the transport engine.
//
// Codecs are stateless and shared by every session of a listener; the
// engine keeps per-connection decode progress. Decoding is resumable: an
// Incomplete result consumes nothing, so the next read fragment retries from
// the same offset, and a Desynced result asks the caller to skip one byte
// and retry, which realigns the stream after garbage.
//
// Two wire formats are provided:
//   - "attachment" (canonical): magic(1)=0x76 | attachmentLen(4) | dataLen(4) | attachment | data
//   - "fixed-magic": magic(4)=0x00000076 | length(4) | payload
//
// All integers are big-endian. Codecs are resolved by name through a
// Registry built once at startup.
package protocol
