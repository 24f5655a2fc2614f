// File: protocol/fixed_magic.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Alternate codec with a 4-byte magic and a single payload length.

package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/momentics/hioload-aio/api"
)

const (
	// FixedMagic is the 4-byte marker of the fixed-magic codec.
	FixedMagic uint32 = 0x76
	// FixedHeaderLen is magic + length.
	FixedHeaderLen = 4 + 4

	// NameFixedMagic is the registry name of FixedMagicCodec.
	NameFixedMagic = "fixed-magic"
)

// FixedMagicCodec carries Frame.Data only; attachments are rejected.
type FixedMagicCodec struct {
	maxContent int
}

// NewFixedMagicCodec returns a codec enforcing maxContent payload bytes.
func NewFixedMagicCodec(maxContent int) *FixedMagicCodec {
	return &FixedMagicCodec{maxContent: maxContent}
}

var _ api.Protocol = (*FixedMagicCodec)(nil)

func (c *FixedMagicCodec) Name() string          { return NameFixedMagic }
func (c *FixedMagicCodec) MaxContentLength() int { return c.maxContent }

// Decode parses one frame at the head of data.
func (c *FixedMagicCodec) Decode(data []byte) (api.DecodeResult, error) {
	if len(data) < FixedHeaderLen {
		return api.DecodeResult{Status: api.Incomplete}, nil
	}
	if binary.BigEndian.Uint32(data[0:4]) != FixedMagic {
		return api.DecodeResult{Status: api.Desynced, Consumed: 1}, nil
	}
	n := binary.BigEndian.Uint32(data[4:8])
	if uint64(n) > uint64(c.maxContent) {
		return api.DecodeResult{}, api.ContentTooLarge(int(n), c.maxContent)
	}
	total := FixedHeaderLen + int(n)
	if len(data) < total {
		return api.DecodeResult{Status: api.Incomplete, Need: total}, nil
	}
	f := api.Frame{Data: clone(data[FixedHeaderLen:total])}
	return api.DecodeResult{Status: api.Complete, Frame: f, Consumed: total}, nil
}

// Encode appends the 4-byte magic, the payload length and the payload.
func (c *FixedMagicCodec) Encode(dst []byte, f api.Frame) ([]byte, error) {
	if len(f.Attachment) > 0 {
		return dst, fmt.Errorf("protocol: %s carries no attachment: %w", NameFixedMagic, api.ErrNotSupported)
	}
	if len(f.Data) > c.maxContent {
		return dst, api.ContentTooLarge(len(f.Data), c.maxContent)
	}
	var hdr [FixedHeaderLen]byte
	binary.BigEndian.PutUint32(hdr[0:4], FixedMagic)
	binary.BigEndian.PutUint32(hdr[4:8], uint32(len(f.Data)))
	dst = append(dst, hdr[:]...)
	return append(dst, f.Data...), nil
}
