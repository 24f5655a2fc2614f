// File: protocol/attachment.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Canonical codec: one magic byte followed by attachment and data lengths.

package protocol

import (
	"encoding/binary"

	"github.com/momentics/hioload-aio/api"
)

const (
	// Magic marks the start of every attachment-codec frame.
	Magic byte = 0x76
	// HeaderLen is magic + attachment length + data length.
	HeaderLen = 1 + 4 + 4

	// NameAttachment is the registry name of AttachmentCodec.
	NameAttachment = "attachment"
)

// AttachmentCodec implements api.Protocol for the canonical wire format.
type AttachmentCodec struct {
	maxContent int
}

// NewAttachmentCodec returns a codec enforcing maxContent bytes of
// attachment+data per frame.
func NewAttachmentCodec(maxContent int) *AttachmentCodec {
	return &AttachmentCodec{maxContent: maxContent}
}

var _ api.Protocol = (*AttachmentCodec)(nil)

func (c *AttachmentCodec) Name() string          { return NameAttachment }
func (c *AttachmentCodec) MaxContentLength() int { return c.maxContent }

// Decode parses one frame at the head of data.
func (c *AttachmentCodec) Decode(data []byte) (api.DecodeResult, error) {
	if len(data) < HeaderLen {
		return api.DecodeResult{Status: api.Incomplete}, nil
	}
	if data[0] != Magic {
		return api.DecodeResult{Status: api.Desynced, Consumed: 1}, nil
	}
	attLen := binary.BigEndian.Uint32(data[1:5])
	dataLen := binary.BigEndian.Uint32(data[5:9])
	content := uint64(attLen) + uint64(dataLen)
	if content > uint64(c.maxContent) {
		return api.DecodeResult{}, api.ContentTooLarge(int(content), c.maxContent)
	}
	total := HeaderLen + int(content)
	if len(data) < total {
		return api.DecodeResult{Status: api.Incomplete, Need: total}, nil
	}
	body := data[HeaderLen:total]
	f := api.Frame{
		Attachment: clone(body[:attLen]),
		Data:       clone(body[attLen:]),
	}
	return api.DecodeResult{Status: api.Complete, Frame: f, Consumed: total}, nil
}

// Encode appends magic, both lengths, attachment and data to dst.
func (c *AttachmentCodec) Encode(dst []byte, f api.Frame) ([]byte, error) {
	if size := f.Size(); size > c.maxContent {
		return dst, api.ContentTooLarge(size, c.maxContent)
	}
	var hdr [HeaderLen]byte
	hdr[0] = Magic
	binary.BigEndian.PutUint32(hdr[1:5], uint32(len(f.Attachment)))
	binary.BigEndian.PutUint32(hdr[5:9], uint32(len(f.Data)))
	dst = append(dst, hdr[:]...)
	dst = append(dst, f.Attachment...)
	return append(dst, f.Data...), nil
}

// clone copies b so decoded frames never alias pooled memory.
func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
