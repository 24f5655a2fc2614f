package protocol_test

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/momentics/hioload-aio/api"
	"github.com/momentics/hioload-aio/protocol"
)

// decodeStream feeds chunks one by one the way the engine does: append to
// a pending buffer, decode every complete frame, keep the rest.
func decodeStream(t *testing.T, p api.Protocol, chunks [][]byte) []api.Frame {
	t.Helper()
	var (
		pending []byte
		out     []api.Frame
	)
	for _, c := range chunks {
		pending = append(pending, c...)
		for {
			res, skipped, err := protocol.Next(p, pending)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			pending = pending[skipped:]
			if res.Status != api.Complete {
				break
			}
			out = append(out, res.Frame)
			pending = pending[res.Consumed:]
		}
	}
	return out
}

func mustEncode(t *testing.T, p api.Protocol, frames ...api.Frame) []byte {
	t.Helper()
	var wire []byte
	for _, f := range frames {
		var err error
		if wire, err = p.Encode(wire, f); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	return wire
}

func sameFrames(a, b []api.Frame) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !bytes.Equal(a[i].Attachment, b[i].Attachment) || !bytes.Equal(a[i].Data, b[i].Data) {
			return false
		}
	}
	return true
}

func TestAttachmentRoundTrip(t *testing.T) {
	codec := protocol.NewAttachmentCodec(64)
	cases := []api.Frame{
		{},
		{Data: []byte("hi")},
		{Attachment: []byte("meta"), Data: []byte("payload")},
		{Attachment: bytes.Repeat([]byte{1}, 32), Data: bytes.Repeat([]byte{2}, 32)},
	}
	for i, f := range cases {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			wire := mustEncode(t, codec, f)
			res, err := codec.Decode(wire)
			if err != nil {
				t.Fatal(err)
			}
			if res.Status != api.Complete || res.Consumed != len(wire) {
				t.Fatalf("status %v consumed %d of %d", res.Status, res.Consumed, len(wire))
			}
			if !sameFrames([]api.Frame{res.Frame}, []api.Frame{f}) {
				t.Errorf("got %+v, want %+v", res.Frame, f)
			}
		})
	}
}

func TestDecodeSkipsGarbage(t *testing.T) {
	codec := protocol.NewAttachmentCodec(1024)
	wire := []byte{0xFF, 0xFF, 0xFF, protocol.Magic, 0, 0, 0, 0, 0, 0, 0, 2, 'h', 'i'}

	res, skipped, err := protocol.Next(codec, wire)
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 3 {
		t.Errorf("skipped = %d, want 3", skipped)
	}
	if res.Status != api.Complete || string(res.Frame.Data) != "hi" || len(res.Frame.Attachment) != 0 {
		t.Errorf("got %v %+v", res.Status, res.Frame)
	}
}

func TestDecodeHeaderThenPayload(t *testing.T) {
	codec := protocol.NewAttachmentCodec(1024)
	wire := mustEncode(t, codec, api.Frame{Data: []byte("hello")})
	header, payload := wire[:protocol.HeaderLen], wire[protocol.HeaderLen:]

	res, err := codec.Decode(header)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != api.Incomplete || res.Consumed != 0 || res.Need != len(wire) {
		t.Fatalf("after header: %+v", res)
	}
	res, err = codec.Decode(append(append([]byte(nil), header...), payload...))
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != api.Complete || string(res.Frame.Data) != "hello" {
		t.Fatalf("after payload: %+v", res)
	}
}

func TestEncodeContentTooLarge(t *testing.T) {
	codec := protocol.NewAttachmentCodec(10)
	f := api.Frame{Attachment: make([]byte, 6), Data: make([]byte, 6)}
	dst := []byte("keep")
	out, err := codec.Encode(dst, f)
	if !errors.Is(err, api.ErrContentTooLarge) {
		t.Fatalf("got %v, want ErrContentTooLarge", err)
	}
	if size, ok := api.ContentSize(err); !ok || size != 12 {
		t.Errorf("reported size = %d (%v), want 12", size, ok)
	}
	if string(out) != "keep" {
		t.Errorf("encode wrote %q before failing", out)
	}
}

func TestDecodeContentTooLarge(t *testing.T) {
	big := protocol.NewAttachmentCodec(100)
	wire := mustEncode(t, big, api.Frame{Data: make([]byte, 50)})

	_, err := protocol.NewAttachmentCodec(10).Decode(wire)
	if size, ok := api.ContentSize(err); !ok || size != 50 {
		t.Fatalf("got %v", err)
	}
}

func TestFragmentationIndependence(t *testing.T) {
	codec := protocol.NewAttachmentCodec(256)
	frames := []api.Frame{
		{Data: []byte("alpha")},
		{Attachment: []byte("k"), Data: []byte("beta")},
		{},
		{Attachment: []byte("xyz")},
	}
	wire := append([]byte{0x00, 0x13}, mustEncode(t, codec, frames...)...)
	whole := decodeStream(t, codec, [][]byte{wire})
	if !sameFrames(whole, frames) {
		t.Fatalf("whole decode = %+v", whole)
	}

	for size := 1; size <= len(wire); size++ {
		var chunks [][]byte
		for off := 0; off < len(wire); off += size {
			end := off + size
			if end > len(wire) {
				end = len(wire)
			}
			chunks = append(chunks, wire[off:end])
		}
		if got := decodeStream(t, codec, chunks); !sameFrames(got, whole) {
			t.Fatalf("chunk size %d: got %+v", size, got)
		}
	}
}

func TestDecodedFrameDoesNotAliasInput(t *testing.T) {
	codec := protocol.NewAttachmentCodec(64)
	wire := mustEncode(t, codec, api.Frame{Attachment: []byte("a"), Data: []byte("b")})
	res, _ := codec.Decode(wire)
	for i := range wire {
		wire[i] = 0
	}
	if string(res.Frame.Attachment) != "a" || string(res.Frame.Data) != "b" {
		t.Errorf("frame mutated with input: %+v", res.Frame)
	}
}

func TestFixedMagicCodec(t *testing.T) {
	codec := protocol.NewFixedMagicCodec(64)
	wire := mustEncode(t, codec, api.Frame{Data: []byte("one")}, api.Frame{Data: []byte("two")})
	noisy := append([]byte{0x76, 0x01, 0x02}, wire...)

	got := decodeStream(t, codec, [][]byte{noisy[:5], noisy[5:11], noisy[11:]})
	want := []api.Frame{{Data: []byte("one")}, {Data: []byte("two")}}
	if !sameFrames(got, want) {
		t.Fatalf("got %+v", got)
	}

	if _, err := codec.Encode(nil, api.Frame{Attachment: []byte("x")}); !errors.Is(err, api.ErrNotSupported) {
		t.Errorf("attachment encode: %v", err)
	}
	if _, err := codec.Encode(nil, api.Frame{Data: make([]byte, 65)}); !errors.Is(err, api.ErrContentTooLarge) {
		t.Errorf("oversized encode: %v", err)
	}
}

func TestRegistry(t *testing.T) {
	reg := protocol.DefaultRegistry()
	if names := reg.Names(); len(names) != 2 || names[0] != protocol.NameAttachment || names[1] != protocol.NameFixedMagic {
		t.Fatalf("names = %v", names)
	}
	p, err := reg.Resolve(" Attachment ", 99)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != protocol.NameAttachment || p.MaxContentLength() != 99 {
		t.Errorf("resolved %s/%d", p.Name(), p.MaxContentLength())
	}
	if _, err := reg.Resolve("nope", 1); !errors.Is(err, api.ErrNotFound) {
		t.Errorf("unknown codec: %v", err)
	}
	if err := reg.Register(protocol.NameAttachment, func(int) api.Protocol { return nil }); !errors.Is(err, protocol.ErrCodecExists) {
		t.Errorf("duplicate: %v", err)
	}
	if err := reg.Register("x", nil); !errors.Is(err, protocol.ErrCodecNil) {
		t.Errorf("nil factory: %v", err)
	}
}

func TestGlobalLookup(t *testing.T) {
	p, err := protocol.Lookup(protocol.NameFixedMagic, 16)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*protocol.FixedMagicCodec); !ok {
		t.Errorf("got %T", p)
	}
}
