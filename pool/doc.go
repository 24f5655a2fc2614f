// Package pool
// Author: momentics <momentics@gmail.com>
//
// Page-backed buffer pooling for the transport engine.
//
// A PagePool owns a fixed set of equally sized memory pages (mmap-backed on
// Linux) and lends out sub-regions of them as *Buffer handles. Pages are
// picked round-robin through a lock-free cursor; each page serializes its own
// free list. Released regions are parked on the page and coalesced back into
// contiguous free space by a background sweeper, which also tears all pages
// down after Disable.
//
// A Buffer is owned by exactly one session while checked out. Release
// invalidates the handle: later accessors observe an empty buffer and a
// second Release is a no-op.
package pool
