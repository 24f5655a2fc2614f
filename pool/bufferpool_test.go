package pool

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-aio/api"
)

func newTestPool(t *testing.T, opts Options) *PagePool {
	t.Helper()
	opts.Logger = zerolog.Nop()
	if opts.SweepInterval == 0 {
		opts.SweepInterval = time.Hour
	}
	p, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(p.Disable)
	return p
}

func TestAllocateRoundRobinAndDisable(t *testing.T) {
	p := newTestPool(t, Options{PageSize: 4096, PageCount: 2})

	var got []int
	for i := 0; i < 3; i++ {
		b, err := p.Allocate(512)
		if err != nil {
			t.Fatalf("allocate %d: %v", i, err)
		}
		got = append(got, b.page)
	}
	want := []int{0, 1, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("page sequence = %v, want %v", got, want)
		}
	}

	p.Disable()
	if _, err := p.Allocate(512); !errors.Is(err, api.ErrPoolDisabled) {
		t.Fatalf("allocate after disable: got %v, want ErrPoolDisabled", err)
	}
}

func TestAllocateFallsThroughFullPage(t *testing.T) {
	p := newTestPool(t, Options{PageSize: 1024, PageCount: 2})

	a, err := p.Allocate(1024) // fills page 0
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Allocate(1024); err != nil { // fills page 1
		t.Fatal(err)
	}
	if _, err := p.Allocate(1); !errors.Is(err, api.ErrPoolExhausted) {
		t.Fatalf("got %v, want ErrPoolExhausted", err)
	}
	a.Release()
	b, err := p.Allocate(1024)
	if err != nil {
		t.Fatalf("allocate after release: %v", err)
	}
	if b.page != 0 {
		t.Errorf("reused page = %d, want 0", b.page)
	}
}

func TestSharedPageOverflow(t *testing.T) {
	p := newTestPool(t, Options{PageSize: 256, PageCount: 1, SharedPageSize: 512})

	if _, err := p.Allocate(256); err != nil {
		t.Fatal(err)
	}
	b, err := p.Allocate(300)
	if err != nil {
		t.Fatalf("shared allocation: %v", err)
	}
	if b.page != 1 {
		t.Errorf("page = %d, want shared page index 1", b.page)
	}
}

func TestBoundedMemory(t *testing.T) {
	const pageSize, pageCount = 4096, 4
	p := newTestPool(t, Options{PageSize: pageSize, PageCount: pageCount})

	var (
		mu   sync.Mutex
		live []*Buffer
		wg   sync.WaitGroup
	)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				b, err := p.Allocate(64 + (seed*37+i*13)%700)
				if err == nil {
					mu.Lock()
					live = append(live, b)
					mu.Unlock()
				}
				if st := p.Stats(); st.InUse > pageSize*pageCount {
					t.Errorf("in use %d exceeds %d", st.InUse, pageSize*pageCount)
				}
				if i%3 == 0 {
					mu.Lock()
					if len(live) > 0 {
						live[0].Release()
						live = live[1:]
					}
					mu.Unlock()
				}
			}
		}(g)
	}
	wg.Wait()
	for _, b := range live {
		b.Release()
	}
	if st := p.Stats(); st.InUse != 0 || st.Live != 0 {
		t.Errorf("after release: in use %d, live %d", st.InUse, st.Live)
	}
}

func TestBufferCursorsAndRelease(t *testing.T) {
	p := newTestPool(t, Options{PageSize: 1024, PageCount: 1})
	b, err := p.Allocate(16)
	if err != nil {
		t.Fatal(err)
	}
	if n, err := b.Append([]byte("hello world")); n != 11 || err != nil {
		t.Fatalf("append = %d, %v", n, err)
	}
	b.Consume(6)
	if string(b.Readable()) != "world" {
		t.Fatalf("readable = %q", b.Readable())
	}
	b.Compact()
	if b.Free() != 11 {
		t.Errorf("free after compact = %d, want 11", b.Free())
	}

	b.Release()
	b.Release()
	if !b.Released() || b.Cap() != 0 || b.Readable() != nil || b.Writable() != nil {
		t.Error("released buffer still exposes memory")
	}
	if _, err := b.Append([]byte("x")); !errors.Is(err, api.ErrBufferReleased) {
		t.Errorf("append after release: %v", err)
	}
	if st := p.Stats(); st.Releases != 1 || st.Live != 0 {
		t.Errorf("double release leaked: %+v", st)
	}
}

func TestTryCleanCoalescesIdleRegions(t *testing.T) {
	p := newTestPool(t, Options{PageSize: 1024, PageCount: 1})
	var bufs []*Buffer
	for i := 0; i < 4; i++ {
		b, err := p.Allocate(256)
		if err != nil {
			t.Fatal(err)
		}
		bufs = append(bufs, b)
	}
	for _, b := range bufs {
		b.Release()
	}
	p.sweepOnce()
	pg := p.pages[0]
	pg.mu.Lock()
	free := append([]region(nil), pg.free...)
	idle := len(pg.idle)
	pg.mu.Unlock()
	if idle != 0 || len(free) != 1 || free[0].size != 1024 {
		t.Fatalf("free = %+v idle = %d, want one 1024-byte region", free, idle)
	}
}

func TestDisabledSweepReleasesPages(t *testing.T) {
	p := newTestPool(t, Options{PageSize: 1024, PageCount: 2, SweepInterval: 5 * time.Millisecond})
	b, err := p.Allocate(128)
	if err != nil {
		t.Fatal(err)
	}
	p.Disable()

	select {
	case <-p.Done():
		t.Fatal("pool torn down while a buffer is still checked out")
	case <-time.After(30 * time.Millisecond):
	}

	b.Release()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not release pages")
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	if _, err := New(Options{PageSize: 0, PageCount: 1}); !errors.Is(err, api.ErrInvalidArgument) {
		t.Errorf("got %v", err)
	}
	if _, err := New(Options{PageSize: 1, PageCount: 1, SharedPageSize: -1}); !errors.Is(err, api.ErrInvalidArgument) {
		t.Errorf("got %v", err)
	}
}
