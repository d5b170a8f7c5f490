package throttle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/codeGROOVE-dev/scholarmatch/pkg/entity"
)

var errBoom = errors.New("boom")

func fastPolicy(attempts uint) Policy {
	return Policy{Attempts: attempts, Delay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Backoff: true}
}

func TestDoRetriesTransientUpToBudget(t *testing.T) {
	for _, attempts := range []uint{1, 2, 4} {
		calls := 0
		err := Do(context.Background(), fastPolicy(attempts), nil, func(context.Context) error {
			calls++
			return entity.Transient(errBoom)
		})
		if calls != int(attempts) {
			t.Errorf("attempts=%d: fn called %d times", attempts, calls)
		}
		if !errors.Is(err, entity.ErrPermanent) {
			t.Errorf("attempts=%d: err = %v, want ErrPermanent", attempts, err)
		}
		if entity.IsTransient(err) {
			t.Errorf("attempts=%d: exhausted error still classified transient", attempts)
		}
		if !errors.Is(err, errBoom) {
			t.Errorf("attempts=%d: last error not wrapped: %v", attempts, err)
		}
	}
}

func TestDoStopsOnPermanent(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(5), nil, func(context.Context) error {
		calls++
		return entity.Permanent(errBoom)
	})
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
	if !errors.Is(err, entity.ErrPermanent) || !errors.Is(err, errBoom) {
		t.Errorf("err = %v", err)
	}
}

func TestDoStopsOnUnclassified(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(5), nil, func(context.Context) error {
		calls++
		return errBoom
	})
	if calls != 1 || !errors.Is(err, errBoom) {
		t.Errorf("calls = %d, err = %v", calls, err)
	}
}

func TestDoRecovers(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(4), nil, func(context.Context) error {
		calls++
		if calls < 3 {
			return entity.Transient(errBoom)
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Errorf("calls = %d, err = %v, want 3, nil", calls, err)
	}
}

func TestLimiterSpacesCalls(t *testing.T) {
	l := NewLimiter(50, nil) // 20ms interval
	if got := l.Interval(); got != 20*time.Millisecond {
		t.Fatalf("Interval() = %v, want 20ms", got)
	}

	ctx := context.Background()
	start := time.Now()
	var wg sync.WaitGroup
	for range 5 {
		wg.Go(func() {
			if err := l.Wait(ctx); err != nil {
				t.Errorf("Wait: %v", err)
			}
		})
	}
	wg.Wait()
	if elapsed := time.Since(start); elapsed < 75*time.Millisecond {
		t.Errorf("5 calls finished in %v, want at least 4 intervals", elapsed)
	}
}

func TestLimiterDisabled(t *testing.T) {
	l := NewLimiter(0, nil)
	start := time.Now()
	for range 100 {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("disabled limiter took %v", elapsed)
	}
}

func TestLimiterHonorsContext(t *testing.T) {
	l := NewLimiter(0.5, nil) // one call every 2s
	if err := l.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait = %v, want deadline exceeded", err)
	}
}

func TestLimiterCancelReleasesSlot(t *testing.T) {
	base := time.Now()
	l := NewLimiter(0.5, nil) // 2s interval
	l.now = func() time.Time { return base }
	nextSlot := func() time.Time {
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.next[""]
	}

	if err := l.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait = %v, want deadline exceeded", err)
	}
	if got, want := nextSlot(), base.Add(2*time.Second); !got.Equal(want) {
		t.Errorf("after cancel next slot = %v, want %v", got.Sub(base), want.Sub(base))
	}

	// A cancelled waiter with a caller queued behind it keeps the queue intact.
	early, cancelEarly := context.WithCancel(context.Background())
	late, cancelLate := context.WithCancel(context.Background())
	defer cancelLate()
	earlyDone := make(chan error, 1)
	go func() { earlyDone <- l.Wait(early) }()
	for !nextSlot().Equal(base.Add(4 * time.Second)) {
		time.Sleep(time.Millisecond)
	}
	lateDone := make(chan error, 1)
	go func() { lateDone <- l.Wait(late) }()
	for !nextSlot().Equal(base.Add(6 * time.Second)) {
		time.Sleep(time.Millisecond)
	}

	cancelEarly()
	if err := <-earlyDone; !errors.Is(err, context.Canceled) {
		t.Fatalf("early Wait = %v, want canceled", err)
	}
	if got := nextSlot(); !got.Equal(base.Add(6 * time.Second)) {
		t.Errorf("non-final cancel moved next slot to %v", got.Sub(base))
	}
	cancelLate()
	if err := <-lateDone; !errors.Is(err, context.Canceled) {
		t.Fatalf("late Wait = %v, want canceled", err)
	}
	if got := nextSlot(); !got.Equal(base.Add(4 * time.Second)) {
		t.Errorf("final cancel left next slot at %v, want 4s", got.Sub(base))
	}
}

func TestLimiterHostOverride(t *testing.T) {
	l := NewLimiter(0.5, nil)
	l.SetHostInterval("fast.example", 0)
	if err := l.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	for range 3 {
		if err := l.WaitHost(ctx, "fast.example"); err != nil {
			t.Fatalf("override host waited on default clock: %v", err)
		}
	}
}

func TestSourceRetriesAndPaces(t *testing.T) {
	var calls int
	fake := entity.SourceFunc(func(_ context.Context, req entity.SearchRequest) (*entity.Page, error) {
		calls++
		if calls == 1 {
			return nil, entity.Transient(errBoom)
		}
		return &entity.Page{Records: []entity.Record{{ID: "X", DisplayName: req.Text}}}, nil
	})
	src := NewSource(fake, New(NewLimiter(1000, nil), fastPolicy(3), nil))

	page, err := src.Search(context.Background(), entity.SearchRequest{Kind: entity.Person, Text: "Jane"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if len(page.Records) != 1 || page.Records[0].DisplayName != "Jane" {
		t.Errorf("page = %+v", page)
	}
}

func TestSourceSurfacesPermanent(t *testing.T) {
	var calls int
	fake := entity.SourceFunc(func(context.Context, entity.SearchRequest) (*entity.Page, error) {
		calls++
		return nil, entity.Transient(errBoom)
	})
	src := NewSource(fake, New(nil, fastPolicy(3), nil))

	page, err := src.Search(context.Background(), entity.SearchRequest{Kind: entity.Institution, Text: "MIT"})
	if page != nil {
		t.Errorf("page = %+v, want nil", page)
	}
	if calls != 3 || !errors.Is(err, entity.ErrPermanent) {
		t.Errorf("calls = %d, err = %v", calls, err)
	}
}
