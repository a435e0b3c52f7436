// Package idalloc implements spec.md §4.C1: reserving contiguous id-range
// windows from the storage engine and pipelining the next window in the
// background once the current one runs low, so object creation rarely has
// to wait on the engine synchronously.
package idalloc

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/veloxdb/veloxdb/pkg/velox/log"
)

// ReserveFunc asks the engine for a fresh contiguous range of the given
// size, returning the first id in it (spec.md §6 "reserve_id_range(size) ->
// first_id").
type ReserveFunc func(size uint32) (first uint64, err error)

// Config mirrors the allocator-relevant fields of spec.md §6's session
// configuration.
type Config struct {
	RangeSize       uint32  // id_range_size, default ~5e6
	InitialRequest  uint32  // id_range_request; New defaults it to RangeSize when zero
	RefillWaterMark float64 // id_refill_water_mark, default 0.4
}

type reservedRange struct {
	first uint64
	limit uint64
}

// Allocator reserves contiguous ranges from an engine via reserve and hands
// out sequence numbers from the current range, pipelining the next range in
// the background once the current one's remaining fraction drops below
// RefillWaterMark (spec.md §4.C1, §5).
type Allocator struct {
	reserve ReserveFunc
	cfg     Config

	mu             sync.Mutex // guards current/limit/bgErr
	current, limit uint64
	bgErr          error

	reserveMu     sync.Mutex // at most one inflight engine reservation
	nextRange     *reservedRange
	fetchInFlight atomic.Bool
	everFilled    bool
}

// New returns an allocator with an empty current range; the first Reserve
// call triggers a synchronous fetch.
func New(reserve ReserveFunc, cfg Config) *Allocator {
	if cfg.RangeSize == 0 {
		cfg.RangeSize = 5_000_000
	}
	if cfg.InitialRequest == 0 {
		// No caller-supplied cold-start quantum: the first fill is the same
		// size as every later one.
		cfg.InitialRequest = cfg.RangeSize
	}
	if cfg.RefillWaterMark == 0 {
		cfg.RefillWaterMark = 0.4
	}
	return &Allocator{reserve: reserve, cfg: cfg}
}

// Reserve hands back the first of count contiguous sequence numbers. IDs
// are monotonic while a single range holds; across ranges there is no
// ordering guarantee (spec.md §4.C1 "Orderings").
func (a *Allocator) Reserve(count uint32) (uint64, error) {
	a.mu.Lock()
	if a.bgErr != nil {
		err := a.bgErr
		a.bgErr = nil
		a.mu.Unlock()
		return 0, fmt.Errorf("idalloc: background reservation failed: %w", err)
	}
	if a.limit-a.current >= uint64(count) {
		first := a.current
		a.current += uint64(count)
		a.maybeScheduleBackgroundLocked()
		a.mu.Unlock()
		return first, nil
	}
	a.mu.Unlock()

	if err := a.refillRange(); err != nil {
		return 0, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.limit-a.current < uint64(count) {
		return 0, fmt.Errorf("idalloc: reserved range (%d) smaller than requested count (%d)", a.limit-a.current, count)
	}
	first := a.current
	a.current += uint64(count)
	a.maybeScheduleBackgroundLocked()
	return first, nil
}

// refillRange blocks until the allocator has a current range to serve from,
// either by adopting an already-prefetched one or by performing a
// synchronous engine reservation. Both paths serialize on reserveMu, which
// is also what the background fetch holds — so if a background fetch is
// in flight when refillRange is called, refillRange blocks until it
// finishes and then adopts its result, giving the background fetch
// priority over a duplicate foreground call (spec.md §4.C1 "Tie-break").
func (a *Allocator) refillRange() error {
	a.reserveMu.Lock()
	defer a.reserveMu.Unlock()

	a.mu.Lock()
	if a.nextRange != nil {
		nr := a.nextRange
		a.nextRange = nil
		a.current, a.limit = nr.first, nr.limit
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	// The very first synchronous fill asks for only InitialRequest ids
	// (spec.md §6 id_range_request): a session that creates few objects
	// shouldn't burn a whole RangeSize window. Every later fill — whether
	// this foreground path or the background prefetch — asks for the full
	// RangeSize.
	size := a.cfg.RangeSize
	if !a.everFilled {
		size = a.cfg.InitialRequest
	}

	first, err := a.reserve(size)
	if err != nil {
		return fmt.Errorf("idalloc: reserve range: %w", err)
	}
	a.mu.Lock()
	a.current, a.limit = first, first+uint64(size)
	a.everFilled = true
	a.mu.Unlock()
	return nil
}

// maybeScheduleBackgroundLocked must be called with mu held. It starts a
// background fetch when the current range's remaining fraction drops below
// RefillWaterMark and no fetch is already in flight.
func (a *Allocator) maybeScheduleBackgroundLocked() {
	if a.nextRange != nil {
		return
	}
	remaining := a.limit - a.current
	threshold := uint64(float64(a.cfg.RangeSize) * a.cfg.RefillWaterMark)
	if remaining >= threshold {
		return
	}
	if !a.fetchInFlight.CompareAndSwap(false, true) {
		return
	}
	// reserveMu is taken here and handed to the goroutine, so a refillRange
	// that arrives before the goroutine runs waits for its result.
	if !a.reserveMu.TryLock() {
		a.fetchInFlight.Store(false)
		return
	}
	go a.backgroundFetch()
}

func (a *Allocator) backgroundFetch() {
	defer a.fetchInFlight.Store(false)
	logger := log.WithComponent("idalloc")

	// reserveMu was locked by maybeScheduleBackgroundLocked.
	defer a.reserveMu.Unlock()

	first, err := a.reserve(a.cfg.RangeSize)
	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.bgErr = err
		logger.Error().Err(err).Msg("background id range reservation failed")
		return
	}
	a.nextRange = &reservedRange{first: first, limit: first + uint64(a.cfg.RangeSize)}
	logger.Debug().Uint64("first", first).Msg("prefetched id range")
}
