package crawler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"discord-archive/snowflake"
)

// FetchFunc requests one page of items created strictly after the given
// cursor, in ascending id order (the paginator re-sorts defensively). It is
// the one transport touchpoint of the crawl core.
type FetchFunc[T any] func(ctx context.Context, after int64, limit int) ([]T, error)

type pageResult[T any] struct {
	items []T
	err   error
}

// Paginator drains a cursor-ordered collection into a single ascending,
// gap-free, duplicate-free sequence. It is not restartable; resume by
// constructing a new one with an updated lower bound.
//
// One page is prefetched while the current page is consumed; results are
// resequenced before emission, so consumers observe strictly serial order.
type Paginator[T any] struct {
	ctx   context.Context
	fetch FetchFunc[T]
	id    func(T) int64
	limit int

	cursor  int64
	firstID int64
	end     time.Time

	buf     []T
	idx     int
	cur     T
	err     error
	done    bool
	pending chan pageResult[T]
}

// NewPaginator starts paging items with ids strictly greater than after.
// An after of 0 means "since history began".
func NewPaginator[T any](ctx context.Context, fetch FetchFunc[T], id func(T) int64, after int64, limit int) *Paginator[T] {
	return &Paginator[T]{
		ctx:    ctx,
		fetch:  fetch,
		id:     id,
		limit:  limit,
		cursor: after,
		end:    time.Now().UTC(),
	}
}

// SetEnd overrides the reference point used for progress estimation,
// normally the venue's newest known item time.
func (p *Paginator[T]) SetEnd(t time.Time) {
	if !t.IsZero() {
		p.end = t
	}
}

func (p *Paginator[T]) startFetch() {
	p.pending = make(chan pageResult[T], 1)
	after, limit := p.cursor, p.limit
	go func() {
		items, err := p.fetch(p.ctx, after, limit)
		p.pending <- pageResult[T]{items: items, err: err}
	}()
}

// Scan advances to the next item, blocking on transport when the buffered
// page is exhausted. It returns false at the end of the collection or on
// error; consult Err afterwards.
func (p *Paginator[T]) Scan() bool {
	for {
		if p.err != nil {
			return false
		}
		if p.idx < len(p.buf) {
			p.cur = p.buf[p.idx]
			p.idx++
			return true
		}
		if p.done {
			return false
		}
		if p.pending == nil {
			p.startFetch()
		}
		res := <-p.pending
		p.pending = nil
		if res.err != nil {
			p.err = res.err
			return false
		}
		if len(res.items) == 0 {
			p.done = true
			return false
		}

		items := res.items
		sort.Slice(items, func(i, j int) bool { return p.id(items[i]) < p.id(items[j]) })

		// Every item must lie strictly beyond the request cursor; anything
		// at or below it is a duplicate or a regression and would loop.
		if p.id(items[0]) <= p.cursor {
			p.err = fmt.Errorf("%w: item %d at or below cursor %d", ErrProtocolViolation, p.id(items[0]), p.cursor)
			return false
		}
		if p.firstID == 0 {
			p.firstID = p.id(items[0])
		}
		p.cursor = p.id(items[len(items)-1])

		short := len(items) < p.limit
		if short {
			p.done = true
		} else {
			// Pipeline the next request while the caller consumes this page.
			p.startFetch()
		}
		p.buf = items
		p.idx = 0
	}
}

// Item returns the item produced by the last successful Scan.
func (p *Paginator[T]) Item() T {
	return p.cur
}

// Err returns the first error encountered, if any.
func (p *Paginator[T]) Err() error {
	return p.err
}

// Cursor returns the running cursor: the id of the last item received.
func (p *Paginator[T]) Cursor() int64 {
	return p.cursor
}

// Progress estimates fractional completion from the timestamps encoded in
// the first seen id, the cursor and the end reference. Message density is
// non-uniform, so this is a display estimate only.
func (p *Paginator[T]) Progress() float64 {
	if p.firstID == 0 || p.cursor <= p.firstID {
		return 0
	}
	t0 := snowflake.Time(p.firstID)
	tc := snowflake.Time(p.cursor)
	span := p.end.Sub(t0)
	if span <= 0 {
		return 1
	}
	frac := float64(tc.Sub(t0)) / float64(span)
	if frac < 0 {
		return 0
	}
	if frac > 1 {
		return 1
	}
	return frac
}
