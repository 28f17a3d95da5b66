package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discord-archive/snowflake"
)

func ident(v int64) int64 { return v }

// scriptedFetch serves pages keyed by the requested after cursor and
// records the cursor of every request.
func scriptedFetch(t *testing.T, pages map[int64][]int64) (FetchFunc[int64], *[]int64) {
	t.Helper()
	var requested []int64
	fn := func(ctx context.Context, after int64, limit int) ([]int64, error) {
		requested = append(requested, after)
		page, ok := pages[after]
		require.True(t, ok, "unexpected request for after=%d", after)
		return page, nil
	}
	return fn, &requested
}

func drain(p *Paginator[int64]) []int64 {
	var out []int64
	for p.Scan() {
		out = append(out, p.Item())
	}
	return out
}

func TestPaginatorConcatenatesPages(t *testing.T) {
	fetch, requested := scriptedFetch(t, map[int64][]int64{
		0: {1, 2, 3},
		3: {4, 5},
	})
	p := NewPaginator(context.Background(), fetch, ident, 0, 3)

	assert.Equal(t, []int64{1, 2, 3, 4, 5}, drain(p))
	assert.NoError(t, p.Err())
	assert.Equal(t, int64(5), p.Cursor())
	// The short second page is the last one; no request for after=5.
	assert.Equal(t, []int64{0, 3}, *requested)
}

func TestPaginatorEmptyPageTerminates(t *testing.T) {
	fetch, _ := scriptedFetch(t, map[int64][]int64{
		0: {1, 2, 3},
		3: {},
	})
	p := NewPaginator(context.Background(), fetch, ident, 0, 3)

	assert.Equal(t, []int64{1, 2, 3}, drain(p))
	assert.NoError(t, p.Err())
	assert.Equal(t, int64(3), p.Cursor())
}

func TestPaginatorEmptyCollection(t *testing.T) {
	fetch, _ := scriptedFetch(t, map[int64][]int64{0: {}})
	p := NewPaginator(context.Background(), fetch, ident, 0, 100)

	assert.Empty(t, drain(p))
	assert.NoError(t, p.Err())
}

func TestPaginatorSortsUnorderedPages(t *testing.T) {
	// The remote ordering direction is not trusted.
	fetch, _ := scriptedFetch(t, map[int64][]int64{0: {3, 1, 2}})
	p := NewPaginator(context.Background(), fetch, ident, 0, 100)

	assert.Equal(t, []int64{1, 2, 3}, drain(p))
	assert.Equal(t, int64(3), p.Cursor())
}

func TestPaginatorCursorRegressionFailsBeforeSecondPage(t *testing.T) {
	fetch, _ := scriptedFetch(t, map[int64][]int64{
		0: {1, 2, 3},
		3: {2, 3, 4},
	})
	p := NewPaginator(context.Background(), fetch, ident, 0, 3)

	assert.Equal(t, []int64{1, 2, 3}, drain(p))
	assert.ErrorIs(t, p.Err(), ErrProtocolViolation)
}

func TestPaginatorRepeatedFullPageFails(t *testing.T) {
	// A full-size page of already-known items must not spin forever.
	fetch, _ := scriptedFetch(t, map[int64][]int64{
		0: {1, 2, 3},
		3: {1, 2, 3},
	})
	p := NewPaginator(context.Background(), fetch, ident, 0, 3)

	drain(p)
	assert.ErrorIs(t, p.Err(), ErrProtocolViolation)
}

func TestPaginatorPropagatesFetchError(t *testing.T) {
	boom := assert.AnError
	fetch := func(ctx context.Context, after int64, limit int) ([]int64, error) {
		if after == 0 {
			return []int64{1, 2}, nil
		}
		return nil, boom
	}
	p := NewPaginator(context.Background(), fetch, ident, 0, 2)

	assert.Equal(t, []int64{1, 2}, drain(p))
	assert.ErrorIs(t, p.Err(), boom)
}

func TestPaginatorStartsAfterLowerBound(t *testing.T) {
	fetch, requested := scriptedFetch(t, map[int64][]int64{
		10: {11, 12},
	})
	p := NewPaginator(context.Background(), fetch, ident, 10, 3)

	assert.Equal(t, []int64{11, 12}, drain(p))
	assert.Equal(t, []int64{10}, *requested)
}

func TestPaginatorProgress(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	mid := start.Add(30 * time.Minute)
	end := start.Add(time.Hour)

	first := snowflake.FromTime(start)
	current := snowflake.FromTime(mid)

	fetch := func(ctx context.Context, after int64, limit int) ([]int64, error) {
		if after == 0 {
			return []int64{first, current}, nil
		}
		return nil, nil
	}
	p := NewPaginator(context.Background(), fetch, ident, 0, 100)
	p.SetEnd(end)

	assert.Equal(t, float64(0), p.Progress())
	drain(p)
	assert.InDelta(t, 0.5, p.Progress(), 0.01)
}
