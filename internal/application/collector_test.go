package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/zalo-accounts/internal/logger"
)

type item struct{ id string }

func itemID(i item) string { return i.id }

func pageOf(hasMore bool, ids ...string) Page[item] {
	items := make([]item, 0, len(ids))
	for _, id := range ids {
		items = append(items, item{id: id})
	}
	return Page[item]{Items: items, HasMore: hasMore}
}

func newTestCollector(maxPages int) (*Collector, *fakeClock) {
	clock := newFakeClock()
	return NewCollector(clock, logger.Discard(), CollectOptions{MaxPages: maxPages, PageDelay: DefaultPageDelay}), clock
}

func TestCollectStopsWhenUpstreamReportsNoMore(t *testing.T) {
	collector, clock := newTestCollector(20)
	pages := []Page[item]{
		pageOf(true, "a", "b"),
		pageOf(true, "c", "b"),
		pageOf(false, "d"),
	}

	fetches := 0
	got, err := Collect(context.Background(), collector, func(_ context.Context, page int) (Page[item], error) {
		fetches++
		return pages[page], nil
	}, itemID)
	require.NoError(t, err)

	assert.Equal(t, 3, fetches)
	assert.Equal(t, 3, got.Fetches)
	assert.Equal(t, []item{{"a"}, {"b"}, {"c"}, {"d"}}, got.Items)
	assert.Equal(t, 4, got.Total)
	assert.False(t, got.Partial)
	assert.Equal(t, StopExhausted, got.StopReason)
	assert.Equal(t, []time.Duration{DefaultPageDelay, DefaultPageDelay}, clock.Sleeps())
}

func TestCollectPageZeroErrorIsReturned(t *testing.T) {
	collector, _ := newTestCollector(20)
	boom := errors.New("upstream down")

	_, err := Collect(context.Background(), collector, func(context.Context, int) (Page[item], error) {
		return Page[item]{}, boom
	}, itemID)
	require.ErrorIs(t, err, boom)
}

func TestCollectEmptyFirstPage(t *testing.T) {
	collector, clock := newTestCollector(20)

	got, err := Collect(context.Background(), collector, func(context.Context, int) (Page[item], error) {
		return Page[item]{HasMore: true}, nil
	}, itemID)
	require.NoError(t, err)

	assert.Empty(t, got.Items)
	assert.Equal(t, 1, got.Fetches)
	assert.Zero(t, got.Total)
	assert.Empty(t, clock.Sleeps())
}

func TestCollectRepeatedLeadingIDStops(t *testing.T) {
	collector, _ := newTestCollector(20)

	fetches := 0
	got, err := Collect(context.Background(), collector, func(_ context.Context, page int) (Page[item], error) {
		fetches++
		return pageOf(true, "same", fmt.Sprintf("x%d", page)), nil
	}, itemID)
	require.NoError(t, err)

	assert.Equal(t, 2, fetches)
	assert.Equal(t, StopRepeated, got.StopReason)
	assert.Equal(t, []item{{"same"}, {"x0"}}, got.Items)
}

func TestCollectNeverExceedsPageCap(t *testing.T) {
	collector, _ := newTestCollector(5)

	fetches := 0
	got, err := Collect(context.Background(), collector, func(_ context.Context, page int) (Page[item], error) {
		fetches++
		return pageOf(true, fmt.Sprintf("lead-%d", page)), nil
	}, itemID)
	require.NoError(t, err)

	assert.Equal(t, 6, fetches)
	assert.Len(t, got.Items, 6)
	assert.Equal(t, StopPageCap, got.StopReason)
	assert.False(t, got.Partial)
}

func TestCollectDefaultCapIsTwentyFollowUps(t *testing.T) {
	collector := NewCollector(newFakeClock(), logger.Discard(), CollectOptions{})

	fetches := 0
	_, err := Collect(context.Background(), collector, func(_ context.Context, page int) (Page[item], error) {
		fetches++
		return pageOf(true, fmt.Sprintf("lead-%d", page)), nil
	}, itemID)
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxPages+1, fetches)
}

func TestCollectFollowUpErrorKeepsPartialResult(t *testing.T) {
	collector, _ := newTestCollector(20)
	boom := errors.New("rate limited")

	got, err := Collect(context.Background(), collector, func(_ context.Context, page int) (Page[item], error) {
		if page == 2 {
			return Page[item]{}, boom
		}
		return pageOf(true, fmt.Sprintf("p%d", page)), nil
	}, itemID)
	require.NoError(t, err)

	assert.True(t, got.Partial)
	assert.Equal(t, StopFetchError, got.StopReason)
	assert.ErrorIs(t, got.Err, boom)
	assert.Equal(t, []item{{"p0"}, {"p1"}}, got.Items)
}

func TestCollectEmptyFollowUpPageStops(t *testing.T) {
	collector, _ := newTestCollector(20)

	got, err := Collect(context.Background(), collector, func(_ context.Context, page int) (Page[item], error) {
		if page == 0 {
			return pageOf(true, "a"), nil
		}
		return pageOf(true), nil
	}, itemID)
	require.NoError(t, err)

	assert.Equal(t, 2, got.Fetches)
	assert.Equal(t, StopEmptyPage, got.StopReason)
}

func TestCollectTotalPrefersLargestReported(t *testing.T) {
	collector, _ := newTestCollector(20)
	pages := []Page[item]{
		{Items: []item{{"a"}}, HasMore: true, Total: 120},
		{Items: []item{{"b"}}, HasMore: false, Total: 121},
	}

	got, err := Collect(context.Background(), collector, func(_ context.Context, page int) (Page[item], error) {
		return pages[page], nil
	}, itemID)
	require.NoError(t, err)

	assert.Equal(t, 121, got.Total)
	assert.Len(t, got.Items, 2)
}

func TestCollectCanceledContextDuringDelay(t *testing.T) {
	collector, _ := newTestCollector(20)
	ctx, cancel := context.WithCancel(context.Background())

	got, err := Collect(ctx, collector, func(_ context.Context, page int) (Page[item], error) {
		cancel()
		return pageOf(true, fmt.Sprintf("p%d", page)), nil
	}, itemID)
	require.NoError(t, err)

	assert.True(t, got.Partial)
	assert.Equal(t, StopCanceled, got.StopReason)
	assert.Equal(t, 1, got.Fetches)
}
