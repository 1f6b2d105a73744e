package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bnema/zalo-accounts/internal/ports"
)

const (
	DefaultMaxPages  = 20
	DefaultPageDelay = 300 * time.Millisecond
)

type Page[T any] struct {
	Items   []T
	HasMore bool
	// Total is the upstream-reported total, zero when unknown.
	Total int
}

type CollectOptions struct {
	// MaxPages bounds the follow-up fetches after page 0.
	MaxPages  int
	PageDelay time.Duration
}

type StopReason string

const (
	StopExhausted  StopReason = "exhausted"
	StopEmptyPage  StopReason = "empty-page"
	StopRepeated   StopReason = "repeated-page"
	StopPageCap    StopReason = "page-cap"
	StopFetchError StopReason = "fetch-error"
	StopCanceled   StopReason = "canceled"
)

type Collection[T any] struct {
	Items      []T
	Total      int
	Fetches    int
	Partial    bool
	StopReason StopReason
	// Err is the follow-up error that ended a partial collection.
	Err error
}

type Collector struct {
	clock ports.Clock
	log   *slog.Logger
	opts  CollectOptions
}

func NewCollector(clock ports.Clock, log *slog.Logger, opts CollectOptions) *Collector {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if log == nil {
		log = slog.Default()
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.PageDelay < 0 {
		opts.PageDelay = 0
	}
	return &Collector{clock: clock, log: log.With("component", "collector"), opts: opts}
}

// Collect drains a paged upstream listing into one de-duplicated slice.
//
// Only a page 0 failure is returned as an error. Later failures end the walk
// and the items gathered so far are returned with Partial set. The walk also
// stops when a follow-up page is empty, when its leading id repeats the
// previous page's leading id, or after MaxPages follow-up pages.
func Collect[T any](
	ctx context.Context,
	c *Collector,
	fetch func(ctx context.Context, page int) (Page[T], error),
	idOf func(T) string,
) (Collection[T], error) {
	first, err := fetch(ctx, 0)
	if err != nil {
		return Collection[T]{}, fmt.Errorf("fetch page 0: %w", err)
	}

	result := Collection[T]{Fetches: 1, Total: first.Total}
	if len(first.Items) == 0 {
		result.StopReason = StopEmptyPage
		return result, nil
	}

	seen := map[string]struct{}{}
	appendUnseen := func(items []T) {
		for _, item := range items {
			id := idOf(item)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			result.Items = append(result.Items, item)
		}
	}

	appendUnseen(first.Items)
	lastLeadingID := idOf(first.Items[0])
	hasMore := first.HasMore
	result.StopReason = StopExhausted

	for page := 1; hasMore; page++ {
		if page > c.opts.MaxPages {
			c.log.Warn("page cap reached", "max_pages", c.opts.MaxPages, "collected", len(result.Items))
			result.StopReason = StopPageCap
			break
		}

		if err := c.clock.Sleep(ctx, c.opts.PageDelay); err != nil {
			result.Partial = true
			result.StopReason = StopCanceled
			result.Err = err
			break
		}

		next, err := fetch(ctx, page)
		result.Fetches++
		if err != nil {
			c.log.Warn("fetch page failed, keeping partial result", "page", page, "collected", len(result.Items), "error", err)
			result.Partial = true
			result.StopReason = StopFetchError
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				result.StopReason = StopCanceled
			}
			result.Err = err
			break
		}

		if len(next.Items) == 0 {
			result.StopReason = StopEmptyPage
			break
		}

		leadingID := idOf(next.Items[0])
		if leadingID == lastLeadingID {
			c.log.Debug("page repeats previous page", "page", page, "leading_id", leadingID)
			result.StopReason = StopRepeated
			break
		}
		lastLeadingID = leadingID

		appendUnseen(next.Items)
		hasMore = next.HasMore
		if next.Total > result.Total {
			result.Total = next.Total
		}
	}

	if result.Total == 0 {
		result.Total = len(result.Items)
	}

	return result, nil
}
