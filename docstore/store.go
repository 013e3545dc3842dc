package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/profound-academy/backend/stats"
	"golang.org/x/exp/rand"
)

var (
	// ErrConflict means a document read by the transaction changed before
	// commit. RunTransaction retries on it.
	ErrConflict = errors.New("transaction conflict")
	// ErrTooManyAttempts wraps the last conflict once retries are exhausted.
	ErrTooManyAttempts = errors.New("transaction retries exhausted")
	// ErrReadAfterWrite is returned when a transaction reads after it
	// already queued a write.
	ErrReadAfterWrite = errors.New("transaction reads must precede writes")
)

const DefaultMaxAttempts = 5

// Store is a document store with optimistic multi-document transactions.
type Store interface {
	// Get returns nil when the document does not exist.
	Get(ctx context.Context, ref Ref) (*Doc, error)
	Set(ctx context.Context, ref Ref, fields Fields, opts ...SetOption) error
	Query(ctx context.Context, q Query) ([]*Doc, error)
	// RunTransaction runs fn and commits its writes atomically. If any
	// document or query result read by fn changed meanwhile, fn is run
	// again from scratch.
	RunTransaction(ctx context.Context, fn TxFunc) error
}

type TxFunc func(ctx context.Context, tx Tx) error

// Reader is satisfied by both Store and Tx, so read helpers work inside
// and outside of transactions.
type Reader interface {
	Get(ctx context.Context, ref Ref) (*Doc, error)
	Query(ctx context.Context, q Query) ([]*Doc, error)
}

type Tx interface {
	Get(ctx context.Context, ref Ref) (*Doc, error)
	Query(ctx context.Context, q Query) ([]*Doc, error)
	Set(ref Ref, fields Fields, opts ...SetOption)
}

type Direction int

const (
	Asc Direction = iota
	Desc
)

type filter struct {
	field string
	value any
}

type order struct {
	field string
	dir   Direction
}

// Query selects documents of one collection, or of every collection with
// the same name when group is set, by equality filters.
type Query struct {
	source  string
	group   bool
	filters []filter
	orders  []order
	limit   int
}

// CollectionGroup queries all collections named name regardless of parent.
func CollectionGroup(name string) Query {
	return Query{source: name, group: true}
}

func (q Query) Where(field string, value any) Query {
	q.filters = append(slices.Clip(q.filters), filter{field: field, value: value})
	return q
}

func (q Query) OrderBy(field string, dir Direction) Query {
	q.orders = append(slices.Clip(q.orders), order{field: field, dir: dir})
	return q
}

func (q Query) Limit(n int) Query {
	q.limit = n
	return q
}

func (q Query) String() string {
	kind := "collection"
	if q.group {
		kind = "group"
	}
	return fmt.Sprintf("%s(%s) filters=%v orders=%v limit=%d", kind, q.source, q.filters, q.orders, q.limit)
}

func (q Query) matchesSource(ref Ref) bool {
	if q.group {
		return ref.Group() == q.source
	}
	return ref.CollPath == q.source
}

func (q Query) matchesFilters(data Fields) bool {
	for _, f := range q.filters {
		v, ok := lookup(data, f.field)
		if !ok || !valuesEqual(v, f.value) {
			return false
		}
	}
	for _, o := range q.orders {
		if _, ok := lookup(data, o.field); !ok {
			return false
		}
	}
	return true
}

// finish orders and limits already filtered documents in place.
func (q Query) finish(docs []*Doc) []*Doc {
	slices.SortStableFunc(docs, func(a, b *Doc) int {
		for _, o := range q.orders {
			va, _ := lookup(a.Data, o.field)
			vb, _ := lookup(b.Data, o.field)
			c := compareValues(va, vb)
			if o.dir == Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
	if q.limit > 0 && len(docs) > q.limit {
		docs = docs[:q.limit]
	}
	return docs
}

// runWithRetry calls attempt until it returns something other than
// ErrConflict, sleeping 10..100ms between attempts.
func runWithRetry(ctx context.Context, logger *slog.Logger, maxAttempts int, attempt func() error) error {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	var err error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(10+rand.Intn(91)) * time.Millisecond):
			}
		}
		stats.TxAttempts().Inc()
		err = attempt()
		if !errors.Is(err, ErrConflict) {
			return err
		}
		stats.TxConflicts().Inc()
		logger.Debug("transaction conflict, retrying", "attempt", i+1, "error", err)
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrTooManyAttempts, maxAttempts, err)
}
