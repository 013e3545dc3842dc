package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// MemStore keeps versioned documents in process memory. Transactions are
// validated at commit against everything they read, including the result
// sets of their queries.
type MemStore struct {
	logger      *slog.Logger
	maxAttempts int

	mu   sync.Mutex
	docs map[string]*Doc
}

type MemStoreOption func(*MemStore)

func WithMaxAttempts(n int) MemStoreOption {
	return func(m *MemStore) { m.maxAttempts = n }
}

func WithLogger(logger *slog.Logger) MemStoreOption {
	return func(m *MemStore) { m.logger = logger }
}

func NewMemStore(opts ...MemStoreOption) *MemStore {
	m := &MemStore{
		logger:      slog.Default().With("module", "memstore"),
		maxAttempts: DefaultMaxAttempts,
		docs:        make(map[string]*Doc),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemStore) Get(ctx context.Context, ref Ref) (*Doc, error) {
	if err := ref.validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneDoc(m.docs[ref.Path()]), nil
}

func (m *MemStore) Set(ctx context.Context, ref Ref, fields Fields, opts ...SetOption) error {
	if err := ref.validate(); err != nil {
		return err
	}
	o := collectSetOptions(opts)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applyLocked(write{ref: ref, fields: fields, merge: o.merge})
	return nil
}

func (m *MemStore) Query(ctx context.Context, q Query) ([]*Doc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queryLocked(q), nil
}

func (m *MemStore) RunTransaction(ctx context.Context, fn TxFunc) error {
	return runWithRetry(ctx, m.logger, m.maxAttempts, func() error {
		tx := &memTx{
			store: m,
			reads: make(map[string]int64),
		}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return m.commit(tx)
	})
}

func (m *MemStore) applyLocked(w write) {
	path := w.ref.Path()
	prev := m.docs[path]
	var existing Fields
	var version int64
	if prev != nil {
		existing = prev.Data
		version = prev.Version
	}
	m.docs[path] = &Doc{
		Ref:     w.ref,
		Data:    applyWrite(existing, w),
		Version: version + 1,
	}
}

func (m *MemStore) queryLocked(q Query) []*Doc {
	var res []*Doc
	for _, d := range m.docs {
		if q.matchesSource(d.Ref) && q.matchesFilters(d.Data) {
			res = append(res, cloneDoc(d))
		}
	}
	return q.finish(res)
}

func (m *MemStore) versionLocked(path string) int64 {
	if d, ok := m.docs[path]; ok {
		return d.Version
	}
	return 0
}

func (m *MemStore) commit(tx *memTx) error {
	for _, w := range tx.writes {
		if err := w.ref.validate(); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for path, version := range tx.reads {
		if cur := m.versionLocked(path); cur != version {
			return fmt.Errorf("%w: %s read at version %d, now %d", ErrConflict, path, version, cur)
		}
	}
	for _, qr := range tx.queries {
		now := m.queryLocked(qr.query)
		if !sameResultSet(qr.result, now) {
			return fmt.Errorf("%w: result of %s changed", ErrConflict, qr.query)
		}
	}
	for _, w := range tx.writes {
		m.applyLocked(w)
	}
	return nil
}

func sameResultSet(a, b []*Doc) bool {
	if len(a) != len(b) {
		return false
	}
	versions := make(map[string]int64, len(a))
	for _, d := range a {
		versions[d.Ref.Path()] = d.Version
	}
	for _, d := range b {
		v, ok := versions[d.Ref.Path()]
		if !ok || v != d.Version {
			return false
		}
	}
	return true
}

type queryRead struct {
	query  Query
	result []*Doc
}

type memTx struct {
	store   *MemStore
	reads   map[string]int64
	queries []queryRead
	writes  []write
}

func (tx *memTx) Get(ctx context.Context, ref Ref) (*Doc, error) {
	if len(tx.writes) > 0 {
		return nil, ErrReadAfterWrite
	}
	doc, err := tx.store.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	var version int64
	if doc != nil {
		version = doc.Version
	}
	tx.reads[ref.Path()] = version
	return doc, nil
}

func (tx *memTx) Query(ctx context.Context, q Query) ([]*Doc, error) {
	if len(tx.writes) > 0 {
		return nil, ErrReadAfterWrite
	}
	docs, err := tx.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	tx.queries = append(tx.queries, queryRead{query: q, result: docs})
	res := make([]*Doc, len(docs))
	for i, d := range docs {
		res[i] = cloneDoc(d)
	}
	return res, nil
}

func (tx *memTx) Set(ref Ref, fields Fields, opts ...SetOption) {
	o := collectSetOptions(opts)
	tx.writes = append(tx.writes, write{ref: ref, fields: fields, merge: o.merge})
}
