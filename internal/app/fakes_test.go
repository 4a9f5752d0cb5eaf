package app_test

import (
	"context"
	"maps"
	"sync"
	"time"

	"campus_coffee/internal/domain"
)

// ---- in-memory store ----
//
// RunInTx works on a copy of the data under the store mutex and swaps it in
// only when fn succeeds, which gives the same all-or-nothing behaviour the SQL
// stores provide.

type memData struct {
	nextID  int64
	users   map[int64]domain.User
	pos     map[int64]domain.Pos
	reviews map[int64]domain.Review
}

func (d *memData) clone() *memData {
	return &memData{
		nextID:  d.nextID,
		users:   maps.Clone(d.users),
		pos:     maps.Clone(d.pos),
		reviews: maps.Clone(d.reviews),
	}
}

type memStore struct {
	mu      sync.Mutex
	data    *memData
	commits int

	// afterFilter, when set, runs once after FilterByPosAndApproval has read
	// its rows and before they are returned.
	afterFilter func()
}

func newMemStore() *memStore {
	return &memStore{data: &memData{
		users:   map[int64]domain.User{},
		pos:     map[int64]domain.Pos{},
		reviews: map[int64]domain.Review{},
	}}
}

func (s *memStore) Users() domain.UserRepository     { return memRepos{st: s}.Users() }
func (s *memStore) Pos() domain.PosRepository         { return memRepos{st: s}.Pos() }
func (s *memStore) Reviews() domain.ReviewRepository { return memRepos{st: s}.Reviews() }

func (s *memStore) RunInTx(ctx context.Context, fn func(tx domain.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.data.clone()
	if err := fn(memRepos{st: s, d: work}); err != nil {
		return err
	}
	s.data = work
	s.commits++
	return nil
}

func (s *memStore) reviewCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.reviews)
}

func (s *memStore) commitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

// d is nil outside a transaction.
type memRepos struct {
	st *memStore
	d  *memData
}

func (r memRepos) Users() domain.UserRepository {
	return table[domain.User]{
		st: r.st, d: r.d, kind: domain.KindUser,
		rows:    func(d *memData) map[int64]domain.User { return d.users },
		created: func(u domain.User) time.Time { return u.CreatedAt },
		stamp: func(u domain.User, id int64, c, up time.Time) domain.User {
			u.ID, u.CreatedAt, u.UpdatedAt = id, c, up
			return u
		},
		clash: func(a, b domain.User) bool { return a.LoginName == b.LoginName || a.EmailAddress == b.EmailAddress },
	}
}

func (r memRepos) Pos() domain.PosRepository {
	return table[domain.Pos]{
		st: r.st, d: r.d, kind: domain.KindPos,
		rows:    func(d *memData) map[int64]domain.Pos { return d.pos },
		created: func(p domain.Pos) time.Time { return p.CreatedAt },
		stamp: func(p domain.Pos, id int64, c, up time.Time) domain.Pos {
			p.ID, p.CreatedAt, p.UpdatedAt = id, c, up
			return p
		},
		clash: func(a, b domain.Pos) bool { return a.Name == b.Name },
	}
}

func (r memRepos) Reviews() domain.ReviewRepository {
	return reviewTable{table[domain.Review]{
		st: r.st, d: r.d, kind: domain.KindReview,
		rows:    func(d *memData) map[int64]domain.Review { return d.reviews },
		created: func(rv domain.Review) time.Time { return rv.CreatedAt },
		stamp: func(rv domain.Review, id int64, c, up time.Time) domain.Review {
			rv.ID, rv.CreatedAt, rv.UpdatedAt = id, c, up
			rv.Pos, rv.Author = nil, nil
			return rv
		},
		clash: func(a, b domain.Review) bool { return a.PosID == b.PosID && a.AuthorID == b.AuthorID },
	}}
}

type table[T domain.Entity] struct {
	st      *memStore
	d       *memData
	kind    string
	rows    func(*memData) map[int64]T
	created func(T) time.Time
	stamp   func(v T, id int64, created, updated time.Time) T
	clash   func(a, b T) bool
}

func (t table[T]) lock() func() {
	if t.d != nil {
		return func() {}
	}
	t.st.mu.Lock()
	return t.st.mu.Unlock
}

func (t table[T]) data() *memData {
	if t.d != nil {
		return t.d
	}
	return t.st.data
}

func (t table[T]) Get(ctx context.Context, id int64) (T, error) {
	defer t.lock()()
	v, ok := t.rows(t.data())[id]
	if !ok {
		var zero T
		return zero, domain.NotFound(t.kind, id)
	}
	return v, nil
}

func (t table[T]) Upsert(ctx context.Context, v T) (T, error) {
	defer t.lock()()
	d := t.data()
	rows := t.rows(d)
	var zero T
	for id, other := range rows {
		if id != v.GetID() && t.clash(other, v) {
			return zero, domain.ErrConflict
		}
	}
	now := time.Now().UTC()
	if v.IsNew() {
		d.nextID++
		v = t.stamp(v, d.nextID, now, now)
	} else {
		prev, ok := rows[v.GetID()]
		if !ok {
			return zero, domain.NotFound(t.kind, v.GetID())
		}
		v = t.stamp(v, v.GetID(), t.created(prev), now)
	}
	rows[v.GetID()] = v
	return v, nil
}

func (t table[T]) List(ctx context.Context) ([]T, error) {
	defer t.lock()()
	var out []T
	for _, v := range t.rows(t.data()) {
		out = append(out, v)
	}
	return out, nil
}

func (t table[T]) Delete(ctx context.Context, id int64) error {
	defer t.lock()()
	rows := t.rows(t.data())
	if _, ok := rows[id]; !ok {
		return domain.NotFound(t.kind, id)
	}
	delete(rows, id)
	return nil
}

type reviewTable struct{ table[domain.Review] }

func (t reviewTable) FilterByPosAndAuthor(ctx context.Context, posID, authorID int64) ([]domain.Review, error) {
	return t.where(func(r domain.Review) bool { return r.PosID == posID && r.AuthorID == authorID }), nil
}

func (t reviewTable) FilterByPosAndApproval(ctx context.Context, posID int64, approved bool) ([]domain.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := t.where(func(r domain.Review) bool { return r.PosID == posID && r.Approved == approved })
	if hook := t.st.takeAfterFilter(); hook != nil {
		hook()
	}
	return out, nil
}

func (s *memStore) takeAfterFilter() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	hook := s.afterFilter
	s.afterFilter = nil
	return hook
}

func (t reviewTable) where(keep func(domain.Review) bool) []domain.Review {
	defer t.lock()()
	var out []domain.Review
	for _, r := range t.data().reviews {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// ---- cache ----

type fakeCache struct {
	mu    sync.Mutex
	store map[string]any
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	if d, ok := dst.(*[]domain.Review); ok {
		*d = append([]domain.Review(nil), v.([]domain.Review)...)
	}
	return true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	c.dels = append(c.dels, key)
	return nil
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.store[key]
	return ok
}
