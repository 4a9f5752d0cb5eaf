package domain

import "context"

// Entity is anything the generic CRUD layer can persist.
type Entity interface {
	GetID() int64
	IsNew() bool
}

type CrudRepository[T Entity] interface {
	Get(ctx context.Context, id int64) (T, error)
	// Upsert inserts when the id is zero and updates otherwise. The returned
	// value carries the id and timestamps assigned by the store.
	Upsert(ctx context.Context, v T) (T, error)
	List(ctx context.Context) ([]T, error)
	Delete(ctx context.Context, id int64) error
}

type UserRepository = CrudRepository[User]

type PosRepository = CrudRepository[Pos]

type ReviewRepository interface {
	CrudRepository[Review]
	FilterByPosAndAuthor(ctx context.Context, posID, authorID int64) ([]Review, error)
	FilterByPosAndApproval(ctx context.Context, posID int64, approved bool) ([]Review, error)
}

type Repositories interface {
	Users() UserRepository
	Pos() PosRepository
	Reviews() ReviewRepository
}

// Store is the persistence boundary. Its own repositories read without locks;
// repositories handed to fn by RunInTx lock what they read until fn returns, and
// all writes made through them commit or roll back together.
type Store interface {
	Repositories
	RunInTx(ctx context.Context, fn func(tx Repositories) error) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
