package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"campus_coffee/internal/domain"
)

// RepoSelector picks the repository for one entity type out of a set of
// repositories, so the same service works inside and outside a transaction.
type RepoSelector[T domain.Entity] func(domain.Repositories) domain.CrudRepository[T]

func UsersRepo(r domain.Repositories) domain.CrudRepository[domain.User] { return r.Users() }
func PosRepo(r domain.Repositories) domain.CrudRepository[domain.Pos]    { return r.Pos() }
func ReviewsRepo(r domain.Repositories) domain.CrudRepository[domain.Review] {
	return r.Reviews()
}

// CrudService holds the create/read/update/delete rules shared by every entity.
type CrudService[T domain.Entity] struct {
	store domain.Store
	kind  string
	repo  RepoSelector[T]
}

func NewCrudService[T domain.Entity](s domain.Store, kind string, repo RepoSelector[T]) *CrudService[T] {
	return &CrudService[T]{store: s, kind: kind, repo: repo}
}

func NewUserService(s domain.Store) *CrudService[domain.User] {
	return NewCrudService[domain.User](s, domain.KindUser, UsersRepo)
}

func NewPosService(s domain.Store) *CrudService[domain.Pos] {
	return NewCrudService[domain.Pos](s, domain.KindPos, PosRepo)
}

func (s *CrudService[T]) GetByID(ctx context.Context, id int64) (T, error) {
	return s.repo(s.store).Get(ctx, id)
}

func (s *CrudService[T]) List(ctx context.Context) ([]T, error) {
	return s.repo(s.store).List(ctx)
}

// Upsert creates v when it has no id. Otherwise the target must exist before it
// is overwritten.
func (s *CrudService[T]) Upsert(ctx context.Context, v T) (T, error) {
	var out T
	err := s.store.RunInTx(ctx, func(tx domain.Repositories) error {
		r := s.repo(tx)
		if v.IsNew() {
			log.Info().Str("kind", s.kind).Msg("creating entity")
		} else {
			log.Info().Str("kind", s.kind).Int64("id", v.GetID()).Msg("updating entity")
			if _, err := r.Get(ctx, v.GetID()); err != nil {
				return err
			}
		}
		saved, err := r.Upsert(ctx, v)
		if err != nil {
			return err
		}
		out = saved
		return nil
	})
	if err != nil {
		var zero T
		if errors.Is(err, domain.ErrConflict) {
			return zero, fmt.Errorf("%w: %s already exists: %w", domain.ErrValidation, s.kind, err)
		}
		return zero, err
	}
	return out, nil
}

func (s *CrudService[T]) Delete(ctx context.Context, id int64) error {
	log.Info().Str("kind", s.kind).Int64("id", id).Msg("deleting entity")
	err := s.repo(s.store).Delete(ctx, id)
	if errors.Is(err, domain.ErrConflict) {
		log.Warn().Str("kind", s.kind).Int64("id", id).Msg("entity is still referenced")
		return fmt.Errorf("%w: %s %d is still referenced: %w", domain.ErrValidation, s.kind, id, err)
	}
	return err
}
