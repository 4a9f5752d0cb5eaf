package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"campus_coffee/internal/adapters/observability"
	"campus_coffee/internal/domain"
)

type ReviewOptions struct {
	// MinApprovalCount is the number of approvals after which a review counts
	// as approved. Values below 1 are raised to 1 so a fresh review is never
	// approved on creation.
	MinApprovalCount int
	CacheTTL         time.Duration
}

// ReviewService runs the review lifecycle: creation rules, duplicate
// prevention, approval counting and threshold promotion. Every write runs in a
// single store transaction.
type ReviewService struct {
	store        domain.Store
	cache        domain.Cache
	crud         *CrudService[domain.Review]
	minApprovals int
	cacheTTL     time.Duration
	flight       singleflight.Group
	gens         generations
}

func NewReviewService(s domain.Store, c domain.Cache, opts ReviewOptions) *ReviewService {
	if opts.MinApprovalCount < 1 {
		opts.MinApprovalCount = 1
	}
	return &ReviewService{
		store:        s,
		cache:        c,
		crud:         NewCrudService[domain.Review](s, domain.KindReview, ReviewsRepo),
		minApprovals: opts.MinApprovalCount,
		cacheTTL:     opts.CacheTTL,
	}
}

func (s *ReviewService) MinApprovalCount() int { return s.minApprovals }

func (s *ReviewService) GetByID(ctx context.Context, id int64) (domain.Review, error) {
	return s.crud.GetByID(ctx, id)
}

func (s *ReviewService) List(ctx context.Context) ([]domain.Review, error) {
	return s.crud.List(ctx)
}

func (s *ReviewService) Delete(ctx context.Context, id int64) error {
	r, err := s.crud.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.crud.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, r.PosID)
	return nil
}

// Upsert creates r when it has no id and updates the stored review otherwise.
func (s *ReviewService) Upsert(ctx context.Context, r domain.Review) (domain.Review, error) {
	if r.IsNew() {
		out, err := s.create(ctx, r)
		observability.ObserveReviewOp("create", err)
		return out, err
	}
	out, err := s.update(ctx, r)
	observability.ObserveReviewOp("update", err)
	return out, err
}

func (s *ReviewService) create(ctx context.Context, r domain.Review) (domain.Review, error) {
	var out domain.Review
	err := s.store.RunInTx(ctx, func(tx domain.Repositories) error {
		author, err := tx.Users().Get(ctx, r.AuthorID)
		if err != nil {
			log.Error().Err(err).Int64("author_id", r.AuthorID).Msg("author of review does not exist")
			return err
		}
		pos, err := tx.Pos().Get(ctx, r.PosID)
		if err != nil {
			log.Error().Err(err).Int64("pos_id", r.PosID).Msg("POS to create a review for does not exist")
			return err
		}

		existing, err := tx.Reviews().FilterByPosAndAuthor(ctx, pos.ID, author.ID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			log.Warn().Int64("pos_id", pos.ID).Int64("author_id", author.ID).Msg("users can only review a POS once")
			return domain.ErrDuplicateReview
		}

		// approval state is never caller input on creation
		saved, err := tx.Reviews().Upsert(ctx, r.WithApprovalCount(0, s.minApprovals))
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return domain.ErrDuplicateReview
			}
			return err
		}
		saved.Author, saved.Pos = &author, &pos
		out = saved
		return nil
	})
	if err != nil {
		return domain.Review{}, err
	}

	log.Info().Int64("review_id", out.ID).Int64("pos_id", out.PosID).Msg("review created")
	s.invalidate(ctx, out.PosID)
	return out, nil
}

func (s *ReviewService) update(ctx context.Context, r domain.Review) (domain.Review, error) {
	log.Info().Int64("review_id", r.ID).Msg("updating review")

	var out domain.Review
	var prevPos int64
	err := s.store.RunInTx(ctx, func(tx domain.Repositories) error {
		// user row first, then the review: the same lock order as approve
		if _, err := tx.Users().Get(ctx, r.AuthorID); err != nil {
			log.Error().Err(err).Int64("author_id", r.AuthorID).Msg("author of review does not exist")
			return err
		}
		if _, err := tx.Pos().Get(ctx, r.PosID); err != nil {
			log.Error().Err(err).Int64("pos_id", r.PosID).Msg("POS of review does not exist")
			return err
		}
		current, err := tx.Reviews().Get(ctx, r.ID)
		if err != nil {
			log.Error().Err(err).Int64("review_id", r.ID).Msg("review to update does not exist")
			return err
		}
		prevPos = current.PosID

		// approvals only move through Approve; keep the stored count and re-derive the flag
		saved, err := tx.Reviews().Upsert(ctx, r.WithApprovalCount(current.ApprovalCount, s.minApprovals))
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return domain.ErrDuplicateReview
			}
			return err
		}
		out = saved
		return nil
	})
	if err != nil {
		return domain.Review{}, err
	}

	s.invalidate(ctx, prevPos)
	if out.PosID != prevPos {
		s.invalidate(ctx, out.PosID)
	}
	return out, nil
}

// Filter returns the reviews of a POS with the given approval state.
func (s *ReviewService) Filter(ctx context.Context, posID int64, approved bool) ([]domain.Review, error) {
	out, err := s.filter(ctx, posID, approved)
	observability.ObserveReviewOp("filter", err)
	return out, err
}

func (s *ReviewService) filter(ctx context.Context, posID int64, approved bool) ([]domain.Review, error) {
	if _, err := s.store.Pos().Get(ctx, posID); err != nil {
		return nil, err
	}

	key := filterKey(posID, approved)
	if s.cache != nil {
		var cached []domain.Review
		if ok, _ := s.cache.Get(ctx, key, &cached); ok {
			return cached, nil
		}
	}

	// concurrent misses for the same key share one store query, which must not
	// die with whichever caller happened to start it
	v, err, _ := s.flight.Do(key, func() (any, error) {
		qctx := context.WithoutCancel(ctx)
		gen := s.gens.current(posID)
		rs, err := s.store.Reviews().FilterByPosAndApproval(qctx, posID, approved)
		if err != nil {
			return nil, err
		}
		s.fill(qctx, posID, gen, key, rs)
		return rs, nil
	})
	if err != nil {
		return nil, err
	}
	// the flight result is shared between callers; hand out copies
	return copyReviews(v.([]domain.Review)), nil
}

// Approve records one approval of review by approverID. The stored review is
// the source of truth for the current count and the author.
func (s *ReviewService) Approve(ctx context.Context, review domain.Review, approverID int64) (domain.Review, error) {
	out, err := s.approve(ctx, review.ID, approverID)
	observability.ObserveReviewOp("approve", err)
	return out, err
}

func (s *ReviewService) approve(ctx context.Context, reviewID, approverID int64) (domain.Review, error) {
	log.Info().Int64("review_id", reviewID).Int64("user_id", approverID).Msg("processing approval request")

	var out domain.Review
	var promoted bool
	err := s.store.RunInTx(ctx, func(tx domain.Repositories) error {
		if _, err := tx.Users().Get(ctx, approverID); err != nil {
			log.Error().Err(err).Int64("user_id", approverID).Msg("could not find approving user")
			return err
		}
		current, err := tx.Reviews().Get(ctx, reviewID)
		if err != nil {
			log.Error().Err(err).Int64("review_id", reviewID).Msg("could not find review")
			return err
		}
		if current.AuthorID == approverID {
			log.Error().Int64("review_id", reviewID).Int64("user_id", approverID).Msg("user tried to approve own review")
			return domain.ErrSelfApproval
		}

		next := current.WithApprovalCount(current.ApprovalCount+1, s.minApprovals)
		saved, err := tx.Reviews().Upsert(ctx, next)
		if err != nil {
			return err
		}
		promoted = saved.Approved && !current.Approved
		out = saved
		return nil
	})
	if err != nil {
		return domain.Review{}, err
	}

	if promoted {
		log.Info().Int64("review_id", out.ID).Int("approvals", out.ApprovalCount).Msg("review approved")
		observability.ObserveApproved()
	}
	s.invalidate(ctx, out.PosID)
	return out, nil
}

// fill caches rs unless the POS was invalidated after gen was read. The check
// runs again after Set: an invalidation landing in between has either been
// seen here or deletes the key after Set.
func (s *ReviewService) fill(ctx context.Context, posID int64, gen uint64, key string, rs []domain.Review) {
	if s.cache == nil || s.gens.current(posID) != gen {
		return
	}
	_ = s.cache.Set(ctx, key, rs, int(s.cacheTTL.Seconds()))
	if s.gens.current(posID) != gen {
		_ = s.cache.Del(ctx, key)
	}
}

func (s *ReviewService) invalidate(ctx context.Context, posID int64) {
	if s.cache == nil {
		return
	}
	s.gens.bump(posID)
	ctx = context.WithoutCancel(ctx)
	for _, approved := range []bool{true, false} {
		if err := s.cache.Del(ctx, filterKey(posID, approved)); err != nil {
			log.Warn().Err(err).Int64("pos_id", posID).Msg("review cache invalidation failed")
		}
	}
}

// generations counts cache invalidations per POS.
type generations struct {
	mu sync.Mutex
	m  map[int64]uint64
}

func (g *generations) current(posID int64) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.m[posID]
}

func (g *generations) bump(posID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.m == nil {
		g.m = map[int64]uint64{}
	}
	g.m[posID]++
}

func filterKey(posID int64, approved bool) string {
	return fmt.Sprintf("reviews:pos:%d:approved:%t", posID, approved)
}

func copyReviews(in []domain.Review) []domain.Review {
	if in == nil {
		return nil
	}
	out := make([]domain.Review, len(in))
	copy(out, in)
	return out
}
