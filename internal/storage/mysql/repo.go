package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	mysqldrv "github.com/go-sql-driver/mysql"

	"campus_coffee/internal/domain"
)

// MySQL server error numbers the store translates.
const (
	errDupEntry        = 1062
	errRowIsReferenced = 1451
	errNoReferencedRow = 1452
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface{ Scan(dest ...any) error }

// Store implements domain.Store over a MySQL database.
type Store struct {
	repos
	db *sql.DB
}

func New(db *sql.DB) *Store { return &Store{repos: repos{q: db}, db: db} }

// RunInTx runs fn in a transaction. Single-row reads made through the
// repositories passed to fn use SELECT ... FOR UPDATE, so a read-check-write
// sequence cannot interleave with another one touching the same rows.
func (s *Store) RunInTx(ctx context.Context, fn func(tx domain.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(repos{q: tx, lock: lockClause}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type repos struct {
	q    querier
	lock string
}

func (r repos) Users() domain.UserRepository     { return userRepo(r) }
func (r repos) Pos() domain.PosRepository         { return posRepo(r) }
func (r repos) Reviews() domain.ReviewRepository { return reviewRepo(r) }

// translate maps driver errors onto domain errors.
func translate(err error) error {
	var me *mysqldrv.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case errDupEntry, errRowIsReferenced:
			return fmt.Errorf("%w: %s", domain.ErrConflict, me.Message)
		case errNoReferencedRow:
			return fmt.Errorf("%w: %s", domain.ErrNotFound, me.Message)
		}
	}
	return err
}

func exec(ctx context.Context, q querier, query string, args ...any) (sql.Result, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	return res, nil
}

func insertID(res sql.Result) (int64, error) {
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func deleteByID(ctx context.Context, q querier, query, kind string, id int64) error {
	res, err := exec(ctx, q, query, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFound(kind, id)
	}
	return nil
}

func queryList[T any](ctx context.Context, q querier, scan func(rowScanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// users
// -----------------------------------------------------------------------------

type userRepo repos

func scanUser(row rowScanner) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.LoginName, &u.EmailAddress, &u.FirstName, &u.LastName, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r userRepo) Get(ctx context.Context, id int64) (domain.User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx, getUserSQL+r.lock, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.NotFound(domain.KindUser, id)
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r userRepo) Upsert(ctx context.Context, u domain.User) (domain.User, error) {
	if u.IsNew() {
		res, err := exec(ctx, r.q, insertUserSQL, u.LoginName, u.EmailAddress, u.FirstName, u.LastName)
		if err != nil {
			return domain.User{}, fmt.Errorf("insert user: %w", err)
		}
		if u.ID, err = insertID(res); err != nil {
			return domain.User{}, err
		}
	} else if _, err := exec(ctx, r.q, updateUserSQL, u.LoginName, u.EmailAddress, u.FirstName, u.LastName, u.ID); err != nil {
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	return r.Get(ctx, u.ID)
}

func (r userRepo) List(ctx context.Context) ([]domain.User, error) {
	return queryList(ctx, r.q, scanUser, listUsersSQL)
}

func (r userRepo) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.q, deleteUserSQL, domain.KindUser, id)
}

// -----------------------------------------------------------------------------
// pos
// -----------------------------------------------------------------------------

type posRepo repos

func scanPos(row rowScanner) (domain.Pos, error) {
	var p domain.Pos
	var typ, campus string
	err := row.Scan(&p.ID, &p.Name, &p.Description, &typ, &campus, &p.Street, &p.HouseNumber, &p.PostalCode, &p.City,
		&p.CreatedAt, &p.UpdatedAt)
	p.Type, p.Campus = domain.PosType(typ), domain.CampusType(campus)
	return p, err
}

func (r posRepo) Get(ctx context.Context, id int64) (domain.Pos, error) {
	p, err := scanPos(r.q.QueryRowContext(ctx, getPosSQL+r.lock, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Pos{}, domain.NotFound(domain.KindPos, id)
		}
		return domain.Pos{}, fmt.Errorf("get pos: %w", err)
	}
	return p, nil
}

func (r posRepo) Upsert(ctx context.Context, p domain.Pos) (domain.Pos, error) {
	args := []any{p.Name, p.Description, string(p.Type), string(p.Campus), p.Street, p.HouseNumber, p.PostalCode, p.City}
	if p.IsNew() {
		res, err := exec(ctx, r.q, insertPosSQL, args...)
		if err != nil {
			return domain.Pos{}, fmt.Errorf("insert pos: %w", err)
		}
		if p.ID, err = insertID(res); err != nil {
			return domain.Pos{}, err
		}
	} else if _, err := exec(ctx, r.q, updatePosSQL, append(args, p.ID)...); err != nil {
		return domain.Pos{}, fmt.Errorf("update pos: %w", err)
	}
	return r.Get(ctx, p.ID)
}

func (r posRepo) List(ctx context.Context) ([]domain.Pos, error) {
	return queryList(ctx, r.q, scanPos, listPosSQL)
}

func (r posRepo) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.q, deletePosSQL, domain.KindPos, id)
}

// -----------------------------------------------------------------------------
// reviews
// -----------------------------------------------------------------------------

type reviewRepo repos

func scanReview(row rowScanner) (domain.Review, error) {
	var rv domain.Review
	err := row.Scan(&rv.ID, &rv.PosID, &rv.AuthorID, &rv.Text, &rv.ApprovalCount, &rv.Approved, &rv.CreatedAt, &rv.UpdatedAt)
	return rv, err
}

func (r reviewRepo) Get(ctx context.Context, id int64) (domain.Review, error) {
	rv, err := scanReview(r.q.QueryRowContext(ctx, getReviewSQL+r.lock, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Review{}, domain.NotFound(domain.KindReview, id)
		}
		return domain.Review{}, fmt.Errorf("get review: %w", err)
	}
	return rv, nil
}

func (r reviewRepo) Upsert(ctx context.Context, rv domain.Review) (domain.Review, error) {
	args := []any{rv.PosID, rv.AuthorID, rv.Text, rv.ApprovalCount, rv.Approved}
	if rv.IsNew() {
		res, err := exec(ctx, r.q, insertReviewSQL, args...)
		if err != nil {
			return domain.Review{}, fmt.Errorf("insert review: %w", err)
		}
		if rv.ID, err = insertID(res); err != nil {
			return domain.Review{}, err
		}
	} else if _, err := exec(ctx, r.q, updateReviewSQL, append(args, rv.ID)...); err != nil {
		return domain.Review{}, fmt.Errorf("update review: %w", err)
	}
	return r.Get(ctx, rv.ID)
}

func (r reviewRepo) List(ctx context.Context) ([]domain.Review, error) {
	return queryList(ctx, r.q, scanReview, listReviewsSQL)
}

func (r reviewRepo) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.q, deleteReviewSQL, domain.KindReview, id)
}

func (r reviewRepo) FilterByPosAndAuthor(ctx context.Context, posID, authorID int64) ([]domain.Review, error) {
	return queryList(ctx, r.q, scanReview, filterByPosAndAuthorSQL, posID, authorID)
}

func (r reviewRepo) FilterByPosAndApproval(ctx context.Context, posID int64, approved bool) ([]domain.Review, error) {
	return queryList(ctx, r.q, scanReview, filterByPosAndApprovalSQL, posID, approved)
}
