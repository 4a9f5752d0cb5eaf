// Package sqlite implements domain.Store on an embedded SQLite database using GORM.
// It uses the pure-Go glebarez/sqlite driver, so no CGO is needed.
//
// The pool is capped at one connection: every transaction runs alone, which
// makes read-check-write sequences serializable without row locks.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"campus_coffee/internal/domain"
)

const MemoryPath = ":memory:"

type Config struct {
	Path string // database file, or MemoryPath
}

func (c Config) dsn() string {
	if c.Path == "" || c.Path == MemoryPath {
		return "file::memory:?_pragma=foreign_keys(1)"
	}
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", c.Path)
}

// Store implements domain.Store backed by SQLite.
type Store struct {
	repos
	db *gorm.DB
}

// Open connects to the database and migrates the schema.
func Open(cfg Config) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(cfg.dsn()), &gorm.Config{
		Logger: logger.New(zerologWriter{}, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB: %w", err)
	}
	// a second connection to :memory: would see an empty database
	sqlDB.SetMaxOpenConns(1)

	s := &Store{repos: repos{db: db}, db: db}
	if err := s.Migrate(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&UserModel{}, &PosModel{}, &ReviewModel{}); err != nil {
		return fmt.Errorf("auto-migrating: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) RunInTx(ctx context.Context, fn func(tx domain.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(repos{db: tx})
	})
}

type repos struct{ db *gorm.DB }

func (r repos) Users() domain.UserRepository {
	return table[domain.User, UserModel]{
		db: r.db, kind: domain.KindUser, toModel: toUserModel, toDomain: toUserDomain,
		columns: []string{"login_name", "email_address", "first_name", "last_name", "updated_at"},
	}
}

func (r repos) Pos() domain.PosRepository {
	return table[domain.Pos, PosModel]{
		db: r.db, kind: domain.KindPos, toModel: toPosModel, toDomain: toPosDomain,
		columns: []string{"name", "description", "type", "campus", "street", "house_number", "postal_code", "city", "updated_at"},
	}
}

func (r repos) Reviews() domain.ReviewRepository {
	return reviewTable{table[domain.Review, ReviewModel]{
		db: r.db, kind: domain.KindReview, toModel: toReviewModel, toDomain: toReviewDomain,
		columns: []string{"pos_id", "author_id", "text", "approval_count", "approved", "updated_at"},
	}}
}

// table is the CRUD repository shared by all entities. M is the GORM model of T.
type table[T domain.Entity, M any] struct {
	db       *gorm.DB
	kind     string
	toModel  func(T) M
	toDomain func(M) T
	columns  []string // written on update
}

func (t table[T, M]) Get(ctx context.Context, id int64) (T, error) {
	var m M
	if err := t.db.WithContext(ctx).First(&m, id).Error; err != nil {
		var zero T
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return zero, domain.NotFound(t.kind, id)
		}
		return zero, fmt.Errorf("getting %s: %w", t.kind, err)
	}
	return t.toDomain(m), nil
}

func (t table[T, M]) Upsert(ctx context.Context, v T) (T, error) {
	var zero T
	m := t.toModel(v)
	db := t.db.WithContext(ctx).Omit(clause.Associations)
	if v.IsNew() {
		if err := db.Create(&m).Error; err != nil {
			return zero, fmt.Errorf("creating %s: %w", t.kind, translate(err, opWrite))
		}
		return t.Get(ctx, t.toDomain(m).GetID())
	}

	res := db.Model(&m).Select(t.columns).Updates(&m)
	if res.Error != nil {
		return zero, fmt.Errorf("updating %s: %w", t.kind, translate(res.Error, opWrite))
	}
	if res.RowsAffected == 0 {
		return zero, domain.NotFound(t.kind, v.GetID())
	}
	return t.Get(ctx, v.GetID())
}

func (t table[T, M]) List(ctx context.Context) ([]T, error) {
	return t.find(ctx, t.db.WithContext(ctx))
}

func (t table[T, M]) Delete(ctx context.Context, id int64) error {
	res := t.db.WithContext(ctx).Delete(new(M), id)
	if res.Error != nil {
		return fmt.Errorf("deleting %s: %w", t.kind, translate(res.Error, opDelete))
	}
	if res.RowsAffected == 0 {
		return domain.NotFound(t.kind, id)
	}
	return nil
}

func (t table[T, M]) find(ctx context.Context, q *gorm.DB) ([]T, error) {
	var ms []M
	if err := q.Order("id").Find(&ms).Error; err != nil {
		return nil, fmt.Errorf("listing %s: %w", t.kind, err)
	}
	out := make([]T, 0, len(ms))
	for _, m := range ms {
		out = append(out, t.toDomain(m))
	}
	return out, nil
}

type reviewTable struct {
	table[domain.Review, ReviewModel]
}

func (t reviewTable) FilterByPosAndAuthor(ctx context.Context, posID, authorID int64) ([]domain.Review, error) {
	return t.find(ctx, t.db.WithContext(ctx).Where("pos_id = ? AND author_id = ?", posID, authorID))
}

func (t reviewTable) FilterByPosAndApproval(ctx context.Context, posID int64, approved bool) ([]domain.Review, error) {
	return t.find(ctx, t.db.WithContext(ctx).Where("pos_id = ? AND approved = ?", posID, approved))
}

type writeOp int

const (
	opWrite  writeOp = iota // insert or update
	opDelete
)

// translate maps constraint failures onto domain errors. A foreign key failure
// on a write means a referenced row is missing; on a delete it means the row is
// still referenced.
func translate(err error, op writeOp) error {
	msg := err.Error()
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey), strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %s", domain.ErrConflict, msg)
	case errors.Is(err, gorm.ErrForeignKeyViolated), strings.Contains(msg, "FOREIGN KEY constraint failed"):
		if op == opDelete {
			return fmt.Errorf("%w: %s", domain.ErrConflict, msg)
		}
		return fmt.Errorf("referenced row: %w: %s", domain.ErrNotFound, msg)
	}
	return err
}

// zerologWriter routes GORM's logger through the global zerolog logger.
type zerologWriter struct{}

func (zerologWriter) Printf(format string, args ...any) {
	log.Warn().Str("component", "gorm").Msgf(format, args...)
}
