// Package seed loads users and points of sale from a YAML file into the store.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"gopkg.in/yaml.v3"

	"campus_coffee/internal/app"
	"campus_coffee/internal/domain"
)

type User struct {
	LoginName    string `yaml:"login_name"`
	EmailAddress string `yaml:"email_address"`
	FirstName    string `yaml:"first_name"`
	LastName     string `yaml:"last_name"`
}

type Pos struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Type        string `yaml:"type"`
	Campus      string `yaml:"campus"`
	Street      string `yaml:"street"`
	HouseNumber string `yaml:"house_number"`
	PostalCode  int    `yaml:"postal_code"`
	City        string `yaml:"city"`
}

type File struct {
	Users []User `yaml:"users"`
	Pos   []Pos  `yaml:"pos"`
}

func LoadFile(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

func Decode(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("parsing seed file: %w", err)
	}
	for i, u := range f.Users {
		if u.LoginName == "" || u.EmailAddress == "" {
			return File{}, fmt.Errorf("user #%d: login_name and email_address are required", i+1)
		}
	}
	for i, p := range f.Pos {
		if p.Name == "" {
			return File{}, fmt.Errorf("pos #%d: name is required", i+1)
		}
		if !validPosType(domain.PosType(p.Type)) || !validCampus(domain.CampusType(p.Campus)) {
			return File{}, fmt.Errorf("pos %q: unknown type %q or campus %q", p.Name, p.Type, p.Campus)
		}
	}
	return f, nil
}

func validPosType(t domain.PosType) bool {
	switch t {
	case domain.PosCafe, domain.PosVendingMachine, domain.PosBakery, domain.PosCafeteria:
		return true
	}
	return false
}

func validCampus(c domain.CampusType) bool {
	switch c {
	case domain.CampusAltstadt, domain.CampusBergheim, domain.CampusINF:
		return true
	}
	return false
}

// Result counts what a run did.
type Result struct {
	Created int64
	Skipped int64
	Failed  int64
}

type Seeder struct {
	users   *app.CrudService[domain.User]
	pos     *app.CrudService[domain.Pos]
	workers int64
}

func New(users *app.CrudService[domain.User], pos *app.CrudService[domain.Pos], workers int) *Seeder {
	return &Seeder{users: users, pos: pos, workers: int64(max(workers, 1))}
}

// Run upserts every entry of f with at most `workers` writes in flight.
// Entries clashing with an existing unique key are skipped.
func (s *Seeder) Run(ctx context.Context, f File) (Result, error) {
	var res Result
	if err := fanOut(ctx, s.workers, f.Users, &res, func(ctx context.Context, u User) error {
		_, err := s.users.Upsert(ctx, domain.User{
			LoginName: u.LoginName, EmailAddress: u.EmailAddress, FirstName: u.FirstName, LastName: u.LastName,
		})
		return err
	}); err != nil {
		return res, err
	}
	if err := fanOut(ctx, s.workers, f.Pos, &res, func(ctx context.Context, p Pos) error {
		_, err := s.pos.Upsert(ctx, domain.Pos{
			Name: p.Name, Description: p.Description, Type: domain.PosType(p.Type), Campus: domain.CampusType(p.Campus),
			Street: p.Street, HouseNumber: p.HouseNumber, PostalCode: p.PostalCode, City: p.City,
		})
		return err
	}); err != nil {
		return res, err
	}

	log.Info().Int64("created", res.Created).Int64("skipped", res.Skipped).Int64("failed", res.Failed).Msg("seeding completed")
	if res.Failed > 0 {
		return res, fmt.Errorf("%d seed entries failed", res.Failed)
	}
	return res, nil
}

func fanOut[T any](ctx context.Context, workers int64, items []T, res *Result, write func(context.Context, T) error) error {
	sem := semaphore.NewWeighted(workers)
	var wg sync.WaitGroup

	for i, item := range items {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return fmt.Errorf("seeding interrupted: %w", err)
		}
		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			defer sem.Release(1)

			err := write(ctx, item)
			switch {
			case err == nil:
				atomic.AddInt64(&res.Created, 1)
			case errors.Is(err, domain.ErrConflict):
				log.Warn().Int("entry", i+1).Err(err).Msg("already exists, skipping")
				atomic.AddInt64(&res.Skipped, 1)
			default:
				log.Error().Int("entry", i+1).Err(err).Msg("seed write failed")
				atomic.AddInt64(&res.Failed, 1)
			}
		}(i, item)
	}
	wg.Wait()
	return nil
}
