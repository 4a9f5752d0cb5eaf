package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"campus_coffee/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ReviewDTO never carries the approval count. Approved is output only.
type ReviewDTO struct {
	ID        int64      `json:"id,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	PosID     int64      `json:"posId" validate:"required,gt=0"`
	AuthorID  int64      `json:"authorId" validate:"required,gt=0"`
	Review    string     `json:"review" validate:"required,notblank"`
	Approved  bool       `json:"approved"`
}

type UserDTO struct {
	ID           int64      `json:"id,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
	LoginName    string     `json:"loginName" validate:"required,notblank,max=64"`
	EmailAddress string     `json:"emailAddress" validate:"required,email"`
	FirstName    string     `json:"firstName" validate:"required,notblank"`
	LastName     string     `json:"lastName" validate:"required,notblank"`
}

type PosDTO struct {
	ID          int64      `json:"id,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
	Name        string     `json:"name" validate:"required,notblank"`
	Description string     `json:"description"`
	Type        string     `json:"type" validate:"required,oneof=CAFE VENDING_MACHINE BAKERY CAFETERIA"`
	Campus      string     `json:"campus" validate:"required,oneof=ALTSTADT BERGHEIM INF"`
	Street      string     `json:"street"`
	HouseNumber string     `json:"houseNumber"`
	PostalCode  int        `json:"postalCode" validate:"gte=0,lte=99999"`
	City        string     `json:"city"`
}

func init() {
	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

// decodeBody reads a single JSON object into dst and validates it.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.Invalid(fmt.Sprintf("malformed JSON body: %v", err))
	}
	if err := validate.Struct(dst); err != nil {
		return domain.Invalid(validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed on %q", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func toReviewDTO(r domain.Review) ReviewDTO {
	return ReviewDTO{
		ID: r.ID, CreatedAt: timePtr(r.CreatedAt), UpdatedAt: timePtr(r.UpdatedAt),
		PosID: r.PosID, AuthorID: r.AuthorID, Review: r.Text, Approved: r.Approved,
	}
}

// fromReviewDTO ignores Approved; the service derives it.
func fromReviewDTO(d ReviewDTO) domain.Review {
	return domain.Review{ID: d.ID, PosID: d.PosID, AuthorID: d.AuthorID, Text: strings.TrimSpace(d.Review)}
}

func toUserDTO(u domain.User) UserDTO {
	return UserDTO{
		ID: u.ID, CreatedAt: timePtr(u.CreatedAt), UpdatedAt: timePtr(u.UpdatedAt),
		LoginName: u.LoginName, EmailAddress: u.EmailAddress, FirstName: u.FirstName, LastName: u.LastName,
	}
}

func fromUserDTO(d UserDTO) domain.User {
	return domain.User{
		ID: d.ID, LoginName: d.LoginName, EmailAddress: d.EmailAddress, FirstName: d.FirstName, LastName: d.LastName,
	}
}

func toPosDTO(p domain.Pos) PosDTO {
	return PosDTO{
		ID: p.ID, CreatedAt: timePtr(p.CreatedAt), UpdatedAt: timePtr(p.UpdatedAt),
		Name: p.Name, Description: p.Description, Type: string(p.Type), Campus: string(p.Campus),
		Street: p.Street, HouseNumber: p.HouseNumber, PostalCode: p.PostalCode, City: p.City,
	}
}

func fromPosDTO(d PosDTO) domain.Pos {
	return domain.Pos{
		ID: d.ID, Name: d.Name, Description: d.Description, Type: domain.PosType(d.Type), Campus: domain.CampusType(d.Campus),
		Street: d.Street, HouseNumber: d.HouseNumber, PostalCode: d.PostalCode, City: d.City,
	}
}

func mapSlice[T, D any](in []T, f func(T) D) []D {
	out := make([]D, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}
