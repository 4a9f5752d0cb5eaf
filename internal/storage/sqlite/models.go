package sqlite

import (
	"time"

	"campus_coffee/internal/domain"
)

// GORM models stay in this package; the domain types carry no ORM tags.

type UserModel struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	LoginName    string `gorm:"not null;uniqueIndex"`
	EmailAddress string `gorm:"not null;uniqueIndex"`
	FirstName    string `gorm:"not null"`
	LastName     string `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (UserModel) TableName() string { return "users" }

type PosModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"not null;uniqueIndex"`
	Description string `gorm:"not null;default:''"`
	Type        string `gorm:"not null"`
	Campus      string `gorm:"not null"`
	Street      string `gorm:"not null;default:''"`
	HouseNumber string `gorm:"not null;default:''"`
	PostalCode  int    `gorm:"not null;default:0"`
	City        string `gorm:"not null;default:''"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (PosModel) TableName() string { return "pos" }

type ReviewModel struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	PosID         int64     `gorm:"not null;uniqueIndex:uq_reviews_pos_author,priority:1;index:idx_reviews_pos_approved,priority:1"`
	Pos           PosModel  `gorm:"foreignKey:PosID;constraint:OnDelete:RESTRICT"`
	AuthorID      int64     `gorm:"not null;uniqueIndex:uq_reviews_pos_author,priority:2"`
	Author        UserModel `gorm:"foreignKey:AuthorID;constraint:OnDelete:RESTRICT"`
	Text          string    `gorm:"not null"`
	ApprovalCount int       `gorm:"not null"`
	Approved      bool      `gorm:"not null;index:idx_reviews_pos_approved,priority:2"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (ReviewModel) TableName() string { return "reviews" }

func toUserModel(u domain.User) UserModel {
	return UserModel{
		ID: u.ID, LoginName: u.LoginName, EmailAddress: u.EmailAddress,
		FirstName: u.FirstName, LastName: u.LastName,
	}
}

func toUserDomain(m UserModel) domain.User {
	return domain.User{
		ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
		LoginName: m.LoginName, EmailAddress: m.EmailAddress, FirstName: m.FirstName, LastName: m.LastName,
	}
}

func toPosModel(p domain.Pos) PosModel {
	return PosModel{
		ID: p.ID, Name: p.Name, Description: p.Description, Type: string(p.Type), Campus: string(p.Campus),
		Street: p.Street, HouseNumber: p.HouseNumber, PostalCode: p.PostalCode, City: p.City,
	}
}

func toPosDomain(m PosModel) domain.Pos {
	return domain.Pos{
		ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
		Name: m.Name, Description: m.Description, Type: domain.PosType(m.Type), Campus: domain.CampusType(m.Campus),
		Street: m.Street, HouseNumber: m.HouseNumber, PostalCode: m.PostalCode, City: m.City,
	}
}

func toReviewModel(r domain.Review) ReviewModel {
	return ReviewModel{
		ID: r.ID, PosID: r.PosID, AuthorID: r.AuthorID, Text: r.Text,
		ApprovalCount: r.ApprovalCount, Approved: r.Approved,
	}
}

func toReviewDomain(m ReviewModel) domain.Review {
	return domain.Review{
		ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt, PosID: m.PosID, AuthorID: m.AuthorID,
		Text: m.Text, ApprovalCount: m.ApprovalCount, Approved: m.Approved,
	}
}
