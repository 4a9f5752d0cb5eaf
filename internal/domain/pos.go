package domain

import "time"

type PosType string

const (
	PosCafe           PosType = "CAFE"
	PosVendingMachine PosType = "VENDING_MACHINE"
	PosBakery         PosType = "BAKERY"
	PosCafeteria      PosType = "CAFETERIA"
)

type CampusType string

const (
	CampusAltstadt CampusType = "ALTSTADT"
	CampusBergheim CampusType = "BERGHEIM"
	CampusINF      CampusType = "INF"
)

// Pos is a point of sale reviews are written about.
type Pos struct {
	ID          int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Name        string
	Description string
	Type        PosType
	Campus      CampusType
	Street      string
	HouseNumber string
	PostalCode  int
	City        string
}

func (p Pos) GetID() int64 { return p.ID }
func (p Pos) IsNew() bool  { return p.ID == 0 }
