package model

import "github.com/erazemk/reclaim/internal/taxonomy"

// Attributes is the type-specific payload of a MaterialRecord. The set of
// implementations is closed: Desk, Window, Door, OfficeCabinet, DrawerUnit,
// plus Other for tags this build does not know.
type Attributes interface {
	MaterialType() taxonomy.MaterialType
	fill(d *Draft)
}

// Desk attributes. MaximumHeight is only meaningful when HeightAdjustable.
type Desk struct {
	DeskType         taxonomy.DeskType
	HeightAdjustable bool
	MaximumHeight    *float64
}

func (Desk) MaterialType() taxonomy.MaterialType { return taxonomy.TypeDesk }

func (a Desk) fill(d *Draft) {
	adjustable := a.HeightAdjustable
	d.DeskType = string(a.DeskType)
	d.HeightAdjustable = &adjustable
	d.MaximumHeight = copyFloat(a.MaximumHeight)
}

// Window attributes. HingeSide may be empty.
type Window struct {
	OpeningType taxonomy.WindowOpening
	HingeSide   taxonomy.HingeSide
	UValue      *float64
}

func (Window) MaterialType() taxonomy.MaterialType { return taxonomy.TypeWindow }

func (a Window) fill(d *Draft) {
	d.OpeningType = string(a.OpeningType)
	d.HingeSide = string(a.HingeSide)
	d.UValue = copyFloat(a.UValue)
}

// Door attributes.
type Door struct {
	SwingDirection taxonomy.SwingDirection
	UValue         *float64
}

func (Door) MaterialType() taxonomy.MaterialType { return taxonomy.TypeDoor }

func (a Door) fill(d *Draft) {
	d.SwingDirection = string(a.SwingDirection)
	d.UValue = copyFloat(a.UValue)
}

// OfficeCabinet attributes.
type OfficeCabinet struct {
	OpeningType taxonomy.CabinetOpening
}

func (OfficeCabinet) MaterialType() taxonomy.MaterialType { return taxonomy.TypeOfficeCabinet }

func (a OfficeCabinet) fill(d *Draft) {
	d.OpeningType = string(a.OpeningType)
}

// DrawerUnit attributes.
type DrawerUnit struct {
	HasWheels bool
}

func (DrawerUnit) MaterialType() taxonomy.MaterialType { return taxonomy.TypeDrawerUnit }

func (a DrawerUnit) fill(d *Draft) {
	wheels := a.HasWheels
	d.HasWheels = &wheels
}

// Other keeps the tag of a material type outside the taxonomy. It carries no
// fields.
type Other struct {
	Type taxonomy.MaterialType
}

func (a Other) MaterialType() taxonomy.MaterialType { return a.Type }

func (Other) fill(*Draft) {}
