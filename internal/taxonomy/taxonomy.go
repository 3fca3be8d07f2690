// Package taxonomy is the closed vocabulary of reclaimed materials: the
// categories, material types, conditions and per-type enumerations, and the
// attribute schema each material type carries.
//
// Every slice in this package is the single source of truth for its value
// set. Validation, the database CHECK constraints and the spreadsheet
// dropdowns are all derived from it.
package taxonomy

// Category groups materials for browsing.
type Category string

// Categories.
const (
	CategoryFurniture Category = "Furniture"
	CategoryWindows   Category = "Windows"
	CategoryDoors     Category = "Doors"
	CategoryStorage   Category = "Storage"
)

// MaterialType selects the attribute schema of a record.
type MaterialType string

// Material types.
const (
	TypeDesk          MaterialType = "DESK"
	TypeWindow        MaterialType = "WINDOW"
	TypeDoor          MaterialType = "DOOR"
	TypeDrawerUnit    MaterialType = "DRAWER_UNIT"
	TypeOfficeCabinet MaterialType = "OFFICE_CABINET"
)

// Condition describes how reusable a material is.
type Condition string

// Conditions.
const (
	ConditionReusable   Condition = "Reusable"
	ConditionRepairable Condition = "Repairable"
	ConditionDamaged    Condition = "Damaged"
)

// DeskType is the shape of a desk.
type DeskType string

const (
	DeskCorner   DeskType = "CORNER_DESK"
	DeskStraight DeskType = "STRAIGHT_DESK"
)

// WindowOpening is how a window opens.
type WindowOpening string

const (
	WindowFixedPane WindowOpening = "FIXED_PANE"
	WindowTopHung   WindowOpening = "TOP_HUNG"
	WindowSideHung  WindowOpening = "SIDE_HUNG"
	WindowTilt      WindowOpening = "TILT"
	WindowSliding   WindowOpening = "SLIDING"
)

// HingeSide is the hinge position of a window.
type HingeSide string

const (
	HingeRight  HingeSide = "RIGHT"
	HingeLeft   HingeSide = "LEFT"
	HingeTop    HingeSide = "TOP"
	HingeBottom HingeSide = "BOTTOM"
	HingeNone   HingeSide = "NONE"
)

// SwingDirection is the swing of a door.
type SwingDirection string

const (
	SwingRight SwingDirection = "RIGHT"
	SwingLeft  SwingDirection = "LEFT"
)

// CabinetOpening is the front of an office cabinet.
type CabinetOpening string

const (
	CabinetDoors        CabinetOpening = "DOORS"
	CabinetSlidingDoors CabinetOpening = "SLIDING_DOORS"
	CabinetNoDoors      CabinetOpening = "NO_DOORS"
)

// Option is one selectable value with its display label.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var categories = []Option{
	{string(CategoryFurniture), "Furniture"},
	{string(CategoryWindows), "Windows"},
	{string(CategoryDoors), "Doors"},
	{string(CategoryStorage), "Storage"},
}

var materialTypes = []Option{
	{string(TypeDesk), "Desk"},
	{string(TypeDoor), "Door"},
	{string(TypeWindow), "Window"},
	{string(TypeOfficeCabinet), "Office Cabinet"},
	{string(TypeDrawerUnit), "Drawer Unit"},
}

var conditions = []Option{
	{string(ConditionReusable), "Reusable"},
	{string(ConditionRepairable), "Repairable"},
	{string(ConditionDamaged), "Damaged"},
}

var deskTypes = []Option{
	{string(DeskCorner), "Corner Desk"},
	{string(DeskStraight), "Straight Desk"},
}

var windowOpenings = []Option{
	{string(WindowFixedPane), "Fixed Pane"},
	{string(WindowTopHung), "Top Hung"},
	{string(WindowSideHung), "Side Hung"},
	{string(WindowTilt), "Tilt"},
	{string(WindowSliding), "Sliding"},
}

var hingeSides = []Option{
	{string(HingeRight), "Right"},
	{string(HingeLeft), "Left"},
	{string(HingeTop), "Top"},
	{string(HingeBottom), "Bottom"},
	{string(HingeNone), "None"},
}

var swingDirections = []Option{
	{string(SwingRight), "Right"},
	{string(SwingLeft), "Left"},
}

var cabinetOpenings = []Option{
	{string(CabinetDoors), "Doors"},
	{string(CabinetSlidingDoors), "Sliding Doors"},
	{string(CabinetNoDoors), "No Doors"},
}

// Categories returns the allowed categories.
func Categories() []Option { return clone(categories) }

// MaterialTypes returns the allowed material types.
func MaterialTypes() []Option { return clone(materialTypes) }

// Conditions returns the allowed conditions.
func Conditions() []Option { return clone(conditions) }

// ValidCategory reports whether c is a known category.
func ValidCategory(c string) bool { return contains(categories, c) }

// ValidMaterialType reports whether t is a known material type.
func ValidMaterialType(t string) bool { return contains(materialTypes, t) }

// ValidCondition reports whether c is a known condition.
func ValidCondition(c string) bool { return contains(conditions, c) }

// TypeLabel returns the display label of a material type, or the raw value
// when the type is unknown.
func TypeLabel(t MaterialType) string {
	for _, o := range materialTypes {
		if o.Value == string(t) {
			return o.Label
		}
	}
	return string(t)
}

func contains(opts []Option, v string) bool {
	for _, o := range opts {
		if o.Value == v {
			return true
		}
	}
	return false
}

func clone(opts []Option) []Option {
	out := make([]Option, len(opts))
	copy(out, opts)
	return out
}
