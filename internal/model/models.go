package model

import (
	"time"
)

// Scan statuses. Transitions are monotonic:
// pending -> running -> completed|failed.
const (
	ScanStatusPending   = "pending"
	ScanStatusRunning   = "running"
	ScanStatusCompleted = "completed"
	ScanStatusFailed    = "failed"
)

// Product selection modes for a scan.
const (
	SelectionAll      = "all"
	SelectionSpecific = "specific"
)

// StoreLocation is a physical retail outlet.
//
// Locations are seeded once from the static dataset at startup and are only
// mutated afterwards by the coordinate backfill job. Only active locations
// with resolved coordinates qualify for distance-based selection.
type StoreLocation struct {
	ID        string `gorm:"type:varchar(32);primaryKey"` // chain-prefixed code, e.g. "hd-0206"
	Retailer  string `gorm:"type:varchar(32);index;not null"`
	Address   string
	City      string
	State     string `gorm:"type:varchar(2)"`
	Zip       string `gorm:"type:varchar(10);index"`
	Phone     string
	Latitude  *float64 // nil until geocoded
	Longitude *float64
	Hours     string
	Active    bool `gorm:"default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Geocoded reports whether the location has usable coordinates.
func (s *StoreLocation) Geocoded() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// Scan is one user-initiated clearance search against a retailer.
//
// The subscription plan is snapshotted at creation time so a mid-month plan
// change never rewrites history. Rows become read-mostly once terminal and
// are purged by the retention janitor.
type Scan struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	UserID   uint   `gorm:"not null;index"`
	User     User   `gorm:"foreignKey:UserID"`
	Retailer string `gorm:"type:varchar(32);not null"`
	Zip      string `gorm:"type:varchar(10);not null"`
	Plan     string `gorm:"type:varchar(32);not null"` // plan snapshot at creation

	Selection     string `gorm:"type:varchar(16);default:all"` // "all" / "specific"
	SKUs          string // comma-separated allow-list when Selection == "specific"
	ClearanceOnly bool
	Category      string
	MaxPrice      float64 // 0 means no price ceiling
	SortBy        string  `gorm:"type:varchar(16)"` // "savings" / "price" / "name"

	StoreCount     int    // resolved target store count
	Status         string `gorm:"type:varchar(16);default:pending;index"`
	CompletedAt    *time.Time
	ResultCount    int
	ClearanceCount int

	Results []ScanResult `gorm:"foreignKey:ScanID"`
}

// Terminal reports whether the scan has reached a final state.
func (s *Scan) Terminal() bool {
	return s.Status == ScanStatusCompleted || s.Status == ScanStatusFailed
}

// ScanResult is one discovered product observation tied to a scan.
//
// Rows are immutable once written and are not deduplicated across scans;
// they are deleted together with their parent scan.
type ScanResult struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	ScanID    uint   `gorm:"not null;index"`
	StoreID   string `gorm:"type:varchar(32);not null"`
	StoreName string

	ProductName     string
	SKU             string `gorm:"type:varchar(32)"`
	ProductURL      string
	ClearancePrice  float64
	WasPrice        float64
	SavePercent     int
	InStock         bool
	DeliveryMessage string
	IsOnClearance   bool
	PriceSuppressed bool // price hidden online, in-store only
	Category        string
	Source          string `gorm:"type:varchar(8)"` // "mock" / "alt" / "api"
	ObservedAt      time.Time
	InStorePurchase bool
}
