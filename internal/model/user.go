package model

import "time"

// User represents an account holder.
//
// Only the subscription aspect matters to the scan core: the ZIP anchors
// store selection and the plan tier controls quotas. A plan change applies
// to the next scan, never retroactively.
type User struct {
	ID        uint   `gorm:"primaryKey"`
	Email     string `gorm:"type:varchar(191);uniqueIndex"`
	Password  string `gorm:"not null"` // bcrypt hash
	Zip       string `gorm:"type:varchar(10)"`
	Plan      string `gorm:"type:varchar(32);default:free"`
	CreatedAt time.Time

	Scans []Scan `gorm:"foreignKey:UserID"`
}
