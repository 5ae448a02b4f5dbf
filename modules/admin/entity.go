package admin

import "time"

// Admin is a back-office account allowed to manage stock and orders.
type Admin struct {
	ID           string    `gorm:"primarykey;size:36" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:254;not null" json:"email"`
	PasswordHash string    `gorm:"size:100;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the table name for Admin model.
func (Admin) TableName() string {
	return "admins"
}
