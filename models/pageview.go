package models

import "time"

// PageView stores the running view counter for one wiki page. The counter is
// only ever moved together with a ViewStamp insert, inside one transaction, so
// Views always equals the number of stamps for the record.
type PageView struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Page      string    `gorm:"uniqueIndex;size:255;not null" json:"page"`
	Views     int64     `gorm:"not null;default:0" json:"views"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ViewStamp records one tracked view event at day granularity.
type ViewStamp struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	PageViewID uint   `gorm:"index;not null" json:"page_view_id"`
	Day        string `gorm:"size:10;not null" json:"day"` // YYYY-MM-DD
}
