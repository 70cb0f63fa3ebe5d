package analytics

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fernwiki/fern/models"
)

// ErrNotFound indicates no view record exists for the requested page.
var ErrNotFound = errors.New("page view record not found")

// DailyCount is one day's aggregated view count for a page.
type DailyCount struct {
	Day   string `json:"day"` // YYYY-MM-DD
	Count int64  `json:"count"`
}

// Analytics persists per-page view counters and day-granular view stamps.
// The counter and its stamps move together: Track performs both writes in one
// transaction so the views count always equals the number of recorded stamps.
type Analytics struct {
	db *gorm.DB
}

// New creates an Analytics service over the given database handle.
func New(db *gorm.DB) *Analytics {
	return &Analytics{db: db}
}

// Track records one view of page: the counter row is created with views=1 on
// first sight or atomically incremented in the database, and a stamp for the
// current day is appended. Safe under concurrent callers; no increments are
// lost and no counter moves without a matching stamp.
func (a *Analytics) Track(page string) error {
	day := time.Now().Format("2006-01-02")
	return a.db.Transaction(func(tx *gorm.DB) error {
		// Upsert with an in-database increment, mirroring how concurrent counters
		// must be bumped to avoid read-modify-write races.
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "page"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"views":      gorm.Expr("views + 1"),
				"updated_at": time.Now(),
			}),
		}).Create(&models.PageView{Page: page, Views: 1}).Error; err != nil {
			return err
		}

		var record models.PageView
		if err := tx.Where("page = ?", page).First(&record).Error; err != nil {
			return err
		}
		return tx.Create(&models.ViewStamp{PageViewID: record.ID, Day: day}).Error
	})
}

// ViewCount returns the current view counter for page, or ErrNotFound when the
// page was never tracked.
func (a *Analytics) ViewCount(page string) (int64, error) {
	var record models.PageView
	if err := a.db.Where("page = ?", page).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return record.Views, nil
}

// DailyCounts groups the page's view stamps by calendar day, ascending by day.
// An untracked page yields an empty slice, not an error.
func (a *Analytics) DailyCounts(page string) ([]DailyCount, error) {
	counts := []DailyCount{}
	err := a.db.Model(&models.ViewStamp{}).
		Select("view_stamps.day AS day, COUNT(*) AS count").
		Joins("JOIN page_views ON view_stamps.page_view_id = page_views.id").
		Where("page_views.page = ?", page).
		Group("view_stamps.day").
		Order("view_stamps.day ASC").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// Purge removes the page's counter and all its stamps in one transaction.
// Called when a page is deleted so analytics rows do not orphan.
func (a *Analytics) Purge(page string) error {
	return a.db.Transaction(func(tx *gorm.DB) error {
		var record models.PageView
		if err := tx.Where("page = ?", page).First(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil // nothing tracked, nothing to purge
			}
			return err
		}
		if err := tx.Where("page_view_id = ?", record.ID).Delete(&models.ViewStamp{}).Error; err != nil {
			return err
		}
		return tx.Delete(&record).Error
	})
}
