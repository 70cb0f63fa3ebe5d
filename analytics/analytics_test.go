package analytics

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fernwiki/fern/models"
)

func newTestAnalytics(t *testing.T) *Analytics {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "analytics.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Serialize transactions; sqlite allows one writer at a time.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.PageView{}, &models.ViewStamp{}))
	return New(db)
}

func TestTrackCreatesThenIncrements(t *testing.T) {
	a := newTestAnalytics(t)
	today := time.Now().Format("2006-01-02")

	require.NoError(t, a.Track("home"))
	count, err := a.ViewCount("home")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	days, err := a.DailyCounts("home")
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, today, days[0].Day)
	assert.Equal(t, int64(1), days[0].Count)

	require.NoError(t, a.Track("home"))
	count, err = a.ViewCount("home")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	days, err = a.DailyCounts("home")
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, int64(2), days[0].Count)
}

func TestTrackSequentialN(t *testing.T) {
	a := newTestAnalytics(t)
	const n = 25
	for i := 0; i < n; i++ {
		require.NoError(t, a.Track("home"))
	}

	count, err := a.ViewCount("home")
	require.NoError(t, err)
	assert.Equal(t, int64(n), count)

	days, err := a.DailyCounts("home")
	require.NoError(t, err)
	var sum int64
	for _, d := range days {
		sum += d.Count
	}
	assert.Equal(t, int64(n), sum)
}

func TestViewCountUnknownPage(t *testing.T) {
	a := newTestAnalytics(t)

	_, err := a.ViewCount("never-seen")
	assert.ErrorIs(t, err, ErrNotFound)

	days, err := a.DailyCounts("never-seen")
	require.NoError(t, err)
	assert.Empty(t, days)
}

func TestViewsAlwaysMatchStampCount(t *testing.T) {
	a := newTestAnalytics(t)
	require.NoError(t, a.Track("a"))
	require.NoError(t, a.Track("a"))
	require.NoError(t, a.Track("b"))

	for _, page := range []string{"a", "b"} {
		var record models.PageView
		require.NoError(t, a.db.Where("page = ?", page).First(&record).Error)
		var stamps int64
		require.NoError(t, a.db.Model(&models.ViewStamp{}).Where("page_view_id = ?", record.ID).Count(&stamps).Error)
		assert.Equal(t, record.Views, stamps, "page %s", page)
	}
}

func TestTrackConcurrentLosesNoIncrements(t *testing.T) {
	a := newTestAnalytics(t)
	const workers = 8
	const perWorker = 10

	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				errs <- a.Track("home")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	count, err := a.ViewCount("home")
	require.NoError(t, err)
	assert.Equal(t, int64(workers*perWorker), count)

	days, err := a.DailyCounts("home")
	require.NoError(t, err)
	var sum int64
	for _, d := range days {
		sum += d.Count
	}
	assert.Equal(t, int64(workers*perWorker), sum)
}

func TestPurge(t *testing.T) {
	a := newTestAnalytics(t)
	require.NoError(t, a.Track("doomed"))
	require.NoError(t, a.Track("doomed"))
	require.NoError(t, a.Track("kept"))

	require.NoError(t, a.Purge("doomed"))

	_, err := a.ViewCount("doomed")
	assert.ErrorIs(t, err, ErrNotFound)

	var stamps int64
	require.NoError(t, a.db.Model(&models.ViewStamp{}).Count(&stamps).Error)
	assert.Equal(t, int64(1), stamps)

	// Purging an untracked page is a no-op.
	require.NoError(t, a.Purge("doomed"))
}
