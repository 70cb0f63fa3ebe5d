package middleware

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fernwiki/fern/analytics"
	"github.com/fernwiki/fern/models"
)

func newPageViewRouter(t *testing.T) (*gin.Engine, *analytics.Analytics, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "pv.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.PageView{}, &models.ViewStamp{}))

	tracker := analytics.New(db)
	r := gin.New()
	r.Use(PageViewRecorder(tracker))
	r.GET("/api/v1/pages/*url", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r, tracker, db
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestPageViewRecorderNormalizesKeys(t *testing.T) {
	r, tracker, db := newPageViewRouter(t)

	// Case variants of one page land on a single record.
	require.Equal(t, http.StatusOK, get(r, "/api/v1/pages/docs/intro").Code)
	require.Equal(t, http.StatusOK, get(r, "/api/v1/pages/Docs/Intro").Code)

	count, err := tracker.ViewCount("docs/intro")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	var records int64
	require.NoError(t, db.Model(&models.PageView{}).Count(&records).Error)
	assert.Equal(t, int64(1), records)
}

func TestPageViewRecorderSkipsInvalidURLs(t *testing.T) {
	r, _, db := newPageViewRouter(t)

	get(r, "/api/v1/pages/bad;key")
	get(r, "/api/v1/pages/")

	var records int64
	require.NoError(t, db.Model(&models.PageView{}).Count(&records).Error)
	assert.Equal(t, int64(0), records)
}
