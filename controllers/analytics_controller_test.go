package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fernwiki/fern/analytics"
	"github.com/fernwiki/fern/models"
)

func newAnalyticsRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "analytics.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.PageView{}, &models.ViewStamp{}))

	ac := NewAnalyticsController(analytics.New(db))
	r := gin.New()
	r.POST("/track_page_view", ac.TrackPageView)
	r.POST("/get_view_count", ac.GetViewCount)
	r.POST("/get_timestamps", ac.GetTimestamps)
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTrackPageViewEndpoint(t *testing.T) {
	r := newAnalyticsRouter(t)

	w := postJSON(r, "/track_page_view", `{"page":"home"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Page view tracked successfully", w.Body.String())

	w = postJSON(r, "/track_page_view", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetViewCountEndpoint(t *testing.T) {
	r := newAnalyticsRouter(t)
	postJSON(r, "/track_page_view", `{"page":"home"}`)
	postJSON(r, "/track_page_view", `{"page":"home"}`)

	w := postJSON(r, "/get_view_count", `{"page":"home"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]int64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp["view_count"])

	w = postJSON(r, "/get_view_count", `{"page":"never-seen"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	var errResp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "Page not found", errResp["error"])
}

func TestGetTimestampsEndpoint(t *testing.T) {
	r := newAnalyticsRouter(t)
	postJSON(r, "/track_page_view", `{"page":"home"}`)

	w := postJSON(r, "/get_timestamps", `{"page":"home"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var days []struct {
		Day   string `json:"day"`
		Count int64  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &days))
	require.Len(t, days, 1)
	assert.Equal(t, time.Now().Format("2006-01-02"), days[0].Day)
	assert.Equal(t, int64(1), days[0].Count)

	// Untracked pages produce an empty list, not an error.
	w = postJSON(r, "/get_timestamps", `{"page":"never-seen"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
}
