package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fernwiki/fern/analytics"
	"github.com/fernwiki/fern/utils"
	"github.com/fernwiki/fern/wiki"
)

// PageViewRecorder feeds successful page displays into analytics after the
// handler has run. Clients may also track explicitly via /track_page_view;
// this middleware covers direct API reads.
func PageViewRecorder(tracker *analytics.Analytics) gin.HandlerFunc {
	const prefix = "/api/v1/pages/"
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != "GET" {
			return
		}
		status := c.Writer.Status()
		if status < 200 || status >= 400 {
			return
		}

		path := c.Request.URL.Path
		if !strings.HasPrefix(path, prefix) {
			return
		}
		// Track under the normalized url so case variants of one page share a
		// single record and the delete-time purge reaches it.
		page, err := wiki.NormalizeURL(strings.TrimPrefix(path, prefix))
		if err != nil {
			return
		}

		if err := tracker.Track(page); err != nil && utils.Sugar != nil {
			utils.Sugar.Warnf("page view tracking failed page=%s err=%v", page, err)
		}
	}
}
