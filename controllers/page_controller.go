package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fernwiki/fern/analytics"
	"github.com/fernwiki/fern/markdown"
	"github.com/fernwiki/fern/utils"
	"github.com/fernwiki/fern/wiki"
)

// PageController handles page CRUD, moving, tag indexes, search, preview and
// plain-text export.
type PageController struct {
	store   *wiki.Store
	tracker *analytics.Analytics
}

// NewPageController creates a PageController.
func NewPageController(store *wiki.Store, tracker *analytics.Analytics) *PageController {
	return &PageController{store: store, tracker: tracker}
}

type pageResponse struct {
	URL   string            `json:"url"`
	Title string            `json:"title"`
	Tags  []string          `json:"tags"`
	Body  string            `json:"body,omitempty"`
	Meta  map[string]string `json:"meta,omitempty"`
}

func toPageResponse(p *wiki.Page, withBody bool) pageResponse {
	resp := pageResponse{
		URL:   p.URL,
		Title: p.DisplayTitle(),
		Tags:  p.Tags,
		Meta:  p.Meta,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if withBody {
		resp.Body = p.Body
	}
	return resp
}

func toPageList(pages []*wiki.Page) []pageResponse {
	out := make([]pageResponse, 0, len(pages))
	for _, p := range pages {
		out = append(out, toPageResponse(p, false))
	}
	return out
}

func paramURL(ctx *gin.Context) string {
	return strings.Trim(ctx.Param("url"), "/")
}

const pagesIndexCacheKey = "cache:pages:index"

// Index lists all pages in deterministic url order. The listing is cached in
// redis and invalidated by every page write.
func (p *PageController) Index(ctx *gin.Context) {
	if b, ok := utils.CacheGetBytes(pagesIndexCacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	pages, err := p.store.Index()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to list pages")
		return
	}

	list := toPageList(pages)
	utils.CacheSetJSON(pagesIndexCacheKey, utils.JSONResponse{Code: 0, Message: "success", Data: list}, 5*time.Minute)
	utils.Success(ctx, list)
}

// Display returns one page with its body, 404 when absent.
func (p *PageController) Display(ctx *gin.Context) {
	page, err := p.store.GetOrFail(paramURL(ctx))
	if err != nil {
		if errors.Is(err, wiki.ErrNotFound) || errors.Is(err, wiki.ErrInvalidURL) {
			utils.Error(ctx, http.StatusNotFound, 40401, "page not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to load page")
		return
	}
	utils.Success(ctx, toPageResponse(page, true))
}

// Save creates or edits a page from submitted fields.
func (p *PageController) Save(ctx *gin.Context) {
	type request struct {
		Title string `json:"title"`
		Tags  string `json:"tags"` // comma delimited
		Body  string `json:"body"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	url := paramURL(ctx)
	page, err := p.store.Get(url)
	if err != nil {
		if errors.Is(err, wiki.ErrInvalidURL) {
			utils.Error(ctx, http.StatusBadRequest, 40002, "invalid page url")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to load page")
		return
	}
	if page == nil {
		if page, err = p.store.GetBare(url); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40002, "invalid page url")
			return
		}
	}

	page.Title = strings.TrimSpace(utils.StripHTML(req.Title))
	page.Tags = wiki.SplitTags(req.Tags)
	page.Body = req.Body
	if err := p.store.Save(page); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to save page")
		return
	}

	utils.InvalidateByPrefix("cache:pages:")
	utils.Respond(ctx, http.StatusOK, 0, fmt.Sprintf("%q was saved", page.DisplayTitle()), toPageResponse(page, true))
}

// Move renames a page's url, failing with 409 when the destination exists.
func (p *PageController) Move(ctx *gin.Context) {
	type request struct {
		URL string `json:"url" binding:"required"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	oldURL := paramURL(ctx)
	if err := p.store.Move(oldURL, req.URL); err != nil {
		switch {
		case errors.Is(err, wiki.ErrNotFound):
			utils.Error(ctx, http.StatusNotFound, 40402, "page not found")
		case errors.Is(err, wiki.ErrMoveConflict):
			utils.Error(ctx, http.StatusConflict, 40901, "destination page already exists")
		case errors.Is(err, wiki.ErrInvalidURL):
			utils.Error(ctx, http.StatusBadRequest, 40004, "invalid page url")
		default:
			utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to move page")
		}
		return
	}

	utils.InvalidateByPrefix("cache:pages:")
	page, err := p.store.GetOrFail(req.URL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to move page")
		return
	}
	utils.Success(ctx, toPageResponse(page, true))
}

// Delete removes a page and purges its analytics record so no orphan counters
// remain.
func (p *PageController) Delete(ctx *gin.Context) {
	url := paramURL(ctx)
	page, err := p.store.GetOrFail(url)
	if err != nil {
		if errors.Is(err, wiki.ErrNotFound) || errors.Is(err, wiki.ErrInvalidURL) {
			utils.Error(ctx, http.StatusNotFound, 40403, "page not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50006, "failed to load page")
		return
	}

	if err := p.store.Delete(url); err != nil {
		if errors.Is(err, wiki.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40403, "page not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50007, "failed to delete page")
		return
	}
	if err := p.tracker.Purge(page.URL); err != nil && utils.Sugar != nil {
		utils.Sugar.Warnf("analytics purge failed page=%s err=%v", page.URL, err)
	}

	utils.InvalidateByPrefix("cache:pages:")
	utils.Respond(ctx, http.StatusOK, 0, fmt.Sprintf("page %q was deleted", page.DisplayTitle()), nil)
}

// Tags returns the inverted tag index: tag -> pages carrying it.
func (p *PageController) Tags(ctx *gin.Context) {
	index, err := p.store.Tags()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50008, "failed to build tag index")
		return
	}
	out := make(map[string][]pageResponse, len(index))
	for tag, pages := range index {
		out[tag] = toPageList(pages)
	}
	utils.Success(ctx, out)
}

// Tag lists pages carrying one exact tag.
func (p *PageController) Tag(ctx *gin.Context) {
	name := ctx.Param("name")
	pages, err := p.store.IndexByTag(name)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50009, "failed to list pages by tag")
		return
	}
	utils.Success(ctx, gin.H{"tag": name, "pages": toPageList(pages)})
}

// Search runs one of the search modes over the page collection. The term is
// comma-split into fragments for the tags and title modes.
func (p *PageController) Search(ctx *gin.Context) {
	type request struct {
		Term         string `json:"term" binding:"required"`
		SearchOption string `json:"search_option"`
		IgnoreCase   bool   `json:"ignore_case"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40005, "invalid request payload")
		return
	}

	var (
		results []*wiki.Page
		err     error
	)
	switch req.SearchOption {
	case "tags":
		results, err = p.store.SearchByTags(splitTerm(req.Term), req.IgnoreCase)
	case "title":
		results, err = p.store.SearchByTitle(splitTerm(req.Term), req.IgnoreCase)
	case "body":
		results, err = p.store.SearchByBody(req.Term, req.IgnoreCase)
	default:
		results, err = p.store.Search(req.Term, req.IgnoreCase)
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "search failed")
		return
	}

	utils.Success(ctx, gin.H{"term": req.Term, "results": toPageList(results)})
}

// Preview renders submitted markup to sanitized HTML without saving anything.
func (p *PageController) Preview(ctx *gin.Context) {
	type request struct {
		Body string `json:"body"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid request payload")
		return
	}
	html, err := markdown.Render(req.Body)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to render preview")
		return
	}
	utils.Success(ctx, gin.H{"html": html})
}

// Download exports a page as plain text: title, blank line, raw body.
func (p *PageController) Download(ctx *gin.Context) {
	page, err := p.store.GetOrFail(paramURL(ctx))
	if err != nil {
		if errors.Is(err, wiki.ErrNotFound) || errors.Is(err, wiki.ErrInvalidURL) {
			utils.Error(ctx, http.StatusNotFound, 40404, "page not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to load page")
		return
	}

	content := fmt.Sprintf("%s\n\n%s", page.DisplayTitle(), page.Body)
	filename := strings.ReplaceAll(page.URL, "/", "_") + ".txt"
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	ctx.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(content))
}

func splitTerm(term string) []string {
	if !strings.Contains(term, ",") {
		return []string{term}
	}
	return strings.Split(term, ",")
}
