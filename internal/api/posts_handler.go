package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AndreasDit/Contento/internal/logging"
	"github.com/AndreasDit/Contento/internal/models"
	"github.com/AndreasDit/Contento/internal/queue"
)

// PostHandler serves CRUD over the queue store.
type PostHandler struct {
	store  *queue.Store
	logger *slog.Logger
}

func NewPostHandler(store *queue.Store, logger *slog.Logger) *PostHandler {
	return &PostHandler{store: store, logger: logger}
}

// PostResponse is a record plus its store-relative path.
type PostResponse struct {
	Path string `json:"path"`
	models.Post
}

// InvalidRecord names a queue file that could not be parsed.
type InvalidRecord struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// List handles GET /v1/posts. Malformed files are reported under "invalid"
// instead of failing the listing.
func (h *PostHandler) List(c *gin.Context) {
	field, err := queue.ParseSortField(c.Query("sort"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var descending bool
	switch strings.ToLower(c.DefaultQuery("order", "asc")) {
	case "asc":
	case "desc":
		descending = true
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "order must be one of: asc, desc"})
		return
	}

	filter := queue.Filter{
		Content:  c.Query("content"),
		Hashtags: c.Query("hashtags"),
		Platform: c.Query("platform"),
	}
	if filter.Platform != "" {
		platform, err := models.ParsePlatform(filter.Platform)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.Platform = string(platform)
	}

	records, err := h.store.Records()
	if err != nil {
		h.fail(c, err)
		return
	}
	records = filter.Apply(records)
	queue.SortRecords(records, field, descending)

	out := make([]PostResponse, 0, len(records))
	invalid := make([]InvalidRecord, 0)
	for _, rec := range records {
		if rec.Broken() {
			invalid = append(invalid, InvalidRecord{Path: rec.RelPath, Error: rec.Err.Err.Error()})
			continue
		}
		out = append(out, PostResponse{Path: rec.RelPath, Post: rec.Post})
	}
	c.JSON(http.StatusOK, gin.H{"posts": out, "count": len(out), "invalid": invalid})
}

// Get handles GET /v1/posts/:platform/:id
func (h *PostHandler) Get(c *gin.Context) {
	rel, ok := h.pathParams(c)
	if !ok {
		return
	}
	post, err := h.store.Read(rel)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, PostResponse{Path: rel, Post: *post})
}

// Create handles POST /v1/posts. The id is optional; an existing record with
// the same platform and id is overwritten.
func (h *PostHandler) Create(c *gin.Context) {
	var post models.Post
	if err := c.ShouldBindJSON(&post); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h.save(c, &post, http.StatusCreated)
}

// Update handles PUT /v1/posts/:platform/:id for an existing record.
func (h *PostHandler) Update(c *gin.Context) {
	rel, ok := h.pathParams(c)
	if !ok {
		return
	}
	if _, err := h.store.Read(rel); err != nil && !errors.Is(err, queue.ErrParse) {
		h.fail(c, err)
		return
	}

	var post models.Post
	if err := c.ShouldBindJSON(&post); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	post.Platform = strings.ToLower(c.Param("platform"))
	post.ID = c.Param("id")
	h.save(c, &post, http.StatusOK)
}

// Delete handles DELETE /v1/posts/:platform/:id
func (h *PostHandler) Delete(c *gin.Context) {
	rel, ok := h.pathParams(c)
	if !ok {
		return
	}
	if err := h.store.Delete(rel); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// NewID handles GET /v1/ids/new
func (h *PostHandler) NewID(c *gin.Context) {
	id, err := h.store.GenerateUniqueID()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (h *PostHandler) save(c *gin.Context, post *models.Post, status int) {
	if post.DatetimeForPost == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "datetime_for_post is required"})
		return
	}
	if err := post.Validate(); err != nil {
		h.fail(c, err)
		return
	}
	filename, err := h.store.Save(post)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(status, PostResponse{Path: queue.RelPath(post.Platform, post.ID), Post: *post})
	h.logger.Debug("record written", logging.String("file", filename))
}

func (h *PostHandler) pathParams(c *gin.Context) (string, bool) {
	platform, err := models.ParsePlatform(c.Param("platform"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	id := c.Param("id")
	if !models.ValidID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrInvalidID.Error()})
		return "", false
	}
	return queue.RelPath(string(platform), id), true
}

func (h *PostHandler) fail(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", logging.String("path", c.Request.URL.Path), logging.Error(err))
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// StatusFor maps store and validation errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, queue.ErrInvalidPlatform),
		errors.Is(err, queue.ErrInvalidPath),
		errors.Is(err, models.ErrUnknownPlatform),
		errors.Is(err, models.ErrInvalidID),
		errors.Is(err, models.ErrInvalidSchedule):
		return http.StatusBadRequest
	case errors.Is(err, queue.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, queue.ErrParse):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
