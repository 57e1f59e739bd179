package post

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/post-views-api/model"
	"github.com/sahilchouksey/post-views-api/services"
	"github.com/sahilchouksey/post-views-api/utils/response"
	"github.com/sahilchouksey/post-views-api/utils/validation"
	"gorm.io/gorm"
)

var validStatuses = map[string]bool{
	model.PostStatusDraft:   true,
	model.PostStatusPublish: true,
	model.PostStatusPrivate: true,
	model.PostStatusTrash:   true,
}

var validTypes = map[string]bool{
	"post":       true,
	"page":       true,
	"attachment": true,
}

// PostHandler handles post CRUD and the admin list table
type PostHandler struct {
	db      *gorm.DB
	views   *services.ViewsService
	signals *services.SignalService
}

// NewPostHandler creates a new post handler
func NewPostHandler(db *gorm.DB, views *services.ViewsService, signals *services.SignalService) *PostHandler {
	return &PostHandler{
		db:      db,
		views:   views,
		signals: signals,
	}
}

// CreatePostRequest represents a post creation request
type CreatePostRequest struct {
	Title  string `json:"title" validate:"required"`
	Slug   string `json:"slug"`
	Type   string `json:"type"`
	Status string `json:"status"`
}

// UpdatePostRequest represents a post update request; nil fields are left
// unchanged
type UpdatePostRequest struct {
	Title  *string `json:"title"`
	Slug   *string `json:"slug"`
	Status *string `json:"status"`
}

// PostListItem is one row of the admin list table, enriched with the view
// total and the traffic verdict
type PostListItem struct {
	model.Post
	Views  int64             `json:"views"`
	Signal *services.Verdict `json:"signal"`
}

func parsePostID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid post id")
	}
	return uint(id), nil
}

func slugify(s string) string {
	s = strings.ToLower(validation.SanitizeString(s))
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return strings.Join(fields, "-")
}

// CreatePost creates a new tracked post
func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	var req CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	req.Title = validation.SanitizeString(req.Title)
	if req.Title == "" {
		return response.BadRequest(c, "Title is required")
	}

	if req.Type == "" {
		req.Type = "post"
	}
	if !validTypes[req.Type] {
		return response.BadRequest(c, "Invalid post type")
	}

	if req.Status == "" {
		req.Status = model.PostStatusDraft
	}
	if !validStatuses[req.Status] {
		return response.BadRequest(c, "Invalid post status")
	}

	slug := slugify(req.Slug)
	if slug == "" {
		slug = slugify(req.Title)
	}
	if slug == "" {
		return response.BadRequest(c, "Could not derive a slug from the title")
	}

	var authorID uint
	if id, ok := c.Locals("user_id").(uint); ok {
		authorID = id
	}

	post := model.Post{
		Title:    req.Title,
		Slug:     slug,
		Type:     req.Type,
		Status:   req.Status,
		AuthorID: authorID,
	}

	if err := h.db.WithContext(c.UserContext()).Create(&post).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "unique") {
			return response.Conflict(c, "A post with this slug already exists")
		}
		return response.InternalServerError(c, "Failed to create post")
	}

	return response.Created(c, post)
}

// GetPost returns a single post
func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	id, err := parsePostID(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	var post model.Post
	if err := h.db.WithContext(c.UserContext()).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Post not found")
		}
		return response.InternalServerError(c, "Failed to load post")
	}

	return response.Success(c, post)
}

// ListPosts returns the paginated admin list table. Each row carries the
// lifetime view total and, for anomalous traffic, the signal verdict.
func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := h.db.WithContext(c.UserContext()).Model(&model.Post{})

	if postType := c.Query("type"); postType != "" {
		query = query.Where("type = ?", postType)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count posts")
	}

	var posts []model.Post
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to load posts")
	}

	items := make([]PostListItem, 0, len(posts))
	for _, p := range posts {
		views, err := h.views.PostViews(c.UserContext(), p.ID, services.PeriodTotal)
		if err != nil {
			views = 0
		}
		items = append(items, PostListItem{
			Post:   p,
			Views:  views,
			Signal: h.signals.Detect(c.UserContext(), p.ID),
		})
	}

	return response.Success(c, fiber.Map{
		"posts": items,
		"page":  page,
		"limit": limit,
		"total": total,
	})
}

// UpdatePost updates a post. Status transitions drop the post's cached
// traffic verdict.
func (h *PostHandler) UpdatePost(c *fiber.Ctx) error {
	id, err := parsePostID(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	var req UpdatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	var post model.Post
	if err := h.db.WithContext(c.UserContext()).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Post not found")
		}
		return response.InternalServerError(c, "Failed to load post")
	}

	oldStatus := post.Status
	updates := map[string]interface{}{}

	if req.Title != nil {
		title := validation.SanitizeString(*req.Title)
		if title == "" {
			return response.BadRequest(c, "Title cannot be empty")
		}
		updates["title"] = title
	}
	if req.Slug != nil {
		slug := slugify(*req.Slug)
		if slug == "" {
			return response.BadRequest(c, "Invalid slug")
		}
		updates["slug"] = slug
	}
	if req.Status != nil {
		if !validStatuses[*req.Status] {
			return response.BadRequest(c, "Invalid post status")
		}
		updates["status"] = *req.Status
	}

	if len(updates) == 0 {
		return response.Success(c, post)
	}

	if err := h.db.WithContext(c.UserContext()).Model(&post).Updates(updates).Error; err != nil {
		return response.InternalServerError(c, "Failed to update post")
	}

	h.signals.InvalidateOnStatusChange(c.UserContext(), post.ID, oldStatus, post.Status)

	return response.Success(c, post)
}

// DeletePost soft-deletes a post and drops its cached traffic verdict
func (h *PostHandler) DeletePost(c *fiber.Ctx) error {
	id, err := parsePostID(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	res := h.db.WithContext(c.UserContext()).Delete(&model.Post{}, id)
	if res.Error != nil {
		return response.InternalServerError(c, "Failed to delete post")
	}
	if res.RowsAffected == 0 {
		return response.NotFound(c, "Post not found")
	}

	h.signals.Invalidate(c.UserContext(), id)

	return response.SuccessWithMessage(c, "Post deleted", nil)
}

// SetViewsRequest represents a quick-edit view count override
type SetViewsRequest struct {
	Views int64 `json:"views"`
}

// SetPostViews overwrites the lifetime view total for a post
func (h *PostHandler) SetPostViews(c *fiber.Ctx) error {
	id, err := parsePostID(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	var req SetViewsRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Views < 0 {
		return response.BadRequest(c, "Views cannot be negative")
	}

	var post model.Post
	if err := h.db.WithContext(c.UserContext()).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Post not found")
		}
		return response.InternalServerError(c, "Failed to load post")
	}

	if err := h.views.SetViews(c.UserContext(), id, req.Views); err != nil {
		return response.InternalServerError(c, "Failed to set views")
	}

	return response.SuccessWithMessage(c, "Views updated", fiber.Map{
		"post_id": id,
		"views":   req.Views,
	})
}

// ResetPostViews deletes all view data for a single post
func (h *PostHandler) ResetPostViews(c *fiber.Ctx) error {
	id, err := parsePostID(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	if err := h.views.ResetViews(c.UserContext(), id); err != nil {
		return response.InternalServerError(c, "Failed to reset views")
	}

	return response.SuccessWithMessage(c, "Views reset", fiber.Map{"post_id": id})
}
