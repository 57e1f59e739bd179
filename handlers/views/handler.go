package views

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sahilchouksey/post-views-api/model"
	"github.com/sahilchouksey/post-views-api/services"
	"github.com/sahilchouksey/post-views-api/services/settings"
	"github.com/sahilchouksey/post-views-api/utils/response"
	"gorm.io/gorm"
)

const visitorCookie = "pvc_visitor"

func parsePostID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, errors.New("invalid post id")
	}
	return uint(id), nil
}

// fingerprintNamespace seeds deterministic visitor hashes derived from the
// request itself when no token is presented
var fingerprintNamespace = uuid.MustParse("9f2c1b6e-0a84-4c5d-b1f3-7e29d4a08c11")

// ViewsHandler handles the public counting endpoint and per-post stats
type ViewsHandler struct {
	db       *gorm.DB
	views    *services.ViewsService
	charts   *services.ChartService
	registry *settings.Registry
}

// NewViewsHandler creates a new views handler
func NewViewsHandler(db *gorm.DB, views *services.ViewsService, charts *services.ChartService, registry *settings.Registry) *ViewsHandler {
	return &ViewsHandler{
		db:       db,
		views:    views,
		charts:   charts,
		registry: registry,
	}
}

// generalSettings loads the general group merged over defaults; a storage
// failure degrades to the compiled defaults so counting never breaks
func (h *ViewsHandler) generalSettings(ctx context.Context) map[string]interface{} {
	values, err := h.registry.Values(ctx, settings.GroupGeneral)
	if err != nil {
		g, _ := h.registry.Group(settings.GroupGeneral)
		return h.registry.Defaults(g)
	}
	return values
}

// trackedType reports whether the post type is enabled for counting
func trackedType(values map[string]interface{}, postType string) bool {
	switch tracked := values["post_types_count"].(type) {
	case []string:
		for _, t := range tracked {
			if t == postType {
				return true
			}
		}
	case []interface{}:
		for _, t := range tracked {
			if s, ok := t.(string); ok && s == postType {
				return true
			}
		}
	}
	return false
}

// dedupWindow reads the time-between-counts setting in minutes
func dedupWindow(values map[string]interface{}) time.Duration {
	switch v := values["time_between_counts"].(type) {
	case int:
		return time.Duration(v) * time.Minute
	case float64:
		return time.Duration(v) * time.Minute
	}
	return 0
}

// excludedVisitor applies the configured visitor exclusions: crawlers,
// logged-in users, anonymous guests, and individual IPs
func excludedVisitor(values map[string]interface{}, authenticated, bot bool, ip string) bool {
	if excludedGroup(values, "robots") && bot {
		return true
	}
	if excludedGroup(values, "users") && authenticated {
		return true
	}
	if excludedGroup(values, "guests") && !authenticated {
		return true
	}
	return excludedIP(values, ip)
}

func excludedGroup(values map[string]interface{}, group string) bool {
	switch excluded := values["exclude_groups"].(type) {
	case []string:
		for _, g := range excluded {
			if g == group {
				return true
			}
		}
	case []interface{}:
		for _, g := range excluded {
			if s, ok := g.(string); ok && s == group {
				return true
			}
		}
	}
	return false
}

func excludedIP(values map[string]interface{}, ip string) bool {
	switch ips := values["exclude_ips"].(type) {
	case []string:
		for _, e := range ips {
			if e == ip {
				return true
			}
		}
	case []interface{}:
		for _, e := range ips {
			if s, ok := e.(string); ok && s == ip {
				return true
			}
		}
	}
	return false
}

func looksLikeBot(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, marker := range []string{"bot", "crawl", "spider", "slurp", "fetch"} {
		if strings.Contains(ua, marker) {
			return true
		}
	}
	return false
}

// visitorHash resolves the dedup identity for this request. Strict mode
// ignores client-supplied tokens and derives the hash from the request
// itself, so clearing a cookie cannot mint a fresh identity.
func (h *ViewsHandler) visitorHash(c *fiber.Ctx, strict bool) string {
	if !strict {
		if token := c.Get("X-Visitor-Token"); token != "" {
			return token
		}
		if token := c.Cookies(visitorCookie); token != "" {
			return token
		}

		token := uuid.New().String()
		c.Cookie(&fiber.Cookie{
			Name:     visitorCookie,
			Value:    token,
			Expires:  time.Now().AddDate(1, 0, 0),
			HTTPOnly: true,
			SameSite: "Lax",
		})
		return token
	}

	return uuid.NewSHA1(fingerprintNamespace, []byte(c.IP()+"|"+c.Get("User-Agent"))).String()
}

// CountView is the public counting endpoint. Counts strictly follow the
// general settings group: tracked post types, visitor exclusions and the
// time-between-counts dedup window.
func (h *ViewsHandler) CountView(c *fiber.Ctx) error {
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

	if post.Status != model.PostStatusPublish {
		return response.NotFound(c, "Post not found")
	}

	values := h.generalSettings(c.UserContext())

	if !trackedType(values, post.Type) {
		return response.Success(c, fiber.Map{"counted": false, "reason": "type_not_tracked"})
	}

	// a logged-in identity is resolved by the optional auth middleware
	_, authenticated := c.Locals("user_id").(uint)
	if excludedVisitor(values, authenticated, looksLikeBot(c.Get("User-Agent")), c.IP()) {
		return response.Success(c, fiber.Map{"counted": false, "reason": "excluded"})
	}

	strict := values["strict_counts"] == true
	hash := h.visitorHash(c, strict)

	counted, err := h.views.RecordView(c.UserContext(), id, hash, dedupWindow(values))
	if err != nil {
		return response.InternalServerError(c, "Failed to record view")
	}

	reason := ""
	if !counted {
		reason = "deduplicated"
	}

	return response.Success(c, fiber.Map{"counted": counted, "reason": reason})
}

// GetViews returns view totals for a post: the lifetime bucket plus the
// current day, week and month, and optionally a requested YYYYMM bucket
func (h *ViewsHandler) GetViews(c *fiber.Ctx) error {
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

	ctx := c.UserContext()
	now := time.Now()

	total, err := h.views.PostViews(ctx, id, services.PeriodTotal)
	if err != nil {
		return response.InternalServerError(c, "Failed to load views")
	}
	month, err := h.views.PostViews(ctx, id, services.MonthPeriod(now))
	if err != nil {
		return response.InternalServerError(c, "Failed to load views")
	}

	payload := fiber.Map{
		"post_id": id,
		"total":   total,
		"month":   month,
	}

	// optional explicit month bucket
	if period := c.Query("period"); period != "" && period != services.PeriodTotal {
		views, err := h.views.PostViews(ctx, id, period)
		if err != nil {
			return response.InternalServerError(c, "Failed to load views")
		}
		payload["period"] = period
		payload["period_views"] = views
	}

	return response.Success(c, payload)
}

// GetChart returns the day-by-day series for the admin chart modal
func (h *ViewsHandler) GetChart(c *fiber.Ctx) error {
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

	values := h.generalSettings(c.UserContext())
	if !trackedType(values, post.Type) {
		return response.BadRequest(c, "Post type is not tracked")
	}

	data, err := h.charts.BuildMonth(c.UserContext(), post.ID, post.Title, c.Query("period"))
	if err != nil {
		return response.InternalServerError(c, "Failed to build chart")
	}

	return response.Success(c, data)
}
