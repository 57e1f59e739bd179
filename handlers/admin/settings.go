package admin

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/post-views-api/model"
	"github.com/sahilchouksey/post-views-api/services"
	"github.com/sahilchouksey/post-views-api/services/settings"
	"github.com/sahilchouksey/post-views-api/utils/response"
)

// SettingsHandler dispatches settings group reads, saves, resets and the
// custom bulk actions
type SettingsHandler struct {
	registry *settings.Registry
	views    *services.ViewsService
	signals  *services.SignalService
	exports  *services.ExportService // nil when object storage is unconfigured
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(registry *settings.Registry, views *services.ViewsService, signals *services.SignalService, exports *services.ExportService) *SettingsHandler {
	return &SettingsHandler{
		registry: registry,
		views:    views,
		signals:  signals,
		exports:  exports,
	}
}

// GroupSummary describes one settings group for the admin UI
type GroupSummary struct {
	Name          string   `json:"name"`
	Title         string   `json:"title"`
	CustomActions []string `json:"custom_actions,omitempty"`
}

// ListGroups returns the registered settings groups
func (h *SettingsHandler) ListGroups(c *fiber.Ctx) error {
	groups := h.registry.Groups()

	summaries := make([]GroupSummary, 0, len(groups))
	for _, g := range groups {
		summaries = append(summaries, GroupSummary{
			Name:          g.Name,
			Title:         g.Title,
			CustomActions: g.CustomActions,
		})
	}

	return response.Success(c, fiber.Map{"groups": summaries})
}

// GetValues returns the stored document for a group merged over defaults
func (h *SettingsHandler) GetValues(c *fiber.Ctx) error {
	group := c.Params("group")

	values, err := h.registry.Values(c.UserContext(), group)
	if err != nil {
		if err == settings.ErrUnknownGroup {
			return response.NotFound(c, "Unknown settings group")
		}
		return response.InternalServerError(c, "Failed to load settings")
	}

	return response.Success(c, fiber.Map{
		"group":  group,
		"values": values,
	})
}

// SubmitRequest represents a settings form submission
type SubmitRequest struct {
	Action string                 `json:"action"` // save, reset, or a group custom action
	Values map[string]interface{} `json:"values"`
}

// Submit runs one settings submission through the validation pipeline.
// Save and reset persist the resulting document; custom actions leave the
// stored document untouched and run their side effect instead.
func (h *SettingsHandler) Submit(c *fiber.Ctx) error {
	groupName := c.Params("group")

	var req SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Action == "" {
		req.Action = string(settings.ActionSave)
	}
	if req.Values == nil {
		req.Values = map[string]interface{}{}
	}

	user, _ := c.Locals("user").(*model.User)
	authorized := user != nil && user.IsAdmin()

	g, known := h.registry.Group(groupName)

	action := settings.Action(req.Action)
	switch action {
	case settings.ActionSave, settings.ActionReset:
		validated, touched := h.registry.Validate(c.UserContext(), groupName, action, req.Values, authorized)

		// pass-through results are never persisted
		if authorized && known {
			if err := h.registry.Save(c.UserContext(), g, validated); err != nil {
				return response.InternalServerError(c, "Failed to save settings")
			}
		}

		return response.Success(c, fiber.Map{
			"group":   groupName,
			"values":  validated,
			"touched": touched,
		})

	default:
		if !known || !hasCustomAction(g, req.Action) {
			return response.BadRequest(c, "Unknown settings action")
		}
		if !authorized {
			return response.Forbidden(c, "Admin role required")
		}
		return h.runCustomAction(c, req.Action)
	}
}

func hasCustomAction(g *settings.Group, action string) bool {
	for _, a := range g.CustomActions {
		if a == action {
			return true
		}
	}
	return false
}

func (h *SettingsHandler) runCustomAction(c *fiber.Ctx, action string) error {
	ctx := c.UserContext()

	switch action {
	case settings.ActionExportViews:
		if h.exports == nil {
			return response.BadRequest(c, "Object storage is not configured")
		}
		key, err := h.exports.ExportViews(ctx)
		if err != nil {
			return response.InternalServerError(c, "Export failed")
		}
		return response.SuccessWithMessage(c, "Views exported", fiber.Map{"key": key})

	case settings.ActionImportViews:
		if h.exports == nil {
			return response.BadRequest(c, "Object storage is not configured")
		}
		key := c.Query("key")
		if key == "" {
			return response.BadRequest(c, "key query parameter is required")
		}
		rows, err := h.exports.ImportViews(ctx, key)
		if err != nil {
			return response.InternalServerError(c, "Import failed")
		}
		return response.SuccessWithMessage(c, "Views imported", fiber.Map{"rows": rows})

	case settings.ActionResetViews:
		if err := h.views.ResetAllViews(ctx); err != nil {
			return response.InternalServerError(c, "Reset failed")
		}
		h.signals.FlushAll(ctx)
		return response.SuccessWithMessage(c, "All view data deleted", nil)

	default:
		return response.BadRequest(c, "Unknown settings action")
	}
}
