package signal

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/post-views-api/model"
	"github.com/sahilchouksey/post-views-api/services"
	"github.com/sahilchouksey/post-views-api/utils/response"
	"github.com/sahilchouksey/post-views-api/utils/validation"
	"gorm.io/gorm"
)

// SignalHandler exposes traffic anomaly verdicts to the admin UI
type SignalHandler struct {
	db        *gorm.DB
	signals   *services.SignalService
	validator *validation.Validator
}

// NewSignalHandler creates a new signal handler
func NewSignalHandler(db *gorm.DB, signals *services.SignalService) *SignalHandler {
	return &SignalHandler{
		db:        db,
		signals:   signals,
		validator: validation.NewValidator(),
	}
}

// GetSignal returns the verdict for one post. A null signal means no
// unusual activity.
func (h *SignalHandler) GetSignal(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "invalid post id")
	}

	var post model.Post
	if err := h.db.WithContext(c.UserContext()).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Post not found")
		}
		return response.InternalServerError(c, "Failed to load post")
	}

	return response.Success(c, fiber.Map{
		"post_id": post.ID,
		"signal":  h.signals.Detect(c.UserContext(), post.ID),
	})
}

// BatchRequest asks for verdicts on a set of posts at once, matching how
// the list table renders a page of rows
type BatchRequest struct {
	PostIDs []uint `json:"post_ids" validate:"required,min=1,max=100"`
}

// BatchSignals returns verdicts for up to 100 posts keyed by post id
func (h *SignalHandler) BatchSignals(c *fiber.Ctx) error {
	var req BatchRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	verdicts := make(map[uint]*services.Verdict, len(req.PostIDs))
	for _, id := range req.PostIDs {
		verdicts[id] = h.signals.Detect(c.UserContext(), id)
	}

	return response.Success(c, fiber.Map{"signals": verdicts})
}

// FlushSignals drops every cached verdict (admin maintenance)
func (h *SignalHandler) FlushSignals(c *fiber.Ctx) error {
	h.signals.FlushAll(c.UserContext())
	return response.SuccessWithMessage(c, "Signal cache flush scheduled", nil)
}
