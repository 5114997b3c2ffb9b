package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"contactkar/internal/apperror"
	"contactkar/internal/services"
)

// ContactHandler handles the public finder endpoints.
type ContactHandler struct {
	service  *services.ContactService
	validate *validator.Validate
}

// NewContactHandler creates a new ContactHandler.
func NewContactHandler(service *services.ContactService, validate *validator.Validate) *ContactHandler {
	return &ContactHandler{service: service, validate: validate}
}

// RegisterRoutes registers the plate search and call bridge routes behind
// limit. call-bridge is the older path of the bridge.
func (h *ContactHandler) RegisterRoutes(router fiber.Router, limit fiber.Handler) {
	router.Post("/search/plate", limit, h.HandleSearchPlate)
	router.Post("/contact/bridge", limit, h.HandleBridge)
	router.Post("/contact/call-bridge", limit, h.HandleBridge)
}

// SearchPlateRequest is a finder's plate lookup.
type SearchPlateRequest struct {
	PlateNumber string `json:"plateNumber" validate:"required,plate"`
}

// BridgeRequest asks for a masked call to a tag's owner.
type BridgeRequest struct {
	TagCode      string `json:"tagCode" validate:"required,tagcode"`
	CallerNumber string `json:"callerNumber" validate:"required,phone"`
}

// HandleSearchPlate reports whether a plate can be contacted. Unregistered
// plates answer 404 with found set to false.
func (h *ContactHandler) HandleSearchPlate(c *fiber.Ctx) error {
	var req SearchPlateRequest
	if err := bind(c, h.validate, &req); err != nil {
		return err
	}
	res, err := h.service.SearchPlate(c.UserContext(), req.PlateNumber)
	if errors.Is(err, apperror.ErrNotFound) && res != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   apperror.CodeNotFound,
			"found":   false,
			"message": res.Message,
		})
	}
	if err != nil {
		return err
	}
	return c.JSON(struct {
		Success bool `json:"success"`
		*services.PlateSearchResult
	}{true, res})
}

// HandleBridge connects the finder to the owner by phone.
func (h *ContactHandler) HandleBridge(c *fiber.Ctx) error {
	var req BridgeRequest
	if err := bind(c, h.validate, &req); err != nil {
		return err
	}
	res, err := h.service.Bridge(c.UserContext(), req.TagCode, req.CallerNumber)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": res.Message})
}
