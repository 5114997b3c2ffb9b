package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"contactkar/internal/apperror"
	"contactkar/internal/models"
	"contactkar/internal/services"
)

// TagHandler handles HTTP requests for tags.
type TagHandler struct {
	service  *services.TagService
	validate *validator.Validate
}

// NewTagHandler creates a new TagHandler.
func NewTagHandler(service *services.TagService, validate *validator.Validate) *TagHandler {
	return &TagHandler{
		service:  service,
		validate: validate,
	}
}

// RegisterRoutes registers the owner's tag routes behind requireAuth.
func (h *TagHandler) RegisterRoutes(router fiber.Router, requireAuth fiber.Handler) {
	tagRoutes := router.Group("/tags", requireAuth)
	tagRoutes.Post("/", h.HandleCreateTags)
	tagRoutes.Get("/", h.HandleListTags)
	tagRoutes.Get("/user", h.HandleListTags)
	tagRoutes.Patch("/:id", h.HandleUpdateTag)
	tagRoutes.Put("/:id/toggle", h.HandleToggleTag)
	tagRoutes.Delete("/:id", h.HandleDeleteTag)
	tagRoutes.Get("/:id/qr", h.HandleTagQR)
}

// RegisterPublicRoutes registers the tag lookup used by QR landing pages.
func (h *TagHandler) RegisterPublicRoutes(router fiber.Router, limit fiber.Handler) {
	router.Get("/t/:code", limit, h.HandleResolveTag)
}

// TagAttributesRequest holds the editable fields of a tag.
type TagAttributesRequest struct {
	PlateNumber      string `json:"plateNumber" validate:"omitempty,plate"`
	PetName          string `json:"petName" validate:"max=100"`
	PetBreed         string `json:"petBreed" validate:"max=100"`
	OwnerName        string `json:"ownerName" validate:"max=100"`
	EmergencyContact string `json:"emergencyContact" validate:"omitempty,phone"`
}

func (r TagAttributesRequest) attributes() models.TagAttributes {
	return models.TagAttributes{
		PlateNumber:      r.PlateNumber,
		PetName:          r.PetName,
		PetBreed:         r.PetBreed,
		OwnerName:        r.OwnerName,
		EmergencyContact: r.EmergencyContact,
	}
}

// CreateTagsRequest asks for a batch of tags of one kind. Count defaults
// to one.
type CreateTagsRequest struct {
	Kind  models.TagKind `json:"kind" validate:"required,oneof=vehicle pet"`
	Count int            `json:"count" validate:"gte=0,lte=50"`
	TagAttributesRequest
}

// ToggleRequest sets the contact flag. isContactable is the older name of
// the field and is still accepted.
type ToggleRequest struct {
	Contactable   *bool `json:"contactable"`
	IsContactable *bool `json:"isContactable"`
}

// HandleCreateTags creates tags for the caller.
func (h *TagHandler) HandleCreateTags(c *fiber.Ctx) error {
	var req CreateTagsRequest
	if err := bind(c, h.validate, &req); err != nil {
		return err
	}
	if req.Count == 0 {
		req.Count = 1
	}
	tags, err := h.service.CreateTags(c.UserContext(), userID(c), req.Kind, req.Count, req.attributes())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "tags": tags})
}

// HandleListTags lists the caller's tags, newest first.
func (h *TagHandler) HandleListTags(c *fiber.Ctx) error {
	tags, err := h.service.ListTags(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "tags": tags})
}

// HandleUpdateTag overwrites the editable details of a tag.
func (h *TagHandler) HandleUpdateTag(c *fiber.Ctx) error {
	var req TagAttributesRequest
	if err := bind(c, h.validate, &req); err != nil {
		return err
	}
	tag, err := h.service.UpdateTagDetails(c.UserContext(), userID(c), c.Params("id"), req.attributes())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "tag": tag})
}

// HandleToggleTag turns contact on or off.
func (h *TagHandler) HandleToggleTag(c *fiber.Ctx) error {
	var req ToggleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Wrap(apperror.CodeValidation, "invalid request body", err)
	}
	contactable := req.Contactable
	if contactable == nil {
		contactable = req.IsContactable
	}
	if contactable == nil {
		return apperror.Validation("contactable is required")
	}
	tag, err := h.service.SetContactable(c.UserContext(), userID(c), c.Params("id"), *contactable)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "tag": tag})
}

// HandleDeleteTag permanently deletes a tag.
func (h *TagHandler) HandleDeleteTag(c *fiber.Ctx) error {
	if err := h.service.DeleteTag(c.UserContext(), userID(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Tag deleted"})
}

// HandleTagQR returns the printable QR code of a tag.
func (h *TagHandler) HandleTagQR(c *fiber.Ctx) error {
	png, code, err := h.service.RenderQR(c.UserContext(), userID(c), c.Params("id"))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+code+`.png"`)
	return c.Send(png)
}

// HandleResolveTag returns the public view of a tag.
func (h *TagHandler) HandleResolveTag(c *fiber.Ctx) error {
	tag, err := h.service.Resolve(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "tag": tag})
}
