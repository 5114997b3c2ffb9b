package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"contactkar/internal/apperror"
	"contactkar/internal/models"
	"contactkar/internal/services"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, validate *validator.Validate) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validate,
	}
}

// RegisterRoutes registers the order routes. The quote is public; placing
// and listing orders go through requireAuth.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, requireAuth fiber.Handler) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/quote", h.HandleQuote)
	orderRoutes.Get("/", requireAuth, h.HandleListOrders)
	orderRoutes.Post("/", requireAuth, h.HandleCreateOrder)
}

// CreateOrderRequest is the checkout form of the dashboard.
type CreateOrderRequest struct {
	VehicleQty int    `json:"vehicleQty" validate:"gte=0,lte=50"`
	PetQty     int    `json:"petQty" validate:"gte=0,lte=50"`
	Address    string `json:"address" validate:"required,max=255"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"required,max=100"`
	Pincode    string `json:"pincode" validate:"required,len=6,numeric"`
}

// QuoteQuery selects the order to price, either as a total or per kind.
type QuoteQuery struct {
	Tags       int `query:"tags" validate:"gte=0,lte=50"`
	VehicleQty int `query:"vehicleQty" validate:"gte=0,lte=50"`
	PetQty     int `query:"petQty" validate:"gte=0,lte=50"`
}

// HandleQuote prices the delivery of an order.
func (h *OrderHandler) HandleQuote(c *fiber.Ctx) error {
	var q QuoteQuery
	if err := c.QueryParser(&q); err != nil {
		return apperror.Wrap(apperror.CodeValidation, "invalid query", err)
	}
	if err := h.validate.Struct(q); err != nil {
		return apperror.InvalidFields(err)
	}
	total := q.Tags
	if total == 0 {
		total = q.VehicleQty + q.PetQty
	}
	return c.JSON(fiber.Map{"success": true, "quote": h.service.DeliveryQuote(total)})
}

// HandleListOrders lists the caller's orders.
func (h *OrderHandler) HandleListOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListOrders(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "orders": orders})
}

// HandleCreateOrder places an order and returns it with its new tags.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req CreateOrderRequest
	if err := bind(c, h.validate, &req); err != nil {
		return err
	}
	placed, err := h.service.PlaceOrder(c.UserContext(), userID(c), services.PlaceOrderInput{
		VehicleQty: req.VehicleQty,
		PetQty:     req.PetQty,
		ShippingAddress: models.ShippingAddress{
			Address: req.Address,
			City:    req.City,
			State:   req.State,
			Pincode: req.Pincode,
		},
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "order": placed.Order, "tags": placed.Tags})
}
