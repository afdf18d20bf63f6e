package stub

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// requestPayload is the wire shape of an estate request; _id matches the
// production API. Blank optional fields are omitted.
type requestPayload struct {
	ID                     string    `json:"_id"`
	UserID                 string    `json:"userId"`
	PropertyType           string    `json:"propertyType"`
	Location               string    `json:"location"`
	Budget                 string    `json:"budget"`
	Bedrooms               string    `json:"bedrooms,omitempty"`
	Bathrooms              string    `json:"bathrooms,omitempty"`
	Surface                string    `json:"surface,omitempty"`
	District               string    `json:"district,omitempty"`
	AdditionalRequirements string    `json:"additionalRequirements,omitempty"`
	Status                 string    `json:"status"`
	CreatedAt              time.Time `json:"createdAt"`
}

func toRequestPayload(r Request) requestPayload {
	return requestPayload{
		ID:                     r.ID,
		UserID:                 r.UserID,
		PropertyType:           r.PropertyType,
		Location:               r.Location,
		Budget:                 r.Budget,
		Bedrooms:               r.Bedrooms,
		Bathrooms:              r.Bathrooms,
		Surface:                r.Surface,
		District:               r.District,
		AdditionalRequirements: r.AdditionalRequirements,
		Status:                 r.Status,
		CreatedAt:              r.CreatedAt,
	}
}

func toRequestPayloads(requests []Request) []requestPayload {
	out := make([]requestPayload, 0, len(requests))
	for _, r := range requests {
		out = append(out, toRequestPayload(r))
	}
	return out
}

var validStatuses = map[string]bool{
	"pending":     true,
	"in_progress": true,
	"completed":   true,
}

// EstateHandler exposes the estate request endpoints. All routes sit
// behind the bearer middleware.
type EstateHandler struct {
	requests RequestStore
	logger   *slog.Logger
}

// NewEstateHandler builds the estate handler.
func NewEstateHandler(requests RequestStore, logger *slog.Logger) *EstateHandler {
	return &EstateHandler{requests: requests, logger: logger}
}

// List returns every request. The back office sees all of them.
func (h *EstateHandler) List(c *fiber.Ctx) error {
	requests, err := h.requests.List(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "list requests")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"requests": toRequestPayloads(requests)})
}

// ListMine returns the caller's own requests, scoped by the bearer token
// rather than any client-supplied parameter.
func (h *EstateHandler) ListMine(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	requests, err := h.requests.ListByUser(c.UserContext(), userID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "list requests")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"requests": toRequestPayloads(requests)})
}

type createRequestBody struct {
	PropertyType           string `json:"propertyType"`
	Location               string `json:"location"`
	Budget                 string `json:"budget"`
	Bedrooms               string `json:"bedrooms"`
	Bathrooms              string `json:"bathrooms"`
	Surface                string `json:"surface"`
	District               string `json:"district"`
	AdditionalRequirements string `json:"additionalRequirements"`
}

// Create stores a new request owned by the caller, status pending.
func (h *EstateHandler) Create(c *fiber.Ctx) error {
	var body createRequestBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(body.PropertyType) == "" {
		return fiber.NewError(http.StatusBadRequest, "propertyType is required")
	}
	if strings.TrimSpace(body.Location) == "" {
		return fiber.NewError(http.StatusBadRequest, "location is required")
	}
	if strings.TrimSpace(body.Budget) == "" {
		return fiber.NewError(http.StatusBadRequest, "budget is required")
	}

	userID, _ := c.Locals("user_id").(string)
	request := Request{
		ID:                     uuid.NewString(),
		UserID:                 userID,
		PropertyType:           body.PropertyType,
		Location:               body.Location,
		Budget:                 body.Budget,
		Bedrooms:               body.Bedrooms,
		Bathrooms:              body.Bathrooms,
		Surface:                body.Surface,
		District:               body.District,
		AdditionalRequirements: body.AdditionalRequirements,
		Status:                 "pending",
		CreatedAt:              time.Now().UTC(),
	}
	if err := h.requests.Create(c.UserContext(), request); err != nil {
		return fiber.NewError(http.StatusInternalServerError, "create request")
	}
	h.logger.Info("request created", "request_id", request.ID, "user_id", userID, "property_type", request.PropertyType)
	return c.Status(http.StatusCreated).JSON(fiber.Map{"request": toRequestPayload(request)})
}

// GetByID returns one request.
func (h *EstateHandler) GetByID(c *fiber.Ctx) error {
	request, err := h.requests.GetByID(c.UserContext(), c.Params("id"))
	if errors.Is(err, ErrNotFound) {
		return fiber.NewError(http.StatusNotFound, "request not found")
	} else if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "get request")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"request": toRequestPayload(request)})
}

type updateStatusBody struct {
	Status string `json:"status"`
}

// UpdateStatus sets the request's status. The value must be a known
// status; transition direction is not checked here.
func (h *EstateHandler) UpdateStatus(c *fiber.Ctx) error {
	var body updateStatusBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if !validStatuses[body.Status] {
		return fiber.NewError(http.StatusBadRequest, "unknown status")
	}

	request, err := h.requests.UpdateStatus(c.UserContext(), c.Params("id"), body.Status)
	if errors.Is(err, ErrNotFound) {
		return fiber.NewError(http.StatusNotFound, "request not found")
	} else if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "update status")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"request": toRequestPayload(request)})
}
