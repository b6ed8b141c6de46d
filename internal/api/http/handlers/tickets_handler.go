package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-intake/internal/api/dto"
	"github.com/spec-kit/ticket-intake/internal/service"
	apperrors "github.com/spec-kit/ticket-intake/pkg/util"
)

var errNotObject = errors.New("request body is not a JSON object")

// TicketsHandler serves ticket intake and read endpoints.
type TicketsHandler struct {
	service *service.SubmissionService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(submissionService *service.SubmissionService) *TicketsHandler {
	return &TicketsHandler{service: submissionService}
}

// SubmitTicket POST /submit-ticket.
func (h *TicketsHandler) SubmitTicket(c *fiber.Ctx) error {
	req, err := decodeSubmitRequest(c.Body())
	if err != nil {
		return apperrors.NewMalformedInput("Invalid JSON received", nil)
	}

	result, err := h.service.Submit(c.UserContext(), service.SubmissionInput{
		FullName:   req.FullName,
		Department: req.Department,
		Email:      req.Email,
		Subject:    req.Subject,
		Message:    req.Message,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.SubmitTicketResponse{
		Status:             "success",
		TicketID:           result.Ticket.ID,
		NotificationFailed: result.NotificationFailed,
	})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.service.ListTickets(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketResponse(&tickets[i]))
	}
	return c.JSON(items)
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return apperrors.NewNotFound("ticket", nil)
	}
	ticket, err := h.service.GetTicket(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// decodeSubmitRequest accepts only a JSON object; empty bodies, scalars and
// wrongly-typed fields are rejected.
func decodeSubmitRequest(body []byte) (*dto.SubmitTicketRequest, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errNotObject
	}
	var req dto.SubmitTicketRequest
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return nil, err
	}
	return &req, nil
}
