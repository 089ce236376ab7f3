package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/mural/pkg/message"
)

// maxContentLength caps submissions; the wall is for short messages.
const maxContentLength = 2000

// ErrorResponse is the JSON body for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SubmitRequest is the body for POST /messages.
type SubmitRequest struct {
	Content string `json:"content"`
}

// SubmitResponse is the body for a successful submission.
type SubmitResponse struct {
	ID       int64  `json:"id"`
	Approved bool   `json:"approved"`
	Status   string `json:"status"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleStats returns traversal and pool statistics.
func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(s.traverser.Stats())
}

// handleSubmit validates and persists a submission, fast-tracking it into
// the traversal when it is approved.
func (s *Server) handleSubmit(c *fiber.Ctx) error {
	var req SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "content required"})
	}
	if len(content) > maxContentLength {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "content too long"})
	}

	msg := &message.Message{
		Content:   content,
		CreatedAt: time.Now().UTC(),
		Approved:  s.config.AutoApprove,
	}

	stored, err := s.traverser.AddNewMessage(c.Context(), msg)
	if err != nil {
		s.logger.Error("message submission failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to store message"})
	}

	if s.onSubmit != nil {
		s.onSubmit(stored)
	}

	status := "pending"
	if stored.Approved {
		status = "queued"
	}

	return c.Status(fiber.StatusCreated).JSON(SubmitResponse{
		ID:       stored.ID,
		Approved: stored.Approved,
		Status:   status,
	})
}

// handleDelete soft deletes a message so it stops appearing in clusters.
func (s *Server) handleDelete(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid message id"})
	}

	if err := s.storer.SoftDelete(c.Context(), id); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "message not found"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
