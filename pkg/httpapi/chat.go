package httpapi

import (
	"github.com/gofiber/fiber/v2"
)

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) chatHistory(c *fiber.Ctx) error {
	limit, err := queryLimit(c, 0)
	if err != nil {
		return err
	}
	room, err := s.svc.Chat.History(c.UserContext(), userID(c), c.Params("id"), limit)
	if err != nil {
		return err
	}
	return c.JSON(room)
}

func (s *Server) postChat(c *fiber.Ctx) error {
	var req chatRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	msg, err := s.svc.Chat.Post(c.UserContext(), viewer(c), c.Params("id"), req.Message)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}
