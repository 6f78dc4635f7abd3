package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fadedpez/quantumtheater/internal/types"
	"github.com/fadedpez/quantumtheater/pkg/entities"
)

func (s *Server) activeParties(c *fiber.Ctx) error {
	parties, err := s.svc.Parties.Active(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(parties)
}

type createPartyRequest struct {
	Name       string `json:"name"`
	VideoURL   string `json:"videoUrl"`
	VideoTitle string `json:"videoTitle"`
}

func (s *Server) createParty(c *fiber.Ctx) error {
	var req createPartyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	p, err := s.svc.Parties.Create(c.UserContext(), viewer(c), req.Name, req.VideoURL, req.VideoTitle)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (s *Server) getParty(c *fiber.Ctx) error {
	ctx := c.UserContext()
	p, err := s.svc.Parties.Get(ctx, c.Params("id"))
	if err != nil {
		return err
	}
	members, err := s.svc.Parties.Members(ctx, p.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"party": p, "members": members})
}

func (s *Server) partyByInvite(c *fiber.Ctx) error {
	p, err := s.svc.Parties.FindByInvite(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (s *Server) joinParty(c *fiber.Ctx) error {
	p, err := s.svc.Parties.Join(c.UserContext(), viewer(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (s *Server) leaveParty(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user := userID(c)
	current, err := s.svc.Parties.CurrentParty(ctx, user)
	if err != nil {
		return err
	}
	if current == nil || current.ID != c.Params("id") {
		return types.NewTheaterError(types.ErrNotInParty, "You are not in this party")
	}
	if err := s.svc.Parties.Leave(ctx, user); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) getPlayback(c *fiber.Ctx) error {
	state, err := s.svc.Parties.Playback(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if state == nil {
		return types.NewTheaterError(types.ErrNotFound, "The host has not started playback yet")
	}
	return c.JSON(state)
}

func (s *Server) putPlayback(c *fiber.Ctx) error {
	var state entities.PlaybackState
	if err := parseBody(c, &state); err != nil {
		return err
	}
	saved, err := s.svc.Parties.PublishPlayback(c.UserContext(), c.Params("id"), userID(c), state)
	if err != nil {
		return err
	}
	return c.JSON(saved)
}
