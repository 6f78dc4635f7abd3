package httpapi

import (
	"github.com/gofiber/fiber/v2"
)

func (s *Server) getWallet(c *fiber.Ctx) error {
	w, err := s.svc.Wallets.GetWallet(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(w)
}

// createWallet is called on sign-in; an existing wallet is returned as-is
func (s *Server) createWallet(c *fiber.Ctx) error {
	w, created, err := s.svc.Wallets.GetOrCreateWallet(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	if created {
		return c.Status(fiber.StatusCreated).JSON(w)
	}
	return c.JSON(w)
}

func (s *Server) getTransactions(c *fiber.Ctx) error {
	limit, err := queryLimit(c, 10)
	if err != nil {
		return err
	}
	txs, err := s.svc.Wallets.GetRecentTransactions(c.UserContext(), userID(c), limit)
	if err != nil {
		return err
	}
	return c.JSON(txs)
}
