package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fadedpez/quantumtheater/internal/types"
	"github.com/fadedpez/quantumtheater/pkg/entities"
	"github.com/fadedpez/quantumtheater/pkg/services/content"
)

type watchRequest struct {
	Title string `json:"title"`
}

func (s *Server) startWatching(c *fiber.Ctx) error {
	var req watchRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	user := userID(c)

	class := content.Classify(req.Title)
	session, err := s.svc.Accrual.StartOrSwitch(ctx, user, req.Title, class.IsDocumentary)
	if err != nil {
		return err
	}
	if err := s.svc.Content.RecordViewed(ctx, user, req.Title); err != nil {
		s.logger.Warn("[HTTP] Could not record %q in history for %s: %v", req.Title, user, err)
	}
	if s.svc.Watcher != nil {
		s.svc.Watcher.Watch(user)
	}

	return c.JSON(fiber.Map{
		"session":        session,
		"classification": class,
	})
}

func (s *Server) stopWatching(c *fiber.Ctx) error {
	user := userID(c)
	if s.svc.Watcher != nil && user != "" {
		s.svc.Watcher.Unwatch(user)
	}
	credited, err := s.svc.Accrual.EndSession(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"credited": credited})
}

func (s *Server) tick(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user := userID(c)
	credited, err := s.svc.Accrual.Tick(ctx, user)
	if err != nil {
		return err
	}
	balance, err := s.svc.Wallets.GetBalance(ctx, user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"credited": credited, "balance": balance})
}

// quizView hides the answer from the client
type quizView struct {
	ID          string   `json:"id"`
	VideoTitle  string   `json:"videoTitle"`
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	BonusTokens int64    `json:"bonusTokens"`
}

func (s *Server) generateQuiz(c *fiber.Ctx) error {
	var req watchRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	q, err := s.svc.Quizzes.Generate(c.UserContext(), userID(c), req.Title, content.Classify(req.Title).IsDocumentary)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(quizView{
		ID:          q.ID,
		VideoTitle:  q.VideoTitle,
		Question:    q.Question,
		Options:     q.Options,
		BonusTokens: q.BonusTokens,
	})
}

type answerRequest struct {
	QuizID string `json:"quizId"`
	Answer *int   `json:"answer"`
}

func (s *Server) answerQuiz(c *fiber.Ctx) error {
	var req answerRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.QuizID == "" || req.Answer == nil {
		return badRequest("quizId and answer are required")
	}
	result, err := s.svc.Quizzes.Answer(c.UserContext(), userID(c), req.QuizID, *req.Answer)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (s *Server) listAds(c *fiber.Ctx) error {
	limit, err := queryLimit(c, 0)
	if err != nil {
		return err
	}
	ads, err := s.svc.Ads.List(c.UserContext(), limit)
	if err != nil {
		return err
	}
	return c.JSON(ads)
}

func (s *Server) createAd(c *fiber.Ctx) error {
	var draft entities.AdDraft
	if err := parseBody(c, &draft); err != nil {
		return err
	}
	ad, w, err := s.svc.Ads.Create(c.UserContext(), userID(c), draft)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"advertisement": ad,
		"balance":       w.TotalTokens,
	})
}

func (s *Server) adCopy(c *fiber.Ctx) error {
	var req watchRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	text, err := s.svc.Ads.GenerateCopy(c.UserContext(), req.Title)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"description": text})
}

func (s *Server) adImpression(c *fiber.Ctx) error {
	if err := s.svc.Ads.RecordImpression(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) catalog(c *fiber.Ctx) error {
	t := entities.ItemType(c.Query("type"))
	if t != "" && !t.Valid() {
		return badRequest("unknown item type")
	}
	return c.JSON(s.svc.Store.Catalog().Items(t))
}

func (s *Server) library(c *fiber.Ctx) error {
	owned, err := s.svc.Store.Library(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(owned)
}

type purchaseRequest struct {
	ItemID string `json:"itemId"`
}

func (s *Server) purchase(c *fiber.Ctx) error {
	var req purchaseRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.ItemID == "" {
		return types.NewTheaterError(types.ErrInvalidArgument, "itemId is required")
	}
	p, w, err := s.svc.Store.Purchase(c.UserContext(), userID(c), req.ItemID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"purchase": p,
		"balance":  w.TotalTokens,
	})
}
