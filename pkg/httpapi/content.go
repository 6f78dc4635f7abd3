package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fadedpez/quantumtheater/internal/types"
)

func (s *Server) listFacts(c *fiber.Ctx) error {
	facts, err := s.svc.Content.Facts(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(facts)
}

func (s *Server) currentFact(c *fiber.Ctx) error {
	fact, err := s.svc.Content.CurrentFact(c.UserContext())
	if err != nil {
		return err
	}
	if fact == nil {
		return types.NewTheaterError(types.ErrNotFound, "No facts yet")
	}
	return c.JSON(fact)
}

type factRequest struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

func (s *Server) addFact(c *fiber.Ctx) error {
	var req factRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	fact, err := s.svc.Content.AddFact(c.UserContext(), req.Text, req.Category)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fact)
}

func (s *Server) removeFact(c *fiber.Ctx) error {
	if err := s.svc.Content.RemoveFact(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) queue(c *fiber.Ctx) error {
	videos, err := s.svc.Content.Queue(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(videos)
}

type queueRequest struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

func (s *Server) addToQueue(c *fiber.Ctx) error {
	var req queueRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	video, err := s.svc.Content.AddVideo(c.UserContext(), req.URL, req.Title)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(video)
}

func (s *Server) removeFromQueue(c *fiber.Ctx) error {
	if err := s.svc.Content.RemoveVideo(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// nextVideo asks the curator to pick from the queue. With no usable
// recommendation the head of the queue is returned.
func (s *Server) nextVideo(c *fiber.Ctx) error {
	ctx := c.UserContext()
	videos, err := s.svc.Content.Queue(ctx)
	if err != nil {
		return err
	}
	if len(videos) == 0 {
		return types.NewTheaterError(types.ErrNotFound, "The queue is empty")
	}

	var titles []string
	if user := userID(c); user != "" {
		history, err := s.svc.Content.History(ctx, user)
		if err != nil {
			return err
		}
		for _, h := range history {
			titles = append(titles, h.Title)
		}
	}

	rec := s.svc.Curator.NextVideo(ctx, c.Query("current"), titles, videos)
	if rec == nil {
		return c.JSON(fiber.Map{"video": videos[0], "curated": false})
	}
	return c.JSON(fiber.Map{
		"video":          videos[rec.VideoIndex],
		"curated":        true,
		"reason":         rec.Reason,
		"relevanceScore": rec.RelevanceScore,
	})
}

func (s *Server) history(c *fiber.Ctx) error {
	viewed, err := s.svc.Content.History(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(viewed)
}

func (s *Server) curate(c *fiber.Ctx) error {
	picks, err := s.svc.Curator.Curate(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(picks)
}

func (s *Server) analyze(c *fiber.Ctx) error {
	title := c.Query("title")
	if title == "" {
		return badRequest("title is required")
	}
	return c.JSON(s.svc.Curator.Analyze(c.UserContext(), title))
}

func (s *Server) subtitle(c *fiber.Ctx) error {
	title := c.Query("title")
	if title == "" {
		return badRequest("title is required")
	}
	return c.JSON(fiber.Map{"subtitle": s.svc.Curator.Subtitle(c.UserContext(), title)})
}
