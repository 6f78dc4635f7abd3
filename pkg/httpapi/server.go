package httpapi

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/fadedpez/quantumtheater/internal/logging"
	"github.com/fadedpez/quantumtheater/internal/types"
	"github.com/fadedpez/quantumtheater/pkg/services/accrual"
	"github.com/fadedpez/quantumtheater/pkg/services/advertising"
	"github.com/fadedpez/quantumtheater/pkg/services/chat"
	"github.com/fadedpez/quantumtheater/pkg/services/content"
	"github.com/fadedpez/quantumtheater/pkg/services/curator"
	"github.com/fadedpez/quantumtheater/pkg/services/party"
	"github.com/fadedpez/quantumtheater/pkg/services/quiz"
	"github.com/fadedpez/quantumtheater/pkg/services/redemption"
	"github.com/fadedpez/quantumtheater/pkg/services/wallet"
)

// Watcher drives background accrual for viewers with an open session
type Watcher interface {
	Watch(userID string)
	Unwatch(userID string)
}

// Services are the theater components exposed over HTTP. Watcher may be nil.
type Services struct {
	Wallets *wallet.Service
	Accrual *accrual.Service
	Watcher Watcher
	Quizzes *quiz.Service
	Ads     *advertising.Service
	Store   *redemption.Service
	Parties *party.Service
	Content *content.Service
	Curator *curator.Curator
	Chat    *chat.Service
}

// Server is the theater's HTTP API
type Server struct {
	app    *fiber.App
	svc    Services
	logger *logging.Logger
}

// New builds the fiber app and registers every route
func New(svc Services, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Default
	}
	s := &Server{svc: svc, logger: logger}
	s.app = fiber.New(fiber.Config{
		AppName:               "quantumtheater",
		DisableStartupMessage: true,
		Immutable:             true,
		ErrorHandler:          s.handleError,
	})
	s.routes()
	return s
}

// App exposes the underlying fiber app, mainly for tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown
func (s *Server) Listen(addr string) error {
	s.logger.Info("[HTTP] Listening on %s", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) routes() {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := s.app.Group("/api", Identity())

	api.Get("/wallet", s.getWallet)
	api.Post("/wallet", s.createWallet)
	api.Get("/wallet/transactions", s.getTransactions)

	api.Post("/watch", s.startWatching)
	api.Delete("/watch", s.stopWatching)
	api.Post("/watch/tick", s.tick)

	api.Post("/quiz", s.generateQuiz)
	api.Post("/quiz/answer", s.answerQuiz)

	api.Get("/ads", s.listAds)
	api.Post("/ads", s.createAd)
	api.Post("/ads/copy", s.adCopy)
	api.Post("/ads/:id/impression", s.adImpression)

	api.Get("/store", s.catalog)
	api.Get("/store/purchases", s.library)
	api.Post("/store/purchases", s.purchase)

	api.Get("/parties", s.activeParties)
	api.Post("/parties", s.createParty)
	api.Get("/parties/invite/:code", s.partyByInvite)
	api.Get("/parties/:id", s.getParty)
	api.Post("/parties/:id/join", s.joinParty)
	api.Post("/parties/:id/leave", s.leaveParty)
	api.Get("/parties/:id/playback", s.getPlayback)
	api.Put("/parties/:id/playback", s.putPlayback)
	api.Get("/parties/:id/chat", s.chatHistory)
	api.Post("/parties/:id/chat", s.postChat)

	api.Get("/chat", s.chatHistory)
	api.Post("/chat", s.postChat)

	api.Get("/facts", s.listFacts)
	api.Get("/facts/current", s.currentFact)
	api.Post("/facts", s.addFact)
	api.Delete("/facts/:id", s.removeFact)

	api.Get("/queue", s.queue)
	api.Post("/queue", s.addToQueue)
	api.Get("/queue/next", s.nextVideo)
	api.Delete("/queue/:id", s.removeFromQueue)

	api.Get("/history", s.history)

	api.Post("/curator/curate", s.curate)
	api.Get("/curator/analyze", s.analyze)
	api.Get("/curator/subtitle", s.subtitle)
}

// StatusFor maps an error code to the HTTP status returned for it
func StatusFor(code types.ErrorCode) int {
	switch code {
	case types.ErrInsufficientBalance:
		return fiber.StatusPaymentRequired
	case types.ErrNotAuthenticated:
		return fiber.StatusUnauthorized
	case types.ErrNotPartyHost:
		return fiber.StatusForbidden
	case types.ErrDuplicateReward, types.ErrAlreadyPurchased, types.ErrAlreadyJoined,
		types.ErrRetryNotAllowed, types.ErrPartyInactive:
		return fiber.StatusConflict
	case types.ErrWalletNotFound, types.ErrQuizNotFound, types.ErrItemNotFound,
		types.ErrPartyNotFound, types.ErrNotInParty, types.ErrNotFound:
		return fiber.StatusNotFound
	case types.ErrInvalidArgument, types.ErrInvalidAmount:
		return fiber.StatusBadRequest
	case types.ErrOracleFailure:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	var te *types.TheaterError
	if !types.As(err, &te) {
		s.logger.Error("[HTTP] %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Something went wrong",
			"code":  types.ErrInternalError,
		})
	}

	status := StatusFor(te.Code)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("[HTTP] %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{
		"error": te.Message,
		"code":  te.Code,
	})
}

func badRequest(msg string) error {
	return types.NewTheaterError(types.ErrInvalidArgument, msg)
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return badRequest("Invalid request body")
	}
	return nil
}

func queryLimit(c *fiber.Ctx, def int) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, badRequest("limit must be a non-negative integer")
	}
	return n, nil
}
