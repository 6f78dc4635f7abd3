package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/fadedpez/quantumtheater/internal/logging"
	"github.com/fadedpez/quantumtheater/internal/types"
	"github.com/fadedpez/quantumtheater/pkg/entities"
	"github.com/fadedpez/quantumtheater/pkg/ledger"
	"github.com/fadedpez/quantumtheater/pkg/oracle"
	"github.com/fadedpez/quantumtheater/pkg/services/wallet"
	"github.com/fadedpez/quantumtheater/pkg/storage"
)

const promptTemplate = `Generate a trivia question about the movie/content titled: %q.
Return as JSON with properties:
- question: string (a specific trivia question)
- options: array of 4 answer options (strings)
- correctAnswer: number (index 0-3 of the correct option)

Make the question challenging but fair. Focus on computing history, technology, or the content's themes.`

type oracleQuiz struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer *int     `json:"correctAnswer"`
}

// Service generates quizzes and pays their bonus exactly once per title
type Service struct {
	store   storage.Store
	wallets wallet.WalletService
	ledger  *ledger.Ledger
	oracle  oracle.Oracle
	policy  RetryPolicy
	clock   clockwork.Clock
	logger  *logging.Logger
}

// NewService creates a quiz service
func NewService(store storage.Store, wallets wallet.WalletService, l *ledger.Ledger, o oracle.Oracle, policy RetryPolicy, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default
	}
	return &Service{
		store:   store,
		wallets: wallets,
		ledger:  l,
		oracle:  o,
		policy:  policy,
		clock:   l.Clock(),
		logger:  logger,
	}
}

// Generate creates a quiz for title and makes it the viewer's active quiz.
// An oracle failure falls back to a canned question.
func (s *Service) Generate(ctx context.Context, userID, title string, isDocumentary bool) (*entities.Quiz, error) {
	if err := wallet.RequireUser(userID); err != nil {
		return nil, err
	}
	if title == "" {
		return nil, types.NewTheaterError(types.ErrInvalidArgument, "video title is required")
	}
	if _, err := s.wallets.GetWallet(ctx, userID); err != nil {
		return nil, err
	}

	completed, err := s.Completed(ctx, userID)
	if err != nil {
		return nil, err
	}
	if contains(completed, storage.QuizKey(title)) {
		return nil, types.NewTheaterError(types.ErrDuplicateReward, "You already completed this quiz!")
	}

	attempts, err := storage.Load(ctx, s.store, storage.UserKey(userID, storage.KeyQuizAttempts), map[string]int{})
	if err != nil {
		return nil, types.WrapError(types.ErrStorageError, "could not load quiz attempts", err)
	}
	if err := s.policy.Permits(attempts[title]); err != nil {
		return nil, err
	}

	quiz := &entities.Quiz{
		ID:            ledger.NewID(),
		VideoTitle:    title,
		IsDocumentary: isDocumentary,
		BonusTokens:   ledger.QuizReward(isDocumentary),
		CreatedAt:     s.clock.Now(),
	}

	reply, err := oracle.Ask[oracleQuiz](ctx, s.oracle, fmt.Sprintf(promptTemplate, title))
	if err == nil {
		err = validate(reply)
	}
	if err != nil {
		s.logger.Warn("[QUIZ] Oracle quiz for %q unusable, using fallback: %v", title, err)
		canned := fallbackFor(title)
		quiz.Question = canned.question
		quiz.Options = canned.options[:]
		quiz.CorrectAnswer = canned.correct
	} else {
		quiz.Question = strings.TrimSpace(reply.Question)
		quiz.Options = reply.Options
		quiz.CorrectAnswer = *reply.CorrectAnswer
	}

	if err := storage.Save(ctx, s.store, storage.UserKey(userID, storage.KeyActiveQuiz), quiz); err != nil {
		return nil, types.WrapError(types.ErrStorageError, "could not save quiz", err)
	}
	return quiz, nil
}

// Answer grades choice against the viewer's active quiz and pays the bonus
// when it is correct and the title has not been rewarded before. A correct
// answer on a title already rewarded reports zero tokens rather than an error.
func (s *Service) Answer(ctx context.Context, userID, quizID string, choice int) (*entities.QuizResult, error) {
	if err := wallet.RequireUser(userID); err != nil {
		return nil, err
	}

	quiz, err := storage.Load(ctx, s.store, storage.UserKey(userID, storage.KeyActiveQuiz), (*entities.Quiz)(nil))
	if err != nil {
		return nil, types.WrapError(types.ErrStorageError, "could not load quiz", err)
	}
	if quiz == nil || quiz.ID != quizID {
		return nil, types.NewTheaterError(types.ErrQuizNotFound, "That quiz is no longer active")
	}
	if choice < 0 || choice >= len(quiz.Options) {
		return nil, types.NewTheaterError(types.ErrInvalidArgument, fmt.Sprintf("choice must be between 0 and %d", len(quiz.Options)-1))
	}

	if err := s.recordAttempt(ctx, userID, quiz.VideoTitle); err != nil {
		return nil, err
	}
	// One answer per generated quiz
	if err := s.store.Delete(ctx, storage.UserKey(userID, storage.KeyActiveQuiz)); err != nil {
		s.logger.Warn("[QUIZ] Could not clear active quiz for user %s: %v", userID, err)
	}

	result := &entities.QuizResult{
		Correct:       choice == quiz.CorrectAnswer,
		CorrectAnswer: quiz.CorrectAnswer,
	}
	if !result.Correct {
		result.Message = "Incorrect answer. Try again later!"
		if w, err := s.wallets.GetWallet(ctx, userID); err == nil {
			result.Balance = w.TotalTokens
		}
		return result, nil
	}

	w, err := s.Grant(ctx, userID, quiz.VideoTitle, quiz.BonusTokens)
	if types.IsTheaterError(err, types.ErrDuplicateReward) {
		result.Message = "You already completed this quiz!"
		if w, err := s.wallets.GetWallet(ctx, userID); err == nil {
			result.Balance = w.TotalTokens
		}
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	result.TokensAwarded = quiz.BonusTokens
	result.Balance = w.TotalTokens
	result.Message = fmt.Sprintf("Correct! +%d bonus tokens!", quiz.BonusTokens)
	return result, nil
}

// Grant pays reward for a correct answer on title. The completed set is
// claimed first; if the credit then fails the claim is released, so the
// bonus is paid at most once and is never lost.
func (s *Service) Grant(ctx context.Context, userID, title string, reward int64) (*entities.Wallet, error) {
	key := storage.QuizKey(title)
	completedKey := storage.UserKey(userID, storage.KeyCompletedQuizzes)

	var before []string
	_, err := storage.Mutate(ctx, s.store, completedKey, []string{}, func(set []string) ([]string, error) {
		if contains(set, key) {
			return nil, types.NewTheaterError(types.ErrDuplicateReward, "You already completed this quiz!")
		}
		before = set
		out := make([]string, len(set), len(set)+1)
		copy(out, set)
		return append(out, key), nil
	})
	if err != nil {
		if types.IsTheaterError(err, types.ErrDuplicateReward) {
			return nil, err
		}
		return nil, types.WrapError(types.ErrStorageError, "could not record quiz completion", err)
	}

	w, err := s.wallets.Apply(ctx, userID, func(cur *entities.Wallet) (*entities.Wallet, error) {
		next, _, err := GrantIfEligible(s.ledger, cur, before, title, true, reward)
		return next, err
	})
	if err != nil {
		s.release(ctx, completedKey, key)
		return nil, err
	}

	s.logger.Info("[QUIZ] User %s passed the quiz for %q (+%d)", userID, title, reward)
	return w, nil
}

func (s *Service) release(ctx context.Context, completedKey, key string) {
	_, err := storage.Mutate(ctx, s.store, completedKey, []string{}, func(set []string) ([]string, error) {
		if !contains(set, key) {
			return set, storage.ErrUnchanged
		}
		return without(set, key), nil
	})
	if err != nil {
		s.logger.Error("[QUIZ] Could not release %s after a failed credit: %v", key, err)
	}
}

func (s *Service) recordAttempt(ctx context.Context, userID, title string) error {
	_, err := storage.Mutate(ctx, s.store, storage.UserKey(userID, storage.KeyQuizAttempts), map[string]int{},
		func(attempts map[string]int) (map[string]int, error) {
			if err := s.policy.Permits(attempts[title]); err != nil {
				return nil, err
			}
			attempts[title]++
			return attempts, nil
		})
	var theaterErr *types.TheaterError
	if errors.As(err, &theaterErr) {
		return err
	}
	if err != nil {
		return types.WrapError(types.ErrStorageError, "could not record quiz attempt", err)
	}
	return nil
}

// Completed returns the viewer's completed quiz keys
func (s *Service) Completed(ctx context.Context, userID string) ([]string, error) {
	set, err := storage.Load(ctx, s.store, storage.UserKey(userID, storage.KeyCompletedQuizzes), []string{})
	if err != nil {
		return nil, types.WrapError(types.ErrStorageError, "could not load completed quizzes", err)
	}
	return set, nil
}

func validate(q oracleQuiz) error {
	if strings.TrimSpace(q.Question) == "" {
		return errors.New("missing question")
	}
	if len(q.Options) != 4 {
		return fmt.Errorf("expected 4 options, got %d", len(q.Options))
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("option %d is empty", i)
		}
	}
	if q.CorrectAnswer == nil || *q.CorrectAnswer < 0 || *q.CorrectAnswer > 3 {
		return errors.New("correctAnswer must be 0-3")
	}
	return nil
}
