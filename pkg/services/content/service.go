package content

import (
	"context"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/fadedpez/quantumtheater/internal/logging"
	"github.com/fadedpez/quantumtheater/internal/types"
	"github.com/fadedpez/quantumtheater/pkg/entities"
	"github.com/fadedpez/quantumtheater/pkg/ledger"
	"github.com/fadedpez/quantumtheater/pkg/services/wallet"
	"github.com/fadedpez/quantumtheater/pkg/storage"
)

const (
	// UntitledVideo names queue entries added without a title
	UntitledVideo = "Untitled Video"
	// MaxHistory is how many viewed titles are kept per viewer
	MaxHistory = 50
)

// Service owns the shared queue, the fact rotation and viewing history
type Service struct {
	store  storage.Store
	clock  clockwork.Clock
	logger *logging.Logger
}

// NewService creates a content service
func NewService(store storage.Store, clock clockwork.Clock, logger *logging.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = logging.Default
	}
	return &Service{
		store:  store,
		clock:  clock,
		logger: logger,
	}
}

// Queue returns the videos waiting to play, oldest first
func (s *Service) Queue(ctx context.Context) ([]entities.QueueVideo, error) {
	queue, err := storage.Load(ctx, s.store, storage.KeyVideoQueue, s.seed())
	if err != nil {
		return nil, types.WrapError(types.ErrStorageError, "could not load queue", err)
	}
	return queue, nil
}

// AddVideo appends a video to the queue
func (s *Service) AddVideo(ctx context.Context, rawURL, title string) (*entities.QueueVideo, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, types.NewTheaterError(types.ErrInvalidArgument, "Please enter a video URL")
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, types.NewTheaterError(types.ErrInvalidArgument, "video URL must be an http(s) link")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = UntitledVideo
	}

	video := entities.QueueVideo{
		ID:      ledger.NewID(),
		URL:     rawURL,
		Title:   title,
		AddedAt: s.clock.Now(),
	}
	_, err = storage.Mutate(ctx, s.store, storage.KeyVideoQueue, s.seed(),
		func(queue []entities.QueueVideo) ([]entities.QueueVideo, error) {
			return append(queue, video), nil
		})
	if err != nil {
		return nil, types.WrapError(types.ErrStorageError, "could not add video", err)
	}
	s.logger.Debug("[QUEUE] Added %q", title)
	return &video, nil
}

// RemoveVideo drops a video from the queue
func (s *Service) RemoveVideo(ctx context.Context, id string) error {
	_, err := storage.Mutate(ctx, s.store, storage.KeyVideoQueue, s.seed(),
		func(queue []entities.QueueVideo) ([]entities.QueueVideo, error) {
			out := make([]entities.QueueVideo, 0, len(queue))
			for _, v := range queue {
				if v.ID != id {
					out = append(out, v)
				}
			}
			if len(out) == len(queue) {
				return nil, types.NewTheaterError(types.ErrNotFound, "Video is not in the queue")
			}
			return out, nil
		})
	if err != nil {
		if types.IsTheaterError(err, types.ErrNotFound) {
			return err
		}
		return types.WrapError(types.ErrStorageError, "could not remove video", err)
	}
	return nil
}

func (s *Service) seed() []entities.QueueVideo {
	now := s.clock.Now()
	queue := make([]entities.QueueVideo, len(seedQueue))
	for i, v := range seedQueue {
		queue[i] = entities.QueueVideo{
			ID:      strconv.Itoa(i + 1),
			URL:     v.url,
			Title:   v.title,
			AddedAt: now.Add(time.Duration(i-len(seedQueue)+1) * time.Second),
		}
	}
	return queue
}

// RecordViewed adds title to the viewer's history, keeping the newest MaxHistory
func (s *Service) RecordViewed(ctx context.Context, userID, title string) error {
	if err := wallet.RequireUser(userID); err != nil {
		return err
	}
	entry := entities.ViewedVideo{Title: title, ViewedAt: s.clock.Now()}
	_, err := storage.Mutate(ctx, s.store, storage.UserKey(userID, storage.KeyViewingHistory), []entities.ViewedVideo{},
		func(history []entities.ViewedVideo) ([]entities.ViewedVideo, error) {
			if n := len(history); n > 0 && history[n-1].Title == title {
				return history, storage.ErrUnchanged
			}
			history = append(history, entry)
			if len(history) > MaxHistory {
				history = history[len(history)-MaxHistory:]
			}
			return history, nil
		})
	if err != nil {
		return types.WrapError(types.ErrStorageError, "could not record history", err)
	}
	return nil
}

// History returns what the viewer watched, oldest first
func (s *Service) History(ctx context.Context, userID string) ([]entities.ViewedVideo, error) {
	if err := wallet.RequireUser(userID); err != nil {
		return nil, err
	}
	history, err := storage.Load(ctx, s.store, storage.UserKey(userID, storage.KeyViewingHistory), []entities.ViewedVideo{})
	if err != nil {
		return nil, types.WrapError(types.ErrStorageError, "could not load history", err)
	}
	return history, nil
}

// Facts returns every fact in rotation order
func (s *Service) Facts(ctx context.Context) ([]entities.Fact, error) {
	facts, err := storage.Load(ctx, s.store, storage.KeyFacts, slices.Clone(InitialFacts))
	if err != nil {
		return nil, types.WrapError(types.ErrStorageError, "could not load facts", err)
	}
	return facts, nil
}

// AddFact appends a fact to the rotation
func (s *Service) AddFact(ctx context.Context, text, category string) (*entities.Fact, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, types.NewTheaterError(types.ErrInvalidArgument, "fact text is required")
	}
	fact := entities.Fact{
		ID:       ledger.NewID(),
		Text:     text,
		Category: strings.TrimSpace(category),
	}
	_, err := storage.Mutate(ctx, s.store, storage.KeyFacts, InitialFacts,
		func(facts []entities.Fact) ([]entities.Fact, error) {
			return append(facts, fact), nil
		})
	if err != nil {
		return nil, types.WrapError(types.ErrStorageError, "could not add fact", err)
	}
	return &fact, nil
}

// RemoveFact takes a fact out of the rotation
func (s *Service) RemoveFact(ctx context.Context, id string) error {
	_, err := storage.Mutate(ctx, s.store, storage.KeyFacts, InitialFacts,
		func(facts []entities.Fact) ([]entities.Fact, error) {
			out := make([]entities.Fact, 0, len(facts))
			for _, f := range facts {
				if f.ID != id {
					out = append(out, f)
				}
			}
			if len(out) == len(facts) {
				return nil, types.NewTheaterError(types.ErrNotFound, "fact not found")
			}
			return out, nil
		})
	if err != nil {
		if types.IsTheaterError(err, types.ErrNotFound) {
			return err
		}
		return types.WrapError(types.ErrStorageError, "could not remove fact", err)
	}
	return nil
}

// CurrentFact returns the fact on screen, or nil when there are none.
// An index left past the end by a removal wraps to the first fact.
func (s *Service) CurrentFact(ctx context.Context) (*entities.Fact, error) {
	facts, err := s.Facts(ctx)
	if err != nil || len(facts) == 0 {
		return nil, err
	}
	idx, err := storage.Load(ctx, s.store, storage.KeyFactIndex, 0)
	if err != nil {
		return nil, types.WrapError(types.ErrStorageError, "could not load fact index", err)
	}
	if idx < 0 || idx >= len(facts) {
		idx = 0
	}
	return &facts[idx], nil
}

// AdvanceFact moves the rotation to the next fact and returns it
func (s *Service) AdvanceFact(ctx context.Context) (*entities.Fact, error) {
	facts, err := s.Facts(ctx)
	if err != nil || len(facts) == 0 {
		return nil, err
	}
	idx, err := storage.Mutate(ctx, s.store, storage.KeyFactIndex, 0, func(idx int) (int, error) {
		if idx < 0 || idx >= len(facts) {
			return 0, nil
		}
		return (idx + 1) % len(facts), nil
	})
	if err != nil {
		return nil, types.WrapError(types.ErrStorageError, "could not advance facts", err)
	}
	return &facts[idx], nil
}
