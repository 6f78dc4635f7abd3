package curator

import (
	"context"
	"fmt"
	"strings"

	"github.com/fadedpez/quantumtheater/internal/logging"
	"github.com/fadedpez/quantumtheater/internal/types"
	"github.com/fadedpez/quantumtheater/pkg/entities"
	"github.com/fadedpez/quantumtheater/pkg/oracle"
	"github.com/fadedpez/quantumtheater/pkg/services/wallet"
	"github.com/fadedpez/quantumtheater/pkg/storage"
)

const (
	// DefaultSubtitle is shown under the player when no tagline is available
	DefaultSubtitle = "A Journey Through Computing History"
	// DefaultAnalysis is used when the oracle gives no analysis text
	DefaultAnalysis = "Quantum analysis complete."

	intentWindow   = 5
	maxIntents     = 50
	maxCurated     = 5
	maxSubtitleLen = 80
)

const nextVideoPrompt = `You are a quantum-powered video recommendation engine. Based on the current video and viewing context, determine the BEST next video to play.

Current Video: %q
%s

Available Queue: %s

Analyze which video from the queue would provide the best viewing experience next. Consider topical relevance and natural progression, variety to prevent fatigue, educational value flow and historical chronology if applicable.

Return a JSON object with:
- videoIndex: The index (0-based) of the best video from the queue
- reason: One compelling sentence explaining why this video should play next
- relevanceScore: Number from 70-100 indicating match quality

If the queue is empty or no good match exists, return videoIndex as -1.`

const curatePrompt = `You are a quantum-powered content curator for a tech documentary theater. Analyze user intent and recommend the TOP 5 most relevant computing/tech documentaries or movies.

%s

Return a JSON object with a property "videos" containing an array of 5 video recommendations. Each video should have:
- title: Full movie/documentary title
- url: An actual archive.org embed URL (use format: https://archive.org/embed/VIDEO_ID)
- reason: One compelling sentence explaining why this is recommended
- relevanceScore: Number from 70-100 indicating match quality
- category: One of: "Computing History", "Tech Biography", "Programming", "Hardware", "Internet History", "Gaming", "AI & Robotics", "IoT & Embedded"

Focus on real, historically significant content from archive.org. Prioritize variety across different eras and topics.`

const analyzePrompt = `Analyze the movie title %q from a quantum computing and tech innovation perspective. Provide:
1. A brief analysis of how the movie's themes relate to quantum computing, parallel universes, superposition, or computing innovation
2. Five quantum factors found in the story

Keep the tone educational but fun. Return as JSON with properties: analysis (string), quantumFactors (array of 5 strings)`

const subtitlePrompt = `Write a single short tagline (at most 8 words) for the video %q in a computing history theater. Return only the tagline.`

type nextVideoReply struct {
	VideoIndex     *int     `json:"videoIndex"`
	Reason         string   `json:"reason"`
	RelevanceScore *float64 `json:"relevanceScore"`
}

type curateReply struct {
	Videos []struct {
		Title          string   `json:"title"`
		URL            string   `json:"url"`
		Reason         string   `json:"reason"`
		RelevanceScore *float64 `json:"relevanceScore"`
		Category       string   `json:"category"`
	} `json:"videos"`
}

// Curator turns oracle replies into recommendations. Every operation has
// a safe default, so an oracle outage only costs suggestions.
type Curator struct {
	oracle oracle.Oracle
	store  storage.Store
	logger *logging.Logger
}

// New creates a curator. o may be nil, in which case every call falls back.
func New(o oracle.Oracle, store storage.Store, logger *logging.Logger) *Curator {
	if logger == nil {
		logger = logging.Default
	}
	return &Curator{
		oracle: o,
		store:  store,
		logger: logger,
	}
}

// NextVideo picks what to autoplay after current. It returns nil when the
// oracle fails or its pick is not a valid queue position.
func (c *Curator) NextVideo(ctx context.Context, current string, history []string, queue []entities.QueueVideo) *entities.Recommendation {
	if len(queue) == 0 {
		return nil
	}

	historyContext := "New viewing session"
	if len(history) > 0 {
		recent := history[max(0, len(history)-intentWindow):]
		historyContext = "Recently watched: " + strings.Join(recent, ", ")
	}
	titles := make([]string, len(queue))
	for i, v := range queue {
		titles[i] = v.Title
	}

	reply, err := oracle.Ask[nextVideoReply](ctx, c.oracle, fmt.Sprintf(nextVideoPrompt, current, historyContext, strings.Join(titles, ", ")))
	if err != nil {
		c.logger.Warn("[CURATOR] Next video lookup failed: %v", err)
		return nil
	}
	if reply.VideoIndex == nil || *reply.VideoIndex < 0 || *reply.VideoIndex >= len(queue) {
		return nil
	}
	if strings.TrimSpace(reply.Reason) == "" || reply.RelevanceScore == nil || *reply.RelevanceScore <= 0 {
		return nil
	}
	return &entities.Recommendation{
		VideoIndex:     *reply.VideoIndex,
		Reason:         strings.TrimSpace(reply.Reason),
		RelevanceScore: *reply.RelevanceScore,
	}
}

// Curate recommends up to five titles shaped by the viewer's past
// interests and remembers the categories it suggested. Failure yields an
// empty list.
func (c *Curator) Curate(ctx context.Context, userID string) ([]entities.CuratedVideo, error) {
	if err := wallet.RequireUser(userID); err != nil {
		return nil, err
	}
	key := storage.UserKey(userID, storage.KeyIntentHistory)
	intents, err := storage.Load(ctx, c.store, key, []string{})
	if err != nil {
		return nil, types.WrapError(types.ErrStorageError, "could not load interests", err)
	}

	videos := c.curate(ctx, intents)
	if len(videos) == 0 {
		return videos, nil
	}

	_, err = storage.Mutate(ctx, c.store, key, []string{}, func(cur []string) ([]string, error) {
		for _, v := range videos {
			cur = append(cur, v.Category)
		}
		if len(cur) > maxIntents {
			cur = cur[len(cur)-maxIntents:]
		}
		return cur, nil
	})
	if err != nil {
		c.logger.Warn("[CURATOR] Could not record interests for %s: %v", userID, err)
	}
	return videos, nil
}

func (c *Curator) curate(ctx context.Context, intents []string) []entities.CuratedVideo {
	intentContext := "New user, focus on foundational computing documentaries"
	if len(intents) > 0 {
		recent := intents[max(0, len(intents)-intentWindow):]
		intentContext = "User has previously shown interest in: " + strings.Join(recent, ", ")
	}

	out := []entities.CuratedVideo{}
	reply, err := oracle.Ask[curateReply](ctx, c.oracle, fmt.Sprintf(curatePrompt, intentContext))
	if err != nil {
		c.logger.Warn("[CURATOR] Curation failed: %v", err)
		return out
	}
	for _, v := range reply.Videos {
		if v.Title == "" || v.URL == "" || v.Reason == "" || v.Category == "" || v.RelevanceScore == nil {
			continue
		}
		out = append(out, entities.CuratedVideo{
			Title:          v.Title,
			URL:            v.URL,
			Reason:         v.Reason,
			RelevanceScore: *v.RelevanceScore,
			Category:       v.Category,
		})
		if len(out) == maxCurated {
			break
		}
	}
	return out
}

// Analyze describes a title's themes. Missing fields get defaults.
func (c *Curator) Analyze(ctx context.Context, title string) entities.Analysis {
	reply, err := oracle.Ask[entities.Analysis](ctx, c.oracle, fmt.Sprintf(analyzePrompt, title))
	if err != nil {
		c.logger.Warn("[CURATOR] Analysis of %q failed: %v", title, err)
	}
	if strings.TrimSpace(reply.Analysis) == "" {
		reply.Analysis = DefaultAnalysis
	}
	if reply.QuantumFactors == nil {
		reply.QuantumFactors = []string{}
	}
	return reply
}

// Subtitle returns a one-line tagline for title
func (c *Curator) Subtitle(ctx context.Context, title string) string {
	if c.oracle == nil || strings.TrimSpace(title) == "" {
		return DefaultSubtitle
	}
	reply, err := c.oracle.Complete(ctx, fmt.Sprintf(subtitlePrompt, title))
	if err != nil {
		c.logger.Debug("[CURATOR] Subtitle for %q failed: %v", title, err)
		return DefaultSubtitle
	}
	line, _, _ := strings.Cut(strings.TrimSpace(reply), "\n")
	line = strings.Trim(strings.TrimSpace(line), `"`)
	if line == "" || len([]rune(line)) > maxSubtitleLen {
		return DefaultSubtitle
	}
	return line
}
