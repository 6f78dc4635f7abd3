package curator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/fadedpez/quantumtheater/internal/logging"
	"github.com/fadedpez/quantumtheater/internal/types"
	"github.com/fadedpez/quantumtheater/pkg/entities"
	mock_oracle "github.com/fadedpez/quantumtheater/pkg/oracle/mock"
	"github.com/fadedpez/quantumtheater/pkg/storage"
	"github.com/fadedpez/quantumtheater/pkg/storage/memory"
)

var queue = []entities.QueueVideo{
	{ID: "1", Title: "Micro Men"},
	{ID: "2", Title: "Code Rush"},
	{ID: "3", Title: "Revolution OS"},
}

type CuratorTestSuite struct {
	suite.Suite
	ctx     context.Context
	store   *memory.Store
	oracle  *mock_oracle.MockOracle
	curator *Curator
}

func TestCuratorSuite(t *testing.T) {
	suite.Run(t, new(CuratorTestSuite))
}

func (s *CuratorTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	s.oracle = mock_oracle.NewMockOracle(gomock.NewController(s.T()))
	s.curator = New(s.oracle, s.store, logging.Discard())
}

func (s *CuratorTestSuite) TestNextVideo() {
	testCases := []struct {
		name  string
		reply string
		err   error
		want  *entities.Recommendation
	}{
		{
			name:  "Valid pick",
			reply: `{"videoIndex":2,"reason":"Open source follows the browser wars.","relevanceScore":91}`,
			want:  &entities.Recommendation{VideoIndex: 2, Reason: "Open source follows the browser wars.", RelevanceScore: 91},
		},
		{name: "No match", reply: `{"videoIndex":-1,"reason":"none","relevanceScore":70}`},
		{name: "Index past queue", reply: `{"videoIndex":3,"reason":"r","relevanceScore":80}`},
		{name: "Missing reason", reply: `{"videoIndex":0,"relevanceScore":80}`},
		{name: "Missing score", reply: `{"videoIndex":0,"reason":"r"}`},
		{name: "Not JSON", reply: "I'd go with Micro Men."},
		{name: "Oracle error", err: errors.New("rate limited")},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.oracle.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(tc.reply, tc.err)
			got := s.curator.NextVideo(s.ctx, "Pirates of Silicon Valley", []string{"Hackers"}, queue)
			s.Equal(tc.want, got)
		})
	}
}

func (s *CuratorTestSuite) TestNextVideoPrompt() {
	s.oracle.EXPECT().Complete(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, prompt string) (string, error) {
		s.Contains(prompt, `"Pirates of Silicon Valley"`)
		s.Contains(prompt, "Micro Men, Code Rush, Revolution OS")
		s.Contains(prompt, "New viewing session")
		return `{"videoIndex":0,"reason":"r","relevanceScore":75}`, nil
	})
	s.NotNil(s.curator.NextVideo(s.ctx, "Pirates of Silicon Valley", nil, queue))

	s.Nil(s.curator.NextVideo(s.ctx, "Pirates of Silicon Valley", nil, nil), "Empty queue never asks the oracle")
}

func (s *CuratorTestSuite) TestCurate() {
	reply := "```json\n" + `{"videos":[
		{"title":"Triumph of the Nerds","url":"https://archive.org/embed/a","reason":"Classic.","relevanceScore":95,"category":"Computing History"},
		{"title":"Incomplete","url":"","reason":"x","relevanceScore":80,"category":"Gaming"},
		{"title":"The Net","url":"https://archive.org/embed/b","reason":"Fun.","relevanceScore":72,"category":"Internet History"}
	]}` + "\n```"

	s.oracle.EXPECT().Complete(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, prompt string) (string, error) {
		s.Contains(prompt, "New user")
		return reply, nil
	})
	videos, err := s.curator.Curate(s.ctx, "viewer")
	s.Require().NoError(err)
	s.Require().Len(videos, 2)
	s.Equal("Triumph of the Nerds", videos[0].Title)
	s.Equal(95.0, videos[0].RelevanceScore)

	intents, err := storage.Load(s.ctx, s.store, storage.UserKey("viewer", storage.KeyIntentHistory), []string{})
	s.Require().NoError(err)
	s.Equal([]string{"Computing History", "Internet History"}, intents)

	s.oracle.EXPECT().Complete(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, prompt string) (string, error) {
		s.Contains(prompt, "shown interest in: Computing History, Internet History")
		return "", errors.New("down")
	})
	videos, err = s.curator.Curate(s.ctx, "viewer")
	s.Require().NoError(err)
	s.NotNil(videos)
	s.Empty(videos)

	_, err = s.curator.Curate(s.ctx, "")
	s.True(types.IsTheaterError(err, types.ErrNotAuthenticated))
}

func (s *CuratorTestSuite) TestAnalyze() {
	s.oracle.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(`{"analysis":"Branching timelines.","quantumFactors":["a","b"]}`, nil)
	got := s.curator.Analyze(s.ctx, "WarGames")
	s.Equal("Branching timelines.", got.Analysis)
	s.Equal([]string{"a", "b"}, got.QuantumFactors)

	s.oracle.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(`{"quantumFactors":null}`, nil)
	got = s.curator.Analyze(s.ctx, "WarGames")
	s.Equal(DefaultAnalysis, got.Analysis)
	s.Empty(got.QuantumFactors)

	s.oracle.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("", errors.New("down"))
	got = s.curator.Analyze(s.ctx, "WarGames")
	s.Equal(DefaultAnalysis, got.Analysis)
}

func (s *CuratorTestSuite) TestSubtitle() {
	testCases := []struct {
		name  string
		reply string
		err   error
		want  string
	}{
		{name: "Tagline", reply: "\"Two garages, one revolution\"\n", want: "Two garages, one revolution"},
		{name: "Blank", reply: "   ", want: DefaultSubtitle},
		{name: "Too long", reply: strings.Repeat("word ", 40), want: DefaultSubtitle},
		{name: "Error", err: errors.New("down"), want: DefaultSubtitle},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.oracle.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(tc.reply, tc.err)
			s.Equal(tc.want, s.curator.Subtitle(s.ctx, "Pirates of Silicon Valley"))
		})
	}

	offline := New(nil, s.store, logging.Discard())
	s.Equal(DefaultSubtitle, offline.Subtitle(s.ctx, "Hackers"))
	s.Nil(offline.NextVideo(s.ctx, "Hackers", nil, queue))
}
