package content

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/suite"

	"github.com/fadedpez/quantumtheater/internal/logging"
	"github.com/fadedpez/quantumtheater/internal/types"
	"github.com/fadedpez/quantumtheater/pkg/storage/memory"
)

type ContentTestSuite struct {
	suite.Suite
	ctx     context.Context
	clock   *clockwork.FakeClock
	service *Service
}

func TestContentSuite(t *testing.T) {
	suite.Run(t, new(ContentTestSuite))
}

func (s *ContentTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	s.service = NewService(memory.New(), s.clock, logging.Discard())
}

func (s *ContentTestSuite) TestClassify() {
	testCases := []struct {
		title string
		doc   bool
		fee   int64
	}{
		{title: "Pirates of Silicon Valley", doc: true, fee: 10},
		{title: "PIRATES OF SILICON VALLEY (1999)", doc: true, fee: 10},
		{title: "Micro Men: The Story of Sinclair vs Acorn", doc: false},
		{title: "The Computer Programme - BBC Documentary Series", doc: true},
		{title: "A History of Unix", doc: true},
		{title: "Keynote Presentation", doc: true},
		{title: "Pirates of the Caribbean", doc: true},
		{title: "WarGames (1983)", doc: false},
		{title: "", doc: false},
	}

	for _, tc := range testCases {
		s.Run(tc.title, func() {
			c := Classify(tc.title)
			s.Equal(tc.doc, c.IsDocumentary)
			s.Equal(tc.fee, c.ViewingFee)
		})
	}
}

func (s *ContentTestSuite) TestQueue() {
	queue, err := s.service.Queue(s.ctx)
	s.Require().NoError(err)
	s.Len(queue, 14)
	s.Equal("1", queue[0].ID)

	video, err := s.service.AddVideo(s.ctx, " https://archive.org/embed/Sneakers ", "  ")
	s.Require().NoError(err)
	s.Equal(UntitledVideo, video.Title)
	s.Equal("https://archive.org/embed/Sneakers", video.URL)

	queue, err = s.service.Queue(s.ctx)
	s.Require().NoError(err)
	s.Len(queue, 15)
	s.Equal(video.ID, queue[14].ID)

	s.Require().NoError(s.service.RemoveVideo(s.ctx, "1"))
	err = s.service.RemoveVideo(s.ctx, "1")
	s.True(types.IsTheaterError(err, types.ErrNotFound))

	queue, err = s.service.Queue(s.ctx)
	s.Require().NoError(err)
	s.Len(queue, 14)

	_, err = s.service.AddVideo(s.ctx, "", "Title")
	s.True(types.IsTheaterError(err, types.ErrInvalidArgument))
	_, err = s.service.AddVideo(s.ctx, "javascript:alert(1)", "Title")
	s.True(types.IsTheaterError(err, types.ErrInvalidArgument))
}

func (s *ContentTestSuite) TestHistory() {
	for _, title := range []string{"Hackers", "Hackers", "Sneakers"} {
		s.Require().NoError(s.service.RecordViewed(s.ctx, "viewer", title))
	}

	history, err := s.service.History(s.ctx, "viewer")
	s.Require().NoError(err)
	s.Require().Len(history, 2, "Repeat plays of the same title are recorded once")
	s.Equal("Sneakers", history[1].Title)

	for i := 0; i < MaxHistory+5; i++ {
		s.Require().NoError(s.service.RecordViewed(s.ctx, "viewer", string(rune('A'+i%26))+string(rune('a'+i/26))))
	}
	history, err = s.service.History(s.ctx, "viewer")
	s.Require().NoError(err)
	s.Len(history, MaxHistory)

	err = s.service.RecordViewed(s.ctx, "", "Hackers")
	s.True(types.IsTheaterError(err, types.ErrNotAuthenticated))
}

func (s *ContentTestSuite) TestFactRotation() {
	fact, err := s.service.CurrentFact(s.ctx)
	s.Require().NoError(err)
	s.Equal("1", fact.ID)

	for _, want := range []string{"2", "3", "4", "5", "1"} {
		fact, err = s.service.AdvanceFact(s.ctx)
		s.Require().NoError(err)
		s.Equal(want, fact.ID)
	}

	added, err := s.service.AddFact(s.ctx, "ENIAC weighed 27 tonnes.", "ENIAC")
	s.Require().NoError(err)
	facts, err := s.service.Facts(s.ctx)
	s.Require().NoError(err)
	s.Len(facts, 6)
	s.Equal(added.ID, facts[5].ID)

	_, err = s.service.AddFact(s.ctx, " ", "")
	s.True(types.IsTheaterError(err, types.ErrInvalidArgument))
}

func (s *ContentTestSuite) TestFactIndexWrapsWhenListShrinks() {
	for i := 0; i < 4; i++ {
		_, err := s.service.AdvanceFact(s.ctx)
		s.Require().NoError(err)
	}
	fact, err := s.service.CurrentFact(s.ctx)
	s.Require().NoError(err)
	s.Equal("5", fact.ID)

	s.Require().NoError(s.service.RemoveFact(s.ctx, "5"))
	fact, err = s.service.CurrentFact(s.ctx)
	s.Require().NoError(err)
	s.Equal("1", fact.ID)

	fact, err = s.service.AdvanceFact(s.ctx)
	s.Require().NoError(err)
	s.Equal("1", fact.ID)

	err = s.service.RemoveFact(s.ctx, "5")
	s.True(types.IsTheaterError(err, types.ErrNotFound))
}

func (s *ContentTestSuite) TestNoFacts() {
	for _, f := range InitialFacts {
		s.Require().NoError(s.service.RemoveFact(s.ctx, f.ID))
	}
	fact, err := s.service.CurrentFact(s.ctx)
	s.Require().NoError(err)
	s.Nil(fact)

	fact, err = s.service.AdvanceFact(s.ctx)
	s.Require().NoError(err)
	s.Nil(fact)
}
