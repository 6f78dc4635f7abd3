package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/fadedpez/quantumtheater/pkg/storage"
	"github.com/fadedpez/quantumtheater/pkg/storage/storagetest"
)

type MemoryStoreTestSuite struct {
	storagetest.StoreSuite
}

func TestMemoryStore(t *testing.T) {
	suite.Run(t, new(MemoryStoreTestSuite))
}

func (s *MemoryStoreTestSuite) SetupTest() {
	s.Store = New()
}

func (s *MemoryStoreTestSuite) TestValuesAreCopied() {
	ctx := context.Background()
	value := []byte(`"abc"`)
	s.Require().NoError(storage.Put(ctx, s.Store, "k", value))
	value[1] = 'z'

	got, err := s.Store.Get(ctx, "k")
	s.Require().NoError(err)
	s.Equal(`"abc"`, string(got))
}

func (s *MemoryStoreTestSuite) TestClosed() {
	s.Require().NoError(s.Store.Close())

	_, err := s.Store.Get(context.Background(), "k")
	s.ErrorIs(err, storage.ErrClosed)
	s.Error(s.Store.Close())
}
