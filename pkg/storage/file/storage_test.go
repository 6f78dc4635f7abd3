package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/fadedpez/quantumtheater/pkg/storage"
	"github.com/fadedpez/quantumtheater/pkg/storage/storagetest"
)

type StorageTestSuite struct {
	storagetest.StoreSuite
	tempDir string
	path    string
}

func TestStorage(t *testing.T) {
	suite.Run(t, new(StorageTestSuite))
}

func (s *StorageTestSuite) SetupTest() {
	// Create temp directory for test files
	tempDir, err := os.MkdirTemp("", "theater-storage-test")
	s.Require().NoError(err)
	s.tempDir = tempDir
	s.path = filepath.Join(tempDir, "nested", "theater.json")

	store, err := New(&storage.Options{Path: s.path})
	s.Require().NoError(err)
	s.Store = store
}

func (s *StorageTestSuite) TearDownTest() {
	os.RemoveAll(s.tempDir)
}

func (s *StorageTestSuite) TestPersistence() {
	// Setup
	ctx := context.Background()
	s.Require().NoError(storage.Put(ctx, s.Store, storage.UserKey("viewer", storage.KeyWallet), []byte(`{"totalTokens":12}`)))

	// Execute
	reopened, err := New(&storage.Options{Path: s.path})
	s.Require().NoError(err, "Failed to reopen store")

	// Assert
	value, err := reopened.Get(ctx, storage.UserKey("viewer", storage.KeyWallet))
	s.Require().NoError(err)
	s.JSONEq(`{"totalTokens":12}`, string(value))
}

func (s *StorageTestSuite) TestRejectsInvalidJSON() {
	err := storage.Put(context.Background(), s.Store, "broken", []byte(`{not json`))
	s.Error(err)

	_, err = s.Store.Get(context.Background(), "broken")
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *StorageTestSuite) TestCorruptFile() {
	s.Require().NoError(os.MkdirAll(filepath.Dir(s.path), 0755))
	s.Require().NoError(os.WriteFile(s.path, []byte("garbage"), 0644))

	_, err := New(&storage.Options{Path: s.path})
	s.Error(err)
}
