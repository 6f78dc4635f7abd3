package migrations

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/suite"

	"github.com/fadedpez/quantumtheater/internal/logging"
)

type MigratorTestSuite struct {
	suite.Suite
	db *sql.DB
}

func TestMigratorSuite(t *testing.T) {
	suite.Run(t, new(MigratorTestSuite))
}

func (s *MigratorTestSuite) SetupTest() {
	db, err := sql.Open("sqlite3", ":memory:")
	s.Require().NoError(err)
	db.SetMaxOpenConns(1)
	s.db = db
}

func (s *MigratorTestSuite) TearDownTest() {
	s.db.Close()
}

func (s *MigratorTestSuite) TestEmbeddedMigrationsApplyOnce() {
	ctx := context.Background()
	migrator := NewMigrator(s.db, Embedded(), logging.Discard())

	count, err := migrator.MigrateUp(ctx)
	s.Require().NoError(err)
	s.Equal(2, count)

	count, err = migrator.MigrateUp(ctx)
	s.Require().NoError(err)
	s.Zero(count, "Second run should apply nothing")

	_, err = s.db.Exec(`INSERT INTO kv_store (key, value) VALUES ('k', '{}')`)
	s.NoError(err)
}

func (s *MigratorTestSuite) TestOrderingAndBadNames() {
	source := fstest.MapFS{
		"002_second.sql": {Data: []byte("CREATE TABLE b (id INTEGER);")},
		"001_first.sql":  {Data: []byte("CREATE TABLE a (id INTEGER);")},
		"README.md":      {Data: []byte("ignored")},
	}
	migrations, err := NewMigrator(s.db, source, logging.Discard()).LoadMigrations()
	s.Require().NoError(err)
	s.Require().Len(migrations, 2)
	s.Equal("001", migrations[0].Version)
	s.Equal("first", migrations[0].Description)

	_, err = NewMigrator(s.db, fstest.MapFS{"bad.sql": {Data: []byte("")}}, logging.Discard()).LoadMigrations()
	s.Error(err)
}

func (s *MigratorTestSuite) TestCreateMigration() {
	dir := s.T().TempDir()

	first, err := CreateMigration(dir, "add party index", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.Equal(filepath.Join(dir, "001_add_party_index.sql"), first)

	second, err := CreateMigration(dir, "second", time.Now())
	s.Require().NoError(err)
	s.Equal(filepath.Join(dir, "002_second.sql"), second)

	content, err := os.ReadFile(first)
	s.Require().NoError(err)
	s.Contains(string(content), "-- Migration: add party index")
}
