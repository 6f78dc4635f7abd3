package backup

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/fadedpez/quantumtheater/internal/logging"
	"github.com/fadedpez/quantumtheater/pkg/entities"
	"github.com/fadedpez/quantumtheater/pkg/ledger"
	"github.com/fadedpez/quantumtheater/pkg/services/wallet"
	"github.com/fadedpez/quantumtheater/pkg/storage/memory"
)

// MockUploader is a mock implementation of Uploader
type MockUploader struct {
	mock.Mock
	body []byte
}

func (m *MockUploader) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, aws.ToString(params.Bucket), aws.ToString(params.Key))
	if params.Body != nil {
		m.body, _ = io.ReadAll(params.Body)
	}
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

type BackupTestSuite struct {
	suite.Suite
	ctx      context.Context
	clock    *clockwork.FakeClock
	wallets  *wallet.Service
	uploader *MockUploader
	exporter *Exporter
}

func TestBackupSuite(t *testing.T) {
	suite.Run(t, new(BackupTestSuite))
}

func (s *BackupTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = clockwork.NewFakeClockAt(time.Date(2025, 7, 4, 3, 0, 0, 0, time.UTC))
	s.wallets = wallet.NewService(memory.New(), ledger.New(s.clock), logging.Discard())
	s.uploader = new(MockUploader)
	s.exporter = NewExporter(s.uploader, Config{Bucket: "theater", Prefix: "wallet-snapshots"}, s.wallets, s.clock, logging.Discard())
}

func (s *BackupTestSuite) TestKey() {
	s.Equal("wallet-snapshots/2025/07/04/wallets-20250704T030000Z.json.gz", s.exporter.Key(s.clock.Now()))
}

func (s *BackupTestSuite) TestExport() {
	for _, id := range []string{"ada", "grace"} {
		_, _, err := s.wallets.GetOrCreateWallet(s.ctx, id)
		s.Require().NoError(err)
	}
	_, err := s.wallets.Credit(s.ctx, "ada", 12, ledger.ReasonWatchTime, entities.TransactionTypeEarned, "Hackers")
	s.Require().NoError(err)

	wantKey := "wallet-snapshots/2025/07/04/wallets-20250704T030000Z.json.gz"
	s.uploader.On("PutObject", mock.Anything, "theater", wantKey).Return(&s3.PutObjectOutput{}, nil)

	key, snap, err := s.exporter.Export(s.ctx)
	s.Require().NoError(err)
	s.Equal(wantKey, key)
	s.Len(snap.Wallets, 2)
	s.Empty(snap.Invalid)
	s.uploader.AssertExpectations(s.T())

	zr, err := gzip.NewReader(bytes.NewReader(s.uploader.body))
	s.Require().NoError(err)
	var uploaded Snapshot
	s.Require().NoError(json.NewDecoder(zr).Decode(&uploaded))
	s.Require().Len(uploaded.Wallets, 2)
	s.Equal("ada", uploaded.Wallets[0].UserID)
	s.Equal(int64(12), uploaded.Wallets[0].TotalTokens)
}

func (s *BackupTestSuite) TestExportUploadFails() {
	s.uploader.On("PutObject", mock.Anything, "theater", mock.Anything).Return(nil, errors.New("access denied"))

	_, _, err := s.exporter.Export(s.ctx)
	s.Error(err)
	s.Contains(err.Error(), "access denied")
}
