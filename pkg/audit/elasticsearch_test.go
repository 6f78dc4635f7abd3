package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/suite"

	"github.com/fadedpez/quantumtheater/internal/logging"
	"github.com/fadedpez/quantumtheater/pkg/entities"
)

// fakeCluster answers the handful of Elasticsearch endpoints the index uses
type fakeCluster struct {
	mu         sync.Mutex
	indices    map[string]bool
	bulkLines  []string
	bulkReply  string
	searchBody string
	deleted    []string
	calls      []string
}

func newFakeCluster() *fakeCluster {
	return &fakeCluster{
		indices:   map[string]bool{},
		bulkReply: `{"errors":false,"items":[]}`,
	}
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	name := strings.TrimPrefix(r.URL.Path, "/")

	switch {
	case r.Method == http.MethodHead:
		if !f.indices[name] {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut:
		f.indices[name] = true
		io.WriteString(w, `{"acknowledged":true}`)
	case r.Method == http.MethodPost && r.URL.Path == "/_bulk":
		scanner := bufio.NewScanner(r.Body)
		for scanner.Scan() {
			f.bulkLines = append(f.bulkLines, scanner.Text())
		}
		io.WriteString(w, f.bulkReply)
	case strings.HasSuffix(r.URL.Path, "/_search"):
		body, _ := io.ReadAll(r.Body)
		f.searchBody = string(body)
		io.WriteString(w, `{"hits":{"total":{"value":1},"hits":[{"_source":{
			"transaction_id":"tx-2","user_id":"viewer","type":"spent","amount":50,"signed_amount":-50,
			"reason":"Advertisement: Arcade","timestamp":"2025-06-15T12:00:00Z"}}]}}`)
	case r.Method == http.MethodGet:
		out := map[string]any{}
		for idx := range f.indices {
			out[idx] = map[string]any{}
		}
		json.NewEncoder(w).Encode(out)
	case r.Method == http.MethodDelete:
		delete(f.indices, name)
		f.deleted = append(f.deleted, name)
		io.WriteString(w, `{"acknowledged":true}`)
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

type AuditIndexTestSuite struct {
	suite.Suite
	ctx     context.Context
	cluster *fakeCluster
	server  *httptest.Server
	clock   *clockwork.FakeClock
	index   *Index
}

func TestAuditIndexSuite(t *testing.T) {
	suite.Run(t, new(AuditIndexTestSuite))
}

func (s *AuditIndexTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.cluster = newFakeCluster()
	s.server = httptest.NewServer(s.cluster)
	s.clock = clockwork.NewFakeClockAt(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))

	index, err := NewIndex(&Config{URL: s.server.URL, IndexPrefix: "qt"}, s.clock, logging.Discard())
	s.Require().NoError(err)
	s.index = index
}

func (s *AuditIndexTestSuite) TearDownTest() {
	s.server.Close()
}

func (s *AuditIndexTestSuite) transactions() []entities.TokenTransaction {
	return []entities.TokenTransaction{
		{ID: "tx-1", Type: entities.TransactionTypeEarned, Amount: 3, Reason: "Watch time", VideoTitle: "Hackers", Timestamp: s.clock.Now()},
		{ID: "tx-2", Type: entities.TransactionTypeSpent, Amount: 50, Reason: "Advertisement: Arcade", Timestamp: s.clock.Now()},
	}
}

func (s *AuditIndexTestSuite) TestRecordTransactions() {
	s.Require().NoError(s.index.RecordTransactions(s.ctx, "viewer", s.transactions()))

	s.True(s.cluster.indices["qt_transactions_2025-06"])
	s.Require().Len(s.cluster.bulkLines, 4)

	var meta map[string]map[string]string
	s.Require().NoError(json.Unmarshal([]byte(s.cluster.bulkLines[0]), &meta))
	s.Equal("tx-1", meta["index"]["_id"])
	s.Equal("qt_transactions_2025-06", meta["index"]["_index"])

	var doc ESTransaction
	s.Require().NoError(json.Unmarshal([]byte(s.cluster.bulkLines[3]), &doc))
	s.Equal("viewer", doc.UserID)
	s.Equal(int64(-50), doc.SignedAmount)

	// The month's index is only checked once
	s.Require().NoError(s.index.RecordTransactions(s.ctx, "viewer", s.transactions()[:1]))
	heads := 0
	for _, call := range s.cluster.calls {
		if strings.HasPrefix(call, http.MethodHead) {
			heads++
		}
	}
	s.Equal(1, heads)
}

func (s *AuditIndexTestSuite) TestRecordNothing() {
	s.Require().NoError(s.index.RecordTransactions(s.ctx, "viewer", nil))
	s.Empty(s.cluster.calls)
}

func (s *AuditIndexTestSuite) TestRecordTransactionsItemError() {
	s.cluster.bulkReply = `{"errors":true,"items":[{"index":{"status":400,"error":{"reason":"mapper_parsing_exception"}}}]}`

	err := s.index.RecordTransactions(s.ctx, "viewer", s.transactions())
	s.Error(err)
	s.Contains(err.Error(), "mapper_parsing_exception")
}

func (s *AuditIndexTestSuite) TestUserTransactions() {
	txs, err := s.index.UserTransactions(s.ctx, "viewer", 5)
	s.Require().NoError(err)
	s.Require().Len(txs, 1)
	s.Equal("tx-2", txs[0].ID)
	s.Equal(entities.TransactionTypeSpent, txs[0].Type)
	s.Contains(s.cluster.searchBody, `"user_id":"viewer"`)
}

func (s *AuditIndexTestSuite) TestPruneOldIndices() {
	s.cluster.indices["qt_transactions_2024-01"] = true
	s.cluster.indices["qt_transactions_2024-07"] = true
	s.cluster.indices["qt_transactions_2025-05"] = true
	s.cluster.indices["qt_transactions_latest"] = true

	pruned, err := s.index.PruneOldIndices(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"qt_transactions_2024-01"}, pruned)
	s.Equal([]string{"qt_transactions_2024-01"}, s.cluster.deleted)

	names, err := s.index.GetIndices(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"qt_transactions_2024-07", "qt_transactions_2025-05", "qt_transactions_latest"}, names)
}
