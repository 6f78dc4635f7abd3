package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/jonboulle/clockwork"

	"github.com/fadedpez/quantumtheater/internal/logging"
	"github.com/fadedpez/quantumtheater/pkg/entities"
)

const monthLayout = "2006-01"

// Config holds configuration options for the transaction audit index
type Config struct {
	URL             string
	Username        string
	Password        string
	IndexPrefix     string
	RetentionPeriod time.Duration // How long monthly indices are kept
}

// DefaultConfig returns a default configuration for the audit index
func DefaultConfig() *Config {
	return &Config{
		URL:             "http://localhost:9200",
		IndexPrefix:     "quantumtheater",
		RetentionPeriod: 365 * 24 * time.Hour,
	}
}

// Index mirrors committed wallet transactions into monthly Elasticsearch
// indices so they can be searched outside the key-value store.
type Index struct {
	client *elasticsearch.Client
	config *Config
	clock  clockwork.Clock
	logger *logging.Logger

	mu      sync.Mutex
	current string
}

// NewIndex creates an audit index client
func NewIndex(config *Config, clock clockwork.Clock, logger *logging.Logger) (*Index, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{config.URL},
	}
	if config.Username != "" && config.Password != "" {
		cfg.Username = config.Username
		cfg.Password = config.Password
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating Elasticsearch client: %w", err)
	}

	if config.IndexPrefix == "" {
		config.IndexPrefix = "quantumtheater"
	}
	if config.RetentionPeriod == 0 {
		config.RetentionPeriod = 365 * 24 * time.Hour
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = logging.Default
	}

	return &Index{
		client: client,
		config: config,
		clock:  clock,
		logger: logger,
	}, nil
}

func (x *Index) pattern() string {
	return x.config.IndexPrefix + "_transactions_*"
}

func (x *Index) indexFor(t time.Time) string {
	return x.config.IndexPrefix + "_transactions_" + t.UTC().Format(monthLayout)
}

// ensureIndex creates this month's index the first time it is needed
func (x *Index) ensureIndex(ctx context.Context) (string, error) {
	name := x.indexFor(x.clock.Now())

	x.mu.Lock()
	defer x.mu.Unlock()
	if x.current == name {
		return name, nil
	}

	res, err := x.client.Indices.Exists([]string{name}, x.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("error checking if index exists: %w", err)
	}
	res.Body.Close()

	if res.StatusCode == 404 {
		req := esapi.IndicesCreateRequest{
			Index: name,
			Body:  strings.NewReader(transactionMapping),
		}
		res, err := req.Do(ctx, x.client)
		if err != nil {
			return "", fmt.Errorf("error creating index %s: %w", name, err)
		}
		defer res.Body.Close()

		// Another instance may have created it first
		if res.IsError() && !strings.Contains(res.String(), "resource_already_exists_exception") {
			return "", fmt.Errorf("error creating index %s: %s", name, res.String())
		}
		x.logger.Info("[AUDIT] Created index %s", name)
	}

	x.current = name
	return name, nil
}

// RecordTransactions indexes txs for userID in one bulk request. The
// transaction ID is the document ID, so a retried call does not duplicate.
func (x *Index) RecordTransactions(ctx context.Context, userID string, txs []entities.TokenTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	index, err := x.ensureIndex(ctx)
	if err != nil {
		return err
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, tx := range txs {
		meta := map[string]map[string]string{"index": {"_index": index, "_id": tx.ID}}
		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("error encoding bulk metadata: %w", err)
		}
		if err := enc.Encode(toDocument(userID, tx)); err != nil {
			return fmt.Errorf("error encoding transaction %s: %w", tx.ID, err)
		}
	}

	res, err := x.client.Bulk(
		bytes.NewReader(body.Bytes()),
		x.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("error indexing transactions: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing transactions: %s", res.String())
	}

	var result struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
			Error  struct {
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return fmt.Errorf("error parsing bulk response: %w", err)
	}
	if result.Errors {
		for _, item := range result.Items {
			for _, op := range item {
				if op.Status >= 300 {
					return fmt.Errorf("error indexing transaction: %s", op.Error.Reason)
				}
			}
		}
	}
	return nil
}

// UserTransactions returns up to limit audited transactions for userID, newest first
func (x *Index) UserTransactions(ctx context.Context, userID string, limit int) ([]entities.TokenTransaction, error) {
	if limit <= 0 {
		limit = 20
	}
	query := map[string]any{
		"query": map[string]any{
			"term": map[string]any{"user_id": userID},
		},
		"sort": []any{
			map[string]any{"timestamp": map[string]string{"order": "desc"}},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("error encoding query: %w", err)
	}

	res, err := x.client.Search(
		x.client.Search.WithContext(ctx),
		x.client.Search.WithIndex(x.pattern()),
		x.client.Search.WithBody(bytes.NewReader(body)),
		x.client.Search.WithSize(limit),
		x.client.Search.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return nil, fmt.Errorf("error searching transactions: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error searching transactions: %s", res.String())
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source ESTransaction `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("error parsing transactions: %w", err)
	}

	txs := make([]entities.TokenTransaction, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		txs = append(txs, hit.Source.toTransaction())
	}
	return txs, nil
}

// GetIndices returns the audit indices that currently exist, oldest first
func (x *Index) GetIndices(ctx context.Context) ([]string, error) {
	res, err := x.client.Indices.Get(
		[]string{x.pattern()},
		x.client.Indices.Get.WithContext(ctx),
		x.client.Indices.Get.WithExpandWildcards("open"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get indices: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error getting indices: %s", res.String())
	}

	var indices map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&indices); err != nil {
		return nil, fmt.Errorf("error parsing indices response: %w", err)
	}

	names := make([]string, 0, len(indices))
	for name := range indices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// PruneOldIndices deletes monthly indices whose month ended before the
// retention window and returns the names it removed.
func (x *Index) PruneOldIndices(ctx context.Context) ([]string, error) {
	names, err := x.GetIndices(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := x.clock.Now().Add(-x.config.RetentionPeriod)
	prefix := x.config.IndexPrefix + "_transactions_"
	var pruned []string
	for _, name := range names {
		month, err := time.Parse(monthLayout, strings.TrimPrefix(name, prefix))
		if err != nil {
			x.logger.Warn("[AUDIT] Skipping index %s: %v", name, err)
			continue
		}
		if !month.AddDate(0, 1, 0).Before(cutoff) {
			continue
		}

		req := esapi.IndicesDeleteRequest{Index: []string{name}}
		res, err := req.Do(ctx, x.client)
		if err != nil {
			x.logger.Error("[AUDIT] Error deleting index %s: %v", name, err)
			continue
		}
		failed := res.IsError()
		status := res.String()
		res.Body.Close()
		if failed {
			x.logger.Error("[AUDIT] Error deleting index %s: %s", name, status)
			continue
		}

		x.logger.Info("[AUDIT] Deleted index %s (older than %v)", name, x.config.RetentionPeriod)
		pruned = append(pruned, name)
	}
	return pruned, nil
}

// GetConfig returns the index configuration
func (x *Index) GetConfig() Config {
	return *x.config
}
