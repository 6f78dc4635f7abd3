package audit

import (
	"time"

	"github.com/fadedpez/quantumtheater/pkg/entities"
)

// ESTransaction is a wallet transaction document in Elasticsearch
type ESTransaction struct {
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	Type          string    `json:"type"` // "earned", "spent", "bonus"
	Amount        int64     `json:"amount"`
	SignedAmount  int64     `json:"signed_amount"`
	Reason        string    `json:"reason"`
	VideoTitle    string    `json:"video_title,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func toDocument(userID string, tx entities.TokenTransaction) ESTransaction {
	return ESTransaction{
		TransactionID: tx.ID,
		UserID:        userID,
		Type:          string(tx.Type),
		Amount:        tx.Amount,
		SignedAmount:  tx.Signed(),
		Reason:        tx.Reason,
		VideoTitle:    tx.VideoTitle,
		Timestamp:     tx.Timestamp,
	}
}

func (d ESTransaction) toTransaction() entities.TokenTransaction {
	return entities.TokenTransaction{
		ID:         d.TransactionID,
		Type:       entities.TransactionType(d.Type),
		Amount:     d.Amount,
		Reason:     d.Reason,
		Timestamp:  d.Timestamp,
		VideoTitle: d.VideoTitle,
	}
}

const transactionMapping = `{
	"mappings": {
		"properties": {
			"transaction_id": { "type": "keyword" },
			"user_id": { "type": "keyword" },
			"type": { "type": "keyword" },
			"amount": { "type": "long" },
			"signed_amount": { "type": "long" },
			"reason": { "type": "text", "fields": { "raw": { "type": "keyword" } } },
			"video_title": { "type": "keyword" },
			"timestamp": { "type": "date" }
		}
	},
	"settings": {
		"number_of_shards": 1,
		"number_of_replicas": 1,
		"refresh_interval": "1s"
	}
}`
