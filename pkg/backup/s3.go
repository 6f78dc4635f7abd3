package backup

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jonboulle/clockwork"

	"github.com/fadedpez/quantumtheater/internal/logging"
	"github.com/fadedpez/quantumtheater/pkg/entities"
	"github.com/fadedpez/quantumtheater/pkg/ledger"
)

// Config holds the object storage settings for wallet snapshots
type Config struct {
	Bucket          string
	Prefix          string
	Endpoint        string // S3-compatible endpoint such as R2 or MinIO; empty for AWS
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// Uploader is the part of the S3 client used for snapshots
type Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// WalletSource lists and loads wallets
type WalletSource interface {
	UserIDs(ctx context.Context) ([]string, error)
	GetWallet(ctx context.Context, userID string) (*entities.Wallet, error)
}

// Snapshot is the document written to object storage
type Snapshot struct {
	TakenAt time.Time          `json:"takenAt"`
	Wallets []*entities.Wallet `json:"wallets"`
	Invalid []string           `json:"invalid,omitempty"`
}

// NewS3Client builds an S3 client from cfg. Static credentials are used
// when both keys are set; otherwise the default AWS chain applies.
func NewS3Client(ctx context.Context, cfg Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Exporter writes gzipped JSON snapshots of every wallet
type Exporter struct {
	uploader Uploader
	bucket   string
	prefix   string
	wallets  WalletSource
	clock    clockwork.Clock
	logger   *logging.Logger
}

// NewExporter creates a snapshot exporter
func NewExporter(uploader Uploader, cfg Config, wallets WalletSource, clock clockwork.Clock, logger *logging.Logger) *Exporter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = logging.Default
	}
	return &Exporter{
		uploader: uploader,
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		wallets:  wallets,
		clock:    clock,
		logger:   logger,
	}
}

// Key returns the object key for a snapshot taken at t
func (e *Exporter) Key(t time.Time) string {
	t = t.UTC()
	return path.Join(e.prefix, t.Format("2006/01/02"), "wallets-"+t.Format("20060102T150405Z")+".json.gz")
}

// Export uploads a snapshot of all wallets and returns its key. Wallets
// whose balance disagrees with their log are still exported and listed
// under Invalid.
func (e *Exporter) Export(ctx context.Context) (string, *Snapshot, error) {
	ids, err := e.wallets.UserIDs(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("failed to list wallets: %w", err)
	}

	snap := &Snapshot{
		TakenAt: e.clock.Now(),
		Wallets: make([]*entities.Wallet, 0, len(ids)),
	}
	for _, id := range ids {
		w, err := e.wallets.GetWallet(ctx, id)
		if err != nil {
			e.logger.Warn("[BACKUP] Skipping wallet %s: %v", id, err)
			continue
		}
		if err := ledger.Verify(w); err != nil {
			e.logger.Error("[BACKUP] Wallet %s failed verification: %v", id, err)
			snap.Invalid = append(snap.Invalid, id)
		}
		snap.Wallets = append(snap.Wallets, w)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := json.NewEncoder(zw).Encode(snap); err != nil {
		return "", nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", nil, fmt.Errorf("failed to compress snapshot: %w", err)
	}

	key := e.Key(snap.TakenAt)
	_, err = e.uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(e.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(buf.Bytes()),
		ContentType:     aws.String("application/json"),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to upload snapshot: %w", err)
	}

	e.logger.Info("[BACKUP] Uploaded %d wallet(s) to s3://%s/%s", len(snap.Wallets), e.bucket, key)
	return key, snap, nil
}
