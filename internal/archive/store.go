package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/ikjoobang/xivix-ai-core-sub000/pkg/logging"
)

// ErrDisabled is returned by uploads when no bucket is configured.
var ErrDisabled = errors.New("archive: object storage not configured")

// S3API is the subset of the S3 client used by Store. R2 speaks the same API.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store writes uploads and conversation archives to an R2 bucket.
type Store struct {
	bucket        string
	publicBaseURL string
	s3Client      S3API
	logger        *logging.Logger
	now           func() time.Time
}

// NewStore creates a Store. With an empty bucket archival is a no-op and
// uploads fail with ErrDisabled.
func NewStore(s3Client S3API, bucket, publicBaseURL string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		s3Client:      s3Client,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Enabled reports whether a bucket and client are configured.
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// Upload stores a file under uploads/{store}/{yyyy}/{mm}/{uuid}{ext}.
func (s *Store) Upload(ctx context.Context, storeID, filename, contentType string, body []byte) (*Upload, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}
	now := s.now()
	ext := strings.ToLower(path.Ext(filename))
	key := fmt.Sprintf("uploads/%s/%d/%02d/%s%s", storeID, now.Year(), now.Month(), uuid.NewString(), ext)

	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("archive: put %s: %w", key, err)
	}

	out := &Upload{Key: key, ContentType: contentType, Size: int64(len(body))}
	if s.publicBaseURL != "" {
		out.URL = s.publicBaseURL + "/" + key
	}
	s.logger.Info("archive: uploaded object", "store_id", storeID, "key", key, "size", out.Size)
	return out, nil
}

// ArchiveConversation writes record as JSON and appends it to the monthly manifest.
func (s *Store) ArchiveConversation(ctx context.Context, record *ConversationRecord) (string, error) {
	if !s.Enabled() {
		return "", nil
	}

	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("archive: marshal record: %w", err)
	}

	at := record.ArchivedAt
	if at.IsZero() {
		at = s.now()
	}
	key := fmt.Sprintf("conversations/v1/%s/%d/%02d/%02d/%s.json",
		record.StoreID, at.Year(), at.Month(), at.Day(), record.ConversationID)

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("archive: put %s: %w", key, err)
	}

	entry := ManifestEntry{
		ConversationID: record.ConversationID,
		StoreID:        record.StoreID,
		Key:            key,
		Category:       record.Labels.Category,
		NeedsReview:    record.Labels.NeedsReview,
		ArchivedAt:     at.Format(time.RFC3339),
		MessageCount:   record.MessageCount,
	}
	if err := s.AppendManifest(ctx, entry); err != nil {
		// The record itself is already written.
		s.logger.Warn("archive: manifest append failed", "error", err, "conversation_id", record.ConversationID)
	}
	return key, nil
}

// AppendManifest appends a JSONL line to the store's monthly manifest.
// Object storage has no append, so this is read-modify-write.
func (s *Store) AppendManifest(ctx context.Context, entry ManifestEntry) error {
	if !s.Enabled() {
		return nil
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("archive: marshal manifest entry: %w", err)
	}

	now := s.now()
	key := fmt.Sprintf("conversations/v1/%s/manifests/%d-%02d.jsonl", entry.StoreID, now.Year(), now.Month())

	var existing []byte
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	switch {
	case err == nil:
		existing, err = io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("archive: read manifest: %w", err)
		}
	case isNotFound(err):
	default:
		return fmt.Errorf("archive: get manifest: %w", err)
	}

	var buf bytes.Buffer
	if len(existing) > 0 {
		buf.Write(existing)
		if existing[len(existing)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	buf.Write(line)
	buf.WriteByte('\n')

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("archive: put manifest: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *s3types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "NoSuchKey") || strings.Contains(msg, "StatusCode: 404")
}
