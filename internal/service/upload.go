package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"libportal/internal/storage"
)

var (
	ErrReaderNil        = errors.New("reader is nil")
	ErrUnsupportedMedia = errors.New("file must be an image")
	ErrTooLarge         = errors.New("file exceeds the upload limit")
)

// UploadResult mirrors the image CDN response consumed by the dashboard.
type UploadResult struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Folder    string `json:"folder"`
}

// UploadService stores images in the public image bucket.
type UploadService interface {
	// UploadImage checks that r holds an image within the size limit and stores it
	// under the upload folder as UUID + detected extension.
	UploadImage(ctx context.Context, r io.Reader, originalFilename, contentType string, size int64) (*UploadResult, error)
}

type uploadService struct {
	store    storage.Storage
	folder   string
	maxBytes int64
	log      zerolog.Logger
}

// NewUploadService constructs an UploadService. maxBytes <= 0 disables the size check.
func NewUploadService(store storage.Storage, folder string, maxBytes int64, logger zerolog.Logger) UploadService {
	return &uploadService{
		store:    store,
		folder:   strings.Trim(folder, "/"),
		maxBytes: maxBytes,
		log:      logger.With().Str("component", "upload").Logger(),
	}
}

// sniffLen is how much of the stream is buffered for content detection.
const sniffLen = 3072

func (s *uploadService) UploadImage(ctx context.Context, r io.Reader, originalFilename, contentType string, size int64) (*UploadResult, error) {
	if r == nil {
		return nil, ErrReaderNil
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return nil, ErrTooLarge
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return nil, ErrUnsupportedMedia
	}

	mt := mimetype.Detect(head)
	if !isImage(mt) {
		s.log.Warn().Str("filename", originalFilename).Str("declared", contentType).Str("detected", mt.String()).Msg("rejected upload")
		return nil, ErrUnsupportedMedia
	}

	body := io.MultiReader(bytes.NewReader(head), r)
	if s.maxBytes > 0 {
		// Guard against a size header that understates the body.
		body = &limitedReader{r: body, remaining: s.maxBytes}
	}

	key := uuid.NewString() + mt.Extension()
	if s.folder != "" {
		key = path.Join(s.folder, key)
	}

	info, err := s.store.Put(ctx, key, body, storage.PutObjectOptions{
		Size:        size,
		ContentType: mt.String(),
		Metadata: map[string]string{
			"original-filename": originalFilename,
		},
	})
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			return nil, ErrTooLarge
		}
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	s.log.Info().Str("key", info.Key).Int64("size", info.Size).Msg("image uploaded")
	return &UploadResult{
		SecureURL: s.store.PublicURL(info.Key),
		PublicID:  strings.TrimSuffix(info.Key, mt.Extension()),
		Folder:    s.folder,
	}, nil
}

func isImage(mt *mimetype.MIME) bool {
	if mt.Is("image/svg+xml") {
		return false
	}
	return strings.HasPrefix(mt.String(), "image/")
}

type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrTooLarge
	}
	return n, err
}
