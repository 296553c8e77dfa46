package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/chnk8802/task-manager/internal/models"
	"github.com/chnk8802/task-manager/internal/repository"
	"github.com/chnk8802/task-manager/pkg/utils/zaplogger"
	"golang.org/x/image/draw"
	"golang.org/x/sync/semaphore"
)

const (
	// MaxAvatarDimension bounds the width and height an upload may declare
	MaxAvatarDimension = 10000
	// MaxAvatarPixels bounds the decoded raster of an upload
	MaxAvatarPixels = 4096 * 4096
)

var avatarExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// AvatarService validates, normalizes and stores profile pictures
type AvatarService struct {
	repo     *repository.AccountRepository
	maxBytes int64
	size     int
	sem      *semaphore.Weighted
}

// NewAvatarService creates a new AvatarService.
// maxBytes caps the upload size; size is the edge of the stored square PNG.
func NewAvatarService(accounts *AccountService, maxBytes int64, size int) *AvatarService {
	return &AvatarService{
		repo:     accounts.Repository(),
		maxBytes: maxBytes,
		size:     size,
		sem:      semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}
}

// Ingest normalizes the uploaded image and stores it as the account's avatar.
// declaredSize is the size reported by the client, -1 if unknown.
// Nothing is stored unless every step succeeds.
func (s *AvatarService) Ingest(ctx context.Context, accountID, filename string, declaredSize int64, r io.Reader) (*models.AccountModel, error) {
	if !avatarExtensions[strings.ToLower(filepath.Ext(filename))] {
		return nil, &Error{Kind: KindUnsupportedFormat, Message: "Please upload an Image.", Err: ErrUnsupportedFormat}
	}
	oversize := &Error{Kind: KindOversize, Message: fmt.Sprintf("File must be at most %d bytes", s.maxBytes), Err: ErrOversizeFile}
	if declaredSize > s.maxBytes {
		return nil, oversize
	}

	// read one byte past the cap so a lying size header is still caught
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, internalError(fmt.Errorf("failed to read upload: %v", err))
	}
	if int64(len(data)) > s.maxBytes {
		return nil, oversize
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, internalError(err)
	}
	normalized, err := s.normalize(data)
	s.sem.Release(1)
	if err != nil {
		return nil, err
	}

	account, err := s.repo.Mutate(ctx, accountID, func(a *models.AccountModel) error {
		a.Avatar = normalized
		return nil
	})
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, notFound("Account not found")
	}
	if err != nil {
		return nil, internalError(err)
	}

	zaplogger.Info("Avatar stored", zaplogger.Fields{"account_id": accountID, "bytes": len(normalized)})
	return account, nil
}

func (s *AvatarService) normalize(data []byte) ([]byte, error) {
	decodeFailure := &Error{Kind: KindDecodeFailure, Message: "Invalid File! Not uploaded", Err: ErrDecodeFailure}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, decodeFailure
	}
	if cfg.Width > MaxAvatarDimension || cfg.Height > MaxAvatarDimension ||
		int64(cfg.Width)*int64(cfg.Height) > MaxAvatarPixels {
		return nil, &Error{Kind: KindOversize, Message: "Image dimensions are too large", Err: ErrOversizeFile}
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, decodeFailure
	}

	dst := image.NewRGBA(image.Rect(0, 0, s.size, s.size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, internalError(fmt.Errorf("failed to encode avatar: %v", err))
	}
	return buf.Bytes(), nil
}

// Remove clears the account's avatar. Removing an absent avatar is not an error.
func (s *AvatarService) Remove(ctx context.Context, accountID string) error {
	_, err := s.repo.Mutate(ctx, accountID, func(a *models.AccountModel) error {
		if len(a.Avatar) == 0 {
			return repository.ErrNoChange
		}
		a.Avatar = nil
		return nil
	})
	if errors.Is(err, repository.ErrNoChange) {
		return nil
	}
	if errors.Is(err, repository.ErrAccountNotFound) {
		return notFound("Account not found")
	}
	if err != nil {
		return internalError(err)
	}
	return nil
}

// Get returns the stored PNG of the account
func (s *AvatarService) Get(ctx context.Context, accountID string) ([]byte, error) {
	account, err := s.repo.FindByID(ctx, accountID)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, notFound("No avatar found")
	}
	if err != nil {
		return nil, internalError(err)
	}
	if len(account.Avatar) == 0 {
		return nil, notFound("No avatar found")
	}
	return account.Avatar, nil
}
