package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/portalautarca/portal/internal/apperr"
	"github.com/portalautarca/portal/internal/model"
	"github.com/portalautarca/portal/internal/repository"
	"github.com/portalautarca/portal/internal/storage"
	"github.com/portalautarca/portal/internal/validation"
)

// DocumentKind selects the naming and validation rules for an upload.
type DocumentKind int

const (
	KindDocument DocumentKind = iota
	KindProposal
	KindCover
)

const proposalPrefix = "Proposta: "

var (
	ErrFileNotFound = apperr.NotFound("file not found")
	safeExt         = regexp.MustCompile(`^\.[a-zA-Z0-9]{1,10}$`)
)

// Upload is a file received from a client, fully read into memory.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// StoredFile is an opened upload ready to be streamed back. Files that are
// not Inline must be served as attachments.
type StoredFile struct {
	Body        io.ReadCloser
	ContentType string
	Name        string
	Inline      bool
}

type DocumentService struct {
	documentRepository repository.DocumentRepository
	storage            storage.Storage
	maxBytes           int64
	coverMaxWidth      int
}

func NewDocumentService(documentRepository repository.DocumentRepository, storage storage.Storage, maxBytes int64, coverMaxWidth int) *DocumentService {
	return &DocumentService{
		documentRepository: documentRepository,
		storage:            storage,
		maxBytes:           maxBytes,
		coverMaxWidth:      coverMaxWidth,
	}
}

// GenerateName builds a storage key of the form [prefix-]<unix-millis>-<random><ext>.
func GenerateName(kind DocumentKind, original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if !safeExt.MatchString(ext) {
		ext = ""
	}

	name := fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:12], ext)
	switch kind {
	case KindCover:
		return "cover-" + name
	case KindProposal:
		return "proposal-" + name
	default:
		return name
	}
}

// Check validates an upload without storing it.
func (s *DocumentService) Check(up *Upload, kind DocumentKind) error {
	constraints := validation.DocumentConstraints
	if kind == KindCover {
		constraints = validation.ImageConstraints
	}

	_, err := validation.ValidateFile(up.Data, up.Filename, s.constraints(constraints))
	if err != nil {
		if kind == KindCover {
			return apperr.Validation("cover image must be an image: %s", err.Error())
		}
		return apperr.Validation("%s: %s", up.Filename, err.Error())
	}
	return nil
}

// Store saves a supporting or proposal document and records it against the
// initiative. The stored file is removed again if the record cannot be written.
func (s *DocumentService) Store(ctx context.Context, initiativeID int64, up *Upload, kind DocumentKind) (*model.Document, error) {
	if kind == KindCover {
		return nil, fmt.Errorf("covers are stored with StoreCover")
	}

	mimeType, err := validation.ValidateFile(up.Data, up.Filename, s.constraints(validation.DocumentConstraints))
	if err != nil {
		return nil, apperr.Validation("%s: %s", up.Filename, err.Error())
	}

	key := GenerateName(kind, up.Filename)
	size, err := s.storage.Save(ctx, key, bytes.NewReader(up.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	original := filepath.Base(up.Filename)
	if kind == KindProposal {
		original = proposalPrefix + original
	}

	doc := &model.Document{
		InitiativeID:     initiativeID,
		Filename:         key,
		OriginalFilename: original,
		FilePath:         key,
		FileSize:         size,
		MimeType:         mimeType,
		UploadedAt:       time.Now().UTC(),
	}

	err = s.documentRepository.Create(ctx, doc)
	if err != nil {
		s.removeFile(ctx, key)
		return nil, fmt.Errorf("failed to create document record: %w", err)
	}

	slog.InfoContext(ctx, "document stored", "initiative_id", initiativeID, "key", key, "size", size)
	return doc, nil
}

// StoreCover saves a cover image and returns its storage key. Images wider
// than the configured maximum are scaled down keeping the aspect ratio.
func (s *DocumentService) StoreCover(ctx context.Context, up *Upload) (string, error) {
	mimeType, err := validation.ValidateFile(up.Data, up.Filename, s.constraints(validation.ImageConstraints))
	if err != nil {
		return "", apperr.Validation("cover image must be an image: %s", err.Error())
	}

	data := s.downscale(ctx, up.Data, mimeType)

	key := GenerateName(KindCover, up.Filename)
	_, err = s.storage.Save(ctx, key, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to save cover image: %w", err)
	}

	return key, nil
}

func (s *DocumentService) downscale(ctx context.Context, data []byte, mimeType string) []byte {
	format, ok := map[string]imaging.Format{
		"image/jpeg": imaging.JPEG,
		"image/png":  imaging.PNG,
		"image/gif":  imaging.GIF,
	}[mimeType]
	if !ok || s.coverMaxWidth <= 0 {
		return data
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width <= s.coverMaxWidth {
		return data
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		slog.WarnContext(ctx, "cover image could not be decoded, storing original", "error", err)
		return data
	}

	resized := imaging.Resize(img, s.coverMaxWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	err = imaging.Encode(&buf, resized, format, imaging.JPEGQuality(85))
	if err != nil {
		slog.WarnContext(ctx, "cover image could not be encoded, storing original", "error", err)
		return data
	}

	slog.DebugContext(ctx, "cover image downscaled", "from_width", cfg.Width, "to_width", s.coverMaxWidth)
	return buf.Bytes()
}

func (s *DocumentService) constraints(base validation.FileConstraints) validation.FileConstraints {
	if s.maxBytes > 0 {
		base.MaxSize = s.maxBytes
	}
	return base
}

func (s *DocumentService) ForInitiative(ctx context.Context, initiativeID int64) ([]*model.Document, error) {
	return s.documentRepository.ForInitiative(ctx, initiativeID)
}

// Delete removes the record and then, best-effort, the stored file.
func (s *DocumentService) Delete(ctx context.Context, initiativeID, docID int64) error {
	doc, err := s.documentRepository.ByID(ctx, initiativeID, docID)
	if err != nil {
		return err
	}

	err = s.documentRepository.Delete(ctx, initiativeID, docID)
	if err != nil {
		return err
	}

	s.removeFile(ctx, doc.FilePath)
	return nil
}

// Clear removes every document of an initiative.
func (s *DocumentService) Clear(ctx context.Context, initiativeID int64) error {
	docs, err := s.documentRepository.ForInitiative(ctx, initiativeID)
	if err != nil {
		return err
	}

	err = s.documentRepository.Clear(ctx, initiativeID)
	if err != nil {
		return err
	}

	for _, doc := range docs {
		s.removeFile(ctx, doc.FilePath)
	}
	return nil
}

// RemoveFiles deletes stored files and returns how many could not be removed.
func (s *DocumentService) RemoveFiles(ctx context.Context, keys []string) int {
	failed := 0
	for _, key := range keys {
		if !s.removeFile(ctx, key) {
			failed++
		}
	}
	return failed
}

func (s *DocumentService) removeFile(ctx context.Context, key string) bool {
	if key == "" {
		return true
	}
	err := s.storage.Delete(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "failed to delete file from storage", "key", key, "error", err)
		return false
	}
	return true
}

// Open streams a stored upload by its generated name.
func (s *DocumentService) Open(ctx context.Context, filename string) (*StoredFile, error) {
	if !storage.ValidKey(filename) {
		return nil, ErrFileNotFound
	}

	body, err := s.storage.Open(ctx, filename)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	file := &StoredFile{
		Body:        body,
		ContentType: validation.TypeForName(filename),
		Name:        filename,
	}
	doc, err := s.documentRepository.ByFilename(ctx, filename)
	if err == nil {
		file.Name = strings.TrimPrefix(doc.OriginalFilename, proposalPrefix)
		if doc.MimeType != "" {
			file.ContentType = doc.MimeType
		}
	}
	if file.ContentType == "" {
		file.ContentType = "application/octet-stream"
	}
	file.Inline = validation.InlineSafe(file.ContentType)

	return file, nil
}
