package app

import (
	"context"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"chartqa/internal/model"
	"chartqa/internal/pkg/filestore"
	"chartqa/internal/pkg/pdftext"
	"chartqa/internal/repository"
)

// ImagePublisher enqueues extracted-image records for background persistence.
type ImagePublisher interface {
	Publish(ctx context.Context, img model.Image) error
}

// Extractor pulls embedded images out of a document and returns their paths.
type Extractor interface {
	Extract(path string) ([]string, error)
}

// DocumentService stores an uploaded PDF/DOCX, extracts its embedded images,
// and records them under the session. Records go through the persist queue
// when a publisher is wired, synchronously otherwise.
type DocumentService struct {
	sessionRepo *repository.SessionRepository
	imageRepo   *repository.ImageRepository
	extractor   Extractor
	files       *filestore.Store
	publisher   ImagePublisher
	log         *zap.Logger
}

type ExtractInput struct {
	UserID    string
	SessionID string
	Data      []byte
	Filename  string
}

type ExtractResult struct {
	Document string   `json:"document"`
	Images   []string `json:"images"`
	Count    int      `json:"count"`
}

func NewDocumentService(
	sessionRepo *repository.SessionRepository,
	imageRepo *repository.ImageRepository,
	extractor Extractor,
	files *filestore.Store,
	publisher ImagePublisher,
	log *zap.Logger,
) *DocumentService {
	return &DocumentService{
		sessionRepo: sessionRepo,
		imageRepo:   imageRepo,
		extractor:   extractor,
		files:       files,
		publisher:   publisher,
		log:         log,
	}
}

func (s *DocumentService) Extract(ctx context.Context, input ExtractInput) (*ExtractResult, error) {
	if input.UserID == "" || input.SessionID == "" || len(input.Data) == 0 {
		return nil, ErrInvalidInput
	}

	session, err := s.sessionRepo.GetByIDAndUserID(input.SessionID, input.UserID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	docPath, err := s.files.SaveDocument(input.Data, input.Filename)
	if err != nil {
		return nil, err
	}

	paths, err := s.extractor.Extract(docPath)
	if err != nil {
		return nil, err
	}

	description := s.describeDocument(docPath)
	for _, path := range paths {
		record := model.Image{
			SessionID:   input.SessionID,
			Path:        path,
			Description: description,
		}
		if s.publisher != nil {
			if err := s.publisher.Publish(ctx, record); err != nil {
				s.log.Warn("enqueue image record failed, inserting directly", zap.Error(err))
				if err := s.imageRepo.Create(&record); err != nil {
					return nil, err
				}
			}
			continue
		}
		if err := s.imageRepo.Create(&record); err != nil {
			return nil, err
		}
	}

	return &ExtractResult{
		Document: filepath.Base(input.Filename),
		Images:   paths,
		Count:    len(paths),
	}, nil
}

// describeDocument grabs the first line of PDF text as a best-effort
// description for the extracted images. DOCX gets no description.
func (s *DocumentService) describeDocument(path string) string {
	if strings.ToLower(filepath.Ext(path)) != ".pdf" {
		return ""
	}
	text, err := pdftext.ExtractText(path)
	if err != nil {
		s.log.Debug("pdf text extraction skipped", zap.Error(err))
		return ""
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if idx := strings.IndexByte(text, '\n'); idx > 0 {
		text = text[:idx]
	}
	if len(text) > 256 {
		text = text[:256]
	}
	return "extracted from document: " + strings.TrimSpace(text)
}
