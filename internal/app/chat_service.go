package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"chartqa/internal/ai"
	"chartqa/internal/model"
	"chartqa/internal/pkg/filestore"
	"chartqa/internal/pkg/markdownclean"
	"chartqa/internal/repository"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	// ErrImageRequired rejects an answer request before the model is contacted.
	ErrImageRequired = errors.New("please upload a chart image first")
	ErrQuestionEmpty = errors.New("please enter a question")
)

// ModelClient is the external multimodal model: one image, one question,
// one synchronous answer.
type ModelClient interface {
	Answer(ctx context.Context, cfg ai.MultimodalConfig, imageDataURL, question string) (string, error)
}

// HistoryCache fronts the conversations table; see cache.HistoryCache.
type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID string) ([]model.Conversation, bool, error)
	SetHistory(ctx context.Context, sessionID string, turns []model.Conversation) error
	DeleteHistory(ctx context.Context, sessionID string) error
	MarkDirty(ctx context.Context, sessionID string) error
	IsDirty(ctx context.Context, sessionID string) (bool, error)
}

// ImageDescriber optionally labels an uploaded image for the images table.
type ImageDescriber interface {
	Describe(imageData []byte) (string, error)
}

type ChatService struct {
	sessionRepo  *repository.SessionRepository
	imageRepo    *repository.ImageRepository
	convRepo     *repository.ConversationRepository
	files        *filestore.Store
	historyCache HistoryCache
	describer    ImageDescriber
	modelClient  ModelClient
	modelConfig  ai.MultimodalConfig
	log          *zap.Logger
}

type CreateSessionInput struct {
	UserID string
	Name   string
}

type AnswerInput struct {
	UserID    string
	SessionID string
	ImageData []byte
	ImageName string
	Question  string
}

type AnswerResult struct {
	Turn    model.Conversation   `json:"turn"`
	History []model.Conversation `json:"history"`
}

func NewChatService(
	sessionRepo *repository.SessionRepository,
	imageRepo *repository.ImageRepository,
	convRepo *repository.ConversationRepository,
	files *filestore.Store,
	historyCache HistoryCache,
	describer ImageDescriber,
	modelClient ModelClient,
	modelConfig ai.MultimodalConfig,
	log *zap.Logger,
) *ChatService {
	return &ChatService{
		sessionRepo:  sessionRepo,
		imageRepo:    imageRepo,
		convRepo:     convRepo,
		files:        files,
		historyCache: historyCache,
		describer:    describer,
		modelClient:  modelClient,
		modelConfig:  modelConfig,
		log:          log,
	}
}

func (s *ChatService) CreateSession(input CreateSessionInput) (*model.Session, error) {
	if input.UserID == "" {
		return nil, ErrInvalidInput
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = "New Session"
	}

	session := &model.Session{
		UserID: input.UserID,
		Name:   name,
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *ChatService) ListSessions(userID string) ([]model.Session, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.sessionRepo.ListByUserID(userID)
}

func (s *ChatService) DeleteSession(userID, sessionID string) error {
	if userID == "" || sessionID == "" {
		return ErrInvalidInput
	}
	session, err := s.sessionRepo.GetByIDAndUserID(sessionID, userID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}
	// Images and turns go with the session via the store's cascade.
	if err := s.sessionRepo.DeleteByIDAndUserID(sessionID, userID); err != nil {
		return err
	}
	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(context.Background(), sessionID)
	}
	return nil
}

// Answer validates the image/question pair, persists the image, asks the
// external model, normalizes the markdown answer to plain text, and records
// the turn. The model is never contacted when validation fails.
func (s *ChatService) Answer(ctx context.Context, input AnswerInput) (*AnswerResult, error) {
	if input.UserID == "" || input.SessionID == "" {
		return nil, ErrInvalidInput
	}
	if len(input.ImageData) == 0 {
		return nil, ErrImageRequired
	}
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, ErrQuestionEmpty
	}

	session, err := s.sessionRepo.GetByIDAndUserID(input.SessionID, input.UserID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if err := s.saveImage(input); err != nil {
		return nil, err
	}

	answer, err := s.modelClient.Answer(ctx, s.modelConfig, encodeDataURL(input.ImageData), question)
	if err != nil {
		return nil, err
	}

	cleaned, err := markdownclean.Clean(answer)
	if err != nil {
		return nil, fmt.Errorf("normalize answer failed: %w", err)
	}
	if cleaned == "" {
		cleaned = "The model returned an empty answer."
	}

	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, input.SessionID)
		_ = s.historyCache.DeleteHistory(ctx, input.SessionID)
	}

	turn := &model.Conversation{
		SessionID: input.SessionID,
		Question:  question,
		Answer:    cleaned,
		CreatedAt: time.Now(),
	}
	if err := s.convRepo.Create(turn); err != nil {
		return nil, err
	}

	history, err := s.convRepo.ListBySessionID(input.SessionID, 0)
	if err != nil {
		return nil, err
	}

	return &AnswerResult{Turn: *turn, History: history}, nil
}

// GetHistory returns the session's turns oldest first, via the cache when it
// is warm and clean.
func (s *ChatService) GetHistory(ctx context.Context, userID, sessionID string, limit int) ([]model.Conversation, error) {
	if userID == "" || sessionID == "" {
		return nil, ErrInvalidInput
	}

	session, err := s.sessionRepo.GetByIDAndUserID(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, sessionID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, sessionID); cacheErr == nil && hit {
				return trimTurns(cached, limit), nil
			}
		}
	}

	turns, err := s.convRepo.ListBySessionID(sessionID, limit)
	if err != nil {
		return nil, err
	}
	// Only full listings are cached; capped ones would poison later reads.
	if s.historyCache != nil && limit <= 0 {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, sessionID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, sessionID, turns)
		}
	}
	return turns, nil
}

func (s *ChatService) ListImages(userID, sessionID string) ([]model.Image, error) {
	if userID == "" || sessionID == "" {
		return nil, ErrInvalidInput
	}
	session, err := s.sessionRepo.GetByIDAndUserID(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return s.imageRepo.ListBySessionID(sessionID)
}

func (s *ChatService) saveImage(input AnswerInput) error {
	path, err := s.files.SaveUploadedImage(input.ImageData, input.ImageName)
	if err != nil {
		return err
	}

	description := ""
	if s.describer != nil {
		if desc, descErr := s.describer.Describe(input.ImageData); descErr == nil {
			description = desc
		} else {
			s.log.Debug("image description skipped", zap.Error(descErr))
		}
	}

	return s.imageRepo.Create(&model.Image{
		SessionID:   input.SessionID,
		Path:        path,
		Description: description,
	})
}

func encodeDataURL(data []byte) string {
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func trimTurns(turns []model.Conversation, limit int) []model.Conversation {
	if limit <= 0 || limit >= len(turns) {
		return turns
	}
	return turns[len(turns)-limit:]
}
