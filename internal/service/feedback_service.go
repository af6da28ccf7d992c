package service

import (
	"context"
	"strings"
	"time"

	"github.com/andresuchdata/grocerystock/internal/domain"
	"github.com/andresuchdata/grocerystock/internal/repository"
	"github.com/rs/zerolog/log"
)

// FeedbackInput is a raw feedback submission. Value accepts button labels
// such as "yes" or "down".
type FeedbackInput struct {
	ItemName string `json:"item_name"`
	Type     string `json:"feedback_type"`
	Value    string `json:"feedback_value"`
	Date     string `json:"date"`
}

type FeedbackService struct {
	repo repository.FeedbackRepository
	now  func() time.Time
}

func NewFeedbackService(repo repository.FeedbackRepository) *FeedbackService {
	return &FeedbackService{repo: repo, now: time.Now}
}

// Submit stores one feedback record. Feedback is kept for audit only.
func (s *FeedbackService) Submit(ctx context.Context, in FeedbackInput) (*domain.FeedbackRecord, error) {
	record := &domain.FeedbackRecord{
		ItemName: domain.NormalizeName(in.ItemName),
		Type:     strings.ToLower(strings.TrimSpace(in.Type)),
		Value:    strings.ToLower(strings.TrimSpace(in.Value)),
		Date:     strings.TrimSpace(in.Date),
	}
	if record.ItemName == "" {
		record.ItemName = domain.FeedbackGeneral
	}
	if record.Date == "" {
		record.Date = s.now().Format(domain.DateLayout)
	}
	if v, ok := domain.ParseFeedbackValue(in.Value); ok {
		record.Value = v
	}

	if err := validateStruct(record); err != nil {
		return nil, err
	}
	if err := s.repo.AppendFeedback(ctx, record); err != nil {
		return nil, err
	}

	log.Info().
		Str("item", record.ItemName).
		Str("feedback_type", record.Type).
		Str("feedback_value", record.Value).
		Msg("feedback recorded")
	return record, nil
}

func (s *FeedbackService) List(ctx context.Context, limit int) ([]domain.FeedbackRecord, error) {
	return s.repo.ListFeedback(ctx, limit)
}
