package users

import (
	"context"
	"errors"
	"strings"
)

type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, userID)
}

// Exists returns ErrNotFound when the account is missing or soft-deleted.
func (s *Service) Exists(ctx context.Context, userID string) error {
	_, err := s.GetByID(ctx, userID)
	return err
}

// RecordResumeCreated bumps the resume counter; anonymous callers are ignored.
func (s *Service) RecordResumeCreated(ctx context.Context, userID string) error {
	if s == nil || s.Repo == nil || userID == "" {
		return nil
	}
	return s.Repo.IncrementResumesCreated(ctx, userID)
}

// RecordAnalysisRun bumps the analysis counter; anonymous callers are ignored.
func (s *Service) RecordAnalysisRun(ctx context.Context, userID string) error {
	if s == nil || s.Repo == nil || userID == "" {
		return nil
	}
	return s.Repo.IncrementAnalysesRun(ctx, userID)
}
