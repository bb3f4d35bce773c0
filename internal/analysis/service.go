package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ats-backend/internal/llm"
	"ats-backend/internal/shared/metrics"
	"ats-backend/internal/shared/storage/object"
	"ats-backend/internal/shared/telemetry"
)

// MinTextLength is the shortest extracted resume text that can be analyzed.
const MinTextLength = 50

var ErrTextTooShort = errors.New("resume text is too short")

// UsageRecorder counts analyses per user.
type UsageRecorder interface {
	RecordAnalysisRun(ctx context.Context, userID string) error
}

// Service runs analyses against a remote model, or the heuristic when LLM is nil.
type Service struct {
	LLM          llm.Completer
	Heuristic    *Heuristic
	Users        UsageRecorder
	Store        object.Store
	DefaultModel string
	Now          func() time.Time
}

func NewService(completer llm.Completer, defaultModel string) *Service {
	return &Service{
		LLM:          completer,
		Heuristic:    NewHeuristic(),
		DefaultModel: defaultModel,
		Now:          time.Now,
	}
}

// Analyze scores the resume. userID may be empty for anonymous callers.
func (s *Service) Analyze(ctx context.Context, userID string, in Input) (Result, error) {
	in.ResumeText = strings.TrimSpace(in.ResumeText)
	in.JobDescription = strings.TrimSpace(in.JobDescription)
	if in.JobDescription == "" {
		return Result{}, fmt.Errorf("%w: job description is required", ErrInvalidInput)
	}
	if len(in.ResumeText) < MinTextLength {
		return Result{}, ErrTextTooShort
	}

	metrics.IncAnalysisStarted()
	started := s.now()

	res, err := s.run(ctx, in)
	elapsed := s.now().Sub(started)
	metrics.ObserveAnalysisDurationMs(float64(elapsed.Milliseconds()))
	if err != nil {
		metrics.IncAnalysisFailed()
		telemetry.Error("analysis.failed", map[string]any{
			"user_id":     userID,
			"model":       ResolveModel(in.Model, s.DefaultModel),
			"duration_ms": elapsed.Milliseconds(),
			"error":       err.Error(),
		})
		return Result{}, err
	}
	metrics.IncAnalysisCompleted()
	telemetry.Info("analysis.completed", map[string]any{
		"user_id":       userID,
		"model":         res.ModelUsed.ID,
		"overall_score": res.OverallScore,
		"duration_ms":   elapsed.Milliseconds(),
	})

	if userID != "" && s.Users != nil {
		if err := s.Users.RecordAnalysisRun(ctx, userID); err != nil {
			telemetry.Warn("analysis.usage_record_failed", map[string]any{"user_id": userID, "error": err.Error()})
		}
	}
	return res, nil
}

func (s *Service) run(ctx context.Context, in Input) (Result, error) {
	if s.LLM == nil {
		return s.heuristic().Analyze(in), nil
	}
	req := BuildRequest(in, s.DefaultModel)
	resp, err := s.LLM.Complete(ctx, req)
	if err != nil {
		return Result{}, wrapFailure(err)
	}
	res, err := Normalize(resp.Content)
	if err != nil {
		return Result{}, wrapFailure(err)
	}
	res.FillModel(req.Model)
	return res, nil
}

// ParseResume asks the model to turn plain resume text into structured content.
func (s *Service) ParseResume(ctx context.Context, text string) (json.RawMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: resume text is required", ErrInvalidInput)
	}
	if s.LLM == nil {
		return nil, llm.ErrNotConfigured
	}
	resp, err := s.LLM.Complete(ctx, BuildParseRequest(text, s.DefaultModel))
	if err != nil {
		return nil, wrapFailure(err)
	}
	body := []byte(StripFences(resp.Content))
	if !json.Valid(body) || !bytes.HasPrefix(bytes.TrimSpace(body), []byte("{")) {
		return nil, wrapFailure(fmt.Errorf("%w: expected a JSON object", ErrInvalidFormat))
	}
	return json.RawMessage(body), nil
}

// Archive stores the uploaded file when an object store is configured and returns its key.
func (s *Service) Archive(ctx context.Context, userID, fileName, contentType string, data []byte) (string, error) {
	if s.Store == nil {
		return "", nil
	}
	key, err := object.UploadKey(userID, fileName)
	if err != nil {
		return "", err
	}
	if _, err := s.Store.Put(ctx, key, contentType, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("archive upload: %w", err)
	}
	return key, nil
}

func (s *Service) heuristic() *Heuristic {
	if s.Heuristic == nil {
		return NewHeuristic()
	}
	return s.Heuristic
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
