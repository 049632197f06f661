// Package tutor answers student questions through the scheduled AI
// gateway, enriching prompts with curriculum context.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/studyloop/tutor-backend/internal/ai"
	"github.com/studyloop/tutor-backend/internal/curriculum"
)

// ErrEmptyQuestion is returned when a request carries no question text.
var ErrEmptyQuestion = errors.New("question text is empty")

// ErrBudgetExhausted is returned when a student's token budget is spent.
var ErrBudgetExhausted = errors.New("token budget exhausted")

const answerMaxTokens = 1024

// AskRequest is one tutoring question from a student.
type AskRequest struct {
	StudentID    string   `json:"student_id"`
	AssignmentID string   `json:"assignment_id,omitempty"`
	Text         string   `json:"text"`
	Subject      string   `json:"subject,omitempty"`
	Grade        string   `json:"grade,omitempty"`
	ImageURLs    []string `json:"image_urls,omitempty"`
}

// AskResponse is the tutor's answer.
type AskResponse struct {
	Answer         string `json:"answer"`
	Model          string `json:"model"`
	CurriculumHint string `json:"curriculum_hint,omitempty"`
	TokensUsed     int    `json:"tokens_used"`
}

// ServiceConfig holds dependencies for the tutor service.
type ServiceConfig struct {
	Router    *ai.Router
	Scheduler *ai.Scheduler
	Budget    ai.BudgetChecker
	Matcher   *curriculum.Matcher // optional, skips prompt enrichment when nil
	Events    EventLogger
	Logger    *slog.Logger
}

// Service is the tutoring question processor.
type Service struct {
	router    *ai.Router
	scheduler *ai.Scheduler
	budget    ai.BudgetChecker
	matcher   *curriculum.Matcher
	events    EventLogger
	logger    *slog.Logger
}

// NewService creates a tutor service.
func NewService(cfg ServiceConfig) *Service {
	budget := cfg.Budget
	if budget == nil {
		budget = ai.NewInMemoryBudget()
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		router:    cfg.Router,
		scheduler: cfg.Scheduler,
		budget:    budget,
		matcher:   cfg.Matcher,
		events:    events,
		logger:    logger,
	}
}

// Ask answers one student question. The external call goes through the
// scheduler, so concurrent questions are dispatched FIFO with the
// configured minimum spacing.
func (s *Service) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	hint, completionReq, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	var resp ai.CompletionResponse
	err = s.scheduler.Do(ctx, func(ctx context.Context) error {
		var callErr error
		resp, callErr = s.router.Complete(ctx, completionReq)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("ai completion: %w", err)
	}

	s.recordUsage(ctx, req, resp.TotalTokens())

	return &AskResponse{
		Answer:         resp.Content,
		Model:          resp.Model,
		CurriculumHint: hint,
		TokensUsed:     resp.TotalTokens(),
	}, nil
}

// AskStream answers one question as a chunk stream. Token usage is
// estimated from the streamed text since providers do not report usage
// on streams.
func (s *Service) AskStream(ctx context.Context, req AskRequest) (<-chan ai.StreamChunk, error) {
	_, completionReq, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	var upstream <-chan ai.StreamChunk
	err = s.scheduler.Do(ctx, func(ctx context.Context) error {
		var callErr error
		upstream, callErr = s.router.StreamComplete(ctx, completionReq)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("ai stream: %w", err)
	}

	out := make(chan ai.StreamChunk)
	go func() {
		defer close(out)
		streamed := 0
		for chunk := range upstream {
			streamed += len(chunk.Content)
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
		// ~4 chars per token, same heuristic as prompt sizing.
		s.recordUsage(ctx, req, streamed/4)
	}()
	return out, nil
}

// prepare validates the request, checks the budget, and assembles the
// completion request with curriculum context when the matcher resolves.
func (s *Service) prepare(ctx context.Context, req AskRequest) (string, ai.CompletionRequest, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", ai.CompletionRequest{}, ErrEmptyQuestion
	}

	ok, err := s.budget.Check(ctx, req.StudentID)
	if err != nil {
		return "", ai.CompletionRequest{}, fmt.Errorf("check budget: %w", err)
	}
	if !ok {
		return "", ai.CompletionRequest{}, fmt.Errorf("student %s: %w", req.StudentID, ErrBudgetExhausted)
	}

	hint := ""
	if s.matcher != nil {
		if h, matched := s.matcher.Hint(req.Text, req.Subject, req.Grade); matched {
			hint = h
		}
	}

	system := systemPrompt
	if hint != "" {
		system += "\n\nLikely relevant curriculum topics:\n" + hint
	}

	task := ai.TaskTutoring
	if len(req.ImageURLs) > 0 {
		task = ai.TaskVision
	}

	completionReq := ai.CompletionRequest{
		Messages: []ai.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: req.Text, ImageURLs: req.ImageURLs},
		},
		Task:      task,
		MaxTokens: answerMaxTokens,
	}
	return hint, completionReq, nil
}

func (s *Service) recordUsage(ctx context.Context, req AskRequest, tokens int) {
	if err := s.budget.Record(ctx, req.StudentID, tokens); err != nil {
		s.logger.Warn("failed to record token usage",
			"student_id", req.StudentID,
			"error", err)
	}
	if err := s.events.LogEvent(Event{
		StudentID:    req.StudentID,
		AssignmentID: req.AssignmentID,
		EventType:    "tutor_ask",
		Data: map[string]any{
			"tokens":  tokens,
			"images":  len(req.ImageURLs),
			"subject": req.Subject,
		},
	}); err != nil {
		s.logger.Warn("failed to log event",
			"student_id", req.StudentID,
			"error", err)
	}
}

const systemPrompt = `You are a patient tutor for school students.

TEACHING STYLE:
- Start from what the student already knows
- Break problems into small steps
- Give a hint before giving the answer
- Keep responses concise; this is a chat, not a textbook

RULES:
- Never give answers without explanation
- Check the student understood before moving on
- Be encouraging and never condescending`
