package core

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"adaptive.dev/assessment-server/internal/store"
)

var (
	accessCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	emailPattern      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// QuestionPayload is returned once per successful access-code validation.
type QuestionPayload struct {
	Question string `json:"question"`
	Doc      string `json:"doc"`
	Company  string `json:"company"`
}

type AccessLookup interface {
	GetAccessRecord(ctx context.Context, accessCode string) (*store.AccessRecord, error)
}

// QuestionSource produces a question when none was provisioned for a company/position pair.
type QuestionSource interface {
	GenerateQuestion(ctx context.Context, company, position string) (question, doc string, err error)
}

// Gateway validates access codes and hands out the matching question.
type Gateway struct {
	lookup    AccessLookup
	questions QuestionSource
}

func NewGateway(lookup AccessLookup, questions QuestionSource) *Gateway {
	return &Gateway{lookup: lookup, questions: questions}
}

func ValidAccessCode(code string) bool {
	return accessCodePattern.MatchString(code)
}

func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// IssueQuestion performs a single read of the access-code table. The email is
// checked for shape only, and only once the code is known; it is not compared
// against the record.
func (g *Gateway) IssueQuestion(ctx context.Context, accessCode, email string) (*QuestionPayload, error) {
	if !ValidAccessCode(accessCode) {
		return nil, ErrUnauthorized
	}
	rec, err := g.lookup.GetAccessRecord(ctx, accessCode)
	if err != nil {
		return nil, fmt.Errorf("access code lookup failed: %w", err)
	}
	if rec == nil {
		return nil, ErrUnauthorized
	}
	if !ValidEmail(email) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, ErrInvalidEmail)
	}

	payload := &QuestionPayload{Question: rec.Question, Doc: rec.Doc, Company: rec.Company}
	if payload.Question == "" && g.questions != nil {
		slog.Info("no provisioned question, generating", "company", rec.Company, "position", rec.Position)
		payload.Question, payload.Doc, err = g.questions.GenerateQuestion(ctx, rec.Company, rec.Position)
		if err != nil {
			return nil, err
		}
	}
	return payload, nil
}
