package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
)

const questionPromptTemplate = "Write one take-home coding task for a candidate applying to the %s position at %s. " +
	"The candidate extends an existing small backend and may consult internal documentation while working. " +
	"Reply only with a ```json fenced block holding an object with two string fields: " +
	"\"question\", the task statement, and \"doc\", the internal documentation the candidate may read."

// QuestionGenerator asks the conversation model for a question when none was provisioned.
type QuestionGenerator struct {
	model   ConversationModel
	timeout time.Duration
}

func NewQuestionGenerator(model ConversationModel, timeout time.Duration) *QuestionGenerator {
	return &QuestionGenerator{model: model, timeout: timeout}
}

func (q *QuestionGenerator) GenerateQuestion(ctx context.Context, company, position string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	prompt := fmt.Sprintf(questionPromptTemplate, position, company)
	text, err := q.model.Converse(ctx, []*genai.Content{{
		Role:  string(RoleUser),
		Parts: []genai.Part{genai.Text(prompt)},
	}})
	if err != nil {
		return "", "", fmt.Errorf("%w: question generation: %w", ErrUpstreamUnavailable, err)
	}

	resp, err := ParseModelResponse(text)
	if err != nil {
		return "", "", err
	}
	if !resp.IsStructured() {
		return strings.TrimSpace(resp.Text), "", nil
	}

	question, _ := resp.Structured["question"].(string)
	doc, _ := resp.Structured["doc"].(string)
	if question == "" {
		return "", "", fmt.Errorf("%w: generated question is missing the \"question\" field", ErrResponseParse)
	}
	return question, doc, nil
}
