package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ConversationTurn is one message of the client-held conversation history.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ModelResponse is either plain text or the object decoded from a fenced JSON reply.
type ModelResponse struct {
	Text       string
	Structured map[string]any
}

func (r *ModelResponse) IsStructured() bool {
	return r.Structured != nil
}

// MarshalJSON renders structured replies as the bare object and text replies as {"text": ...}.
func (r *ModelResponse) MarshalJSON() ([]byte, error) {
	if r.IsStructured() {
		return json.Marshal(r.Structured)
	}
	return json.Marshal(map[string]string{"text": r.Text})
}

const (
	jsonFence       = "```json"
	fenceOpenLen    = len(jsonFence) + 1 // marker plus one separator character
	fenceCloseLen   = len("\n```")
	minFencedLength = fenceOpenLen + fenceCloseLen
)

// ParseModelResponse returns text verbatim unless it starts with a ```json
// marker, in which case the fence delimiters are cut off and the rest must
// decode to a JSON object.
func ParseModelResponse(text string) (*ModelResponse, error) {
	if !strings.HasPrefix(text, jsonFence) {
		return &ModelResponse{Text: text}, nil
	}
	// Offsets count characters, not bytes, so a multi-byte rune after the
	// marker is dropped whole.
	runes := []rune(text)
	if len(runes) < minFencedLength {
		return nil, fmt.Errorf("%w: fenced block of %d characters is truncated", ErrResponseParse, len(runes))
	}

	body := string(runes[fenceOpenLen : len(runes)-fenceCloseLen])
	var structured map[string]any
	if err := json.Unmarshal([]byte(body), &structured); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResponseParse, err)
	}
	if structured == nil {
		return nil, fmt.Errorf("%w: fenced block is not a JSON object", ErrResponseParse)
	}
	return &ModelResponse{Structured: structured}, nil
}

// NormalizeRole maps client role names onto the provider's user/model pair.
func NormalizeRole(role string) (Role, error) {
	switch r := strings.ToLower(strings.TrimSpace(role)); r {
	case "user":
		return RoleUser, nil
	case "model", "assistant":
		return RoleModel, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
}

// Relay forwards a client-held conversation to the model. It keeps no state between calls.
type Relay struct {
	model       ConversationModel
	instruction string
	timeout     time.Duration
}

func NewRelay(model ConversationModel, instruction string, timeout time.Duration) *Relay {
	return &Relay{model: model, instruction: instruction, timeout: timeout}
}

// BuildContents returns the provider request: the instruction turn followed by
// every supplied turn in order.
func (r *Relay) BuildContents(turns []ConversationTurn) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(turns)+1)
	contents = append(contents, &genai.Content{
		Role:  string(RoleUser),
		Parts: []genai.Part{genai.Text(r.instruction)},
	})

	for i, turn := range turns {
		role, err := NormalizeRole(turn.Role)
		if err != nil {
			return nil, fmt.Errorf("turn %d: %w", i, err)
		}
		contents = append(contents, &genai.Content{
			Role:  string(role),
			Parts: []genai.Part{genai.Text(turn.Content)},
		})
	}

	// The chat session API continues from a user turn; a history ending on a
	// model turn has nothing to send.
	if last := contents[len(contents)-1]; last.Role != string(RoleUser) {
		return nil, fmt.Errorf("%w: conversation must end with a user turn", ErrInvalidInput)
	}
	return contents, nil
}

func (r *Relay) Respond(ctx context.Context, turns []ConversationTurn) (*ModelResponse, error) {
	contents, err := r.BuildContents(turns)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	text, err := r.model.Converse(ctx, contents)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	return ParseModelResponse(text)
}
