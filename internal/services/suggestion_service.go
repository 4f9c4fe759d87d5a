package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/yukikurage/recados-api/internal/constants"
	"github.com/yukikurage/recados-api/internal/dto"
	"github.com/yukikurage/recados-api/internal/result"
)

var (
	ErrSuggestionsUnavailable = errors.New("task suggestions are not configured")
	ErrNoSuggestions          = errors.New("no tasks could be suggested from the text")
)

// completer is the subset of the OpenAI client used for suggestions.
type completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// SuggestionService turns free text into proposed tasks using OpenAI.
// Suggestions are returned to the caller only; nothing is persisted.
type SuggestionService struct {
	client      completer
	userService *UserService
}

// NewSuggestionService creates a SuggestionService. An empty apiKey leaves
// the service disabled and every call returns ErrSuggestionsUnavailable.
func NewSuggestionService(apiKey string, userService *UserService) *SuggestionService {
	s := &SuggestionService{userService: userService}
	if apiKey != "" {
		s.client = openai.NewClient(apiKey)
	}
	return s
}

const suggestionPrompt = `You extract concrete to-do items from text.

Text:
%s

Answer with a JSON array only, no prose:
[
  {"description": "short summary (max %d characters)", "detail": "what has to be done"}
]

Return [] when the text contains no task.`

// Suggest proposes tasks for userID from text.
func (s *SuggestionService) Suggest(ctx context.Context, actorID, userID, text string) (result.Result[[]dto.SuggestedTaskDTO], error) {
	if actorID == "" {
		return result.Unauthorized[[]dto.SuggestedTaskDTO](), nil
	}
	if s.client == nil {
		return result.Result[[]dto.SuggestedTaskDTO]{}, ErrSuggestionsUnavailable
	}

	owner, err := s.userService.GetByID(ctx, userID)
	if err != nil {
		return result.Result[[]dto.SuggestedTaskDTO]{}, err
	}
	if !owner.OK() {
		return result.Forward[[]dto.SuggestedTaskDTO](owner), nil
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT4o,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(suggestionPrompt, text, constants.MaxDescriptionLength),
			},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return result.Result[[]dto.SuggestedTaskDTO]{}, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return result.Result[[]dto.SuggestedTaskDTO]{}, fmt.Errorf("no response from OpenAI")
	}

	suggested, err := parseSuggestions(resp.Choices[0].Message.Content)
	if err != nil {
		return result.Result[[]dto.SuggestedTaskDTO]{}, err
	}
	if len(suggested) == 0 {
		return result.BadRequest[[]dto.SuggestedTaskDTO](ErrNoSuggestions.Error()), nil
	}

	return result.Ok(http.StatusOK, "Tasks suggested", suggested), nil
}

// parseSuggestions decodes the model output, dropping blank items and
// clamping lengths to what a task can store.
func parseSuggestions(content string) ([]dto.SuggestedTaskDTO, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var raw []dto.SuggestedTaskDTO
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}

	out := make([]dto.SuggestedTaskDTO, 0, len(raw))
	for _, item := range raw {
		description := strings.TrimSpace(item.Description)
		if description == "" {
			continue
		}
		detail := strings.TrimSpace(item.Detail)
		if detail == "" {
			detail = description
		}
		out = append(out, dto.SuggestedTaskDTO{
			Description: truncate(description, constants.MaxDescriptionLength),
			Detail:      truncate(detail, constants.MaxDetailLength),
		})
		if len(out) == constants.MaxSuggestedTasks {
			break
		}
	}
	return out, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
