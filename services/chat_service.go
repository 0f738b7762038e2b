package services

import (
	"context"
	"fmt"
	"neuroTrackAPI/internal/types/chat"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ChatService struct {
	data *DataService
	ai   *AIService
}

func NewChatService(data *DataService, ai *AIService) *ChatService {
	return &ChatService{data: data, ai: ai}
}

// Reply answers a chat message using the caller's current data as context.
func (s *ChatService) Reply(ctx context.Context, clerkID string, req *chat.ChatRequest) (*chat.Message, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}

	data, err := s.data.Load(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	return &chat.Message{
		ID:        uuid.New().String(),
		Role:      chat.RoleModel,
		Text:      s.ai.Chat(ctx, message, data, req.History),
		Timestamp: time.Now().UTC(),
	}, nil
}
