//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/runtime"
)

// IChatService is the operation surface the transport programs against.
type IChatService interface {
	Connect(displayName string, sink contract.EventSink) domain.Session
	Disconnect(sessionID string)
	Join(sessionID, room, displayName string) error
	Leave(sessionID, room string) error
	Send(sessionID, room, body string) (domain.Message, error)
	Search(ctx context.Context, sessionID, room, query string) ([]domain.Message, error)
}

// ChatService is a thin facade over the orchestrator so handlers never reach
// into runtime internals.
type ChatService struct {
	orchestrator *runtime.Orchestrator
}

func NewChatService(o *runtime.Orchestrator) *ChatService {
	return &ChatService{orchestrator: o}
}

func (s *ChatService) Connect(displayName string, sink contract.EventSink) domain.Session {
	return s.orchestrator.Connect(displayName, sink)
}

func (s *ChatService) Disconnect(sessionID string) {
	s.orchestrator.Disconnect(sessionID)
}

func (s *ChatService) Join(sessionID, room, displayName string) error {
	return s.orchestrator.Join(sessionID, room, displayName)
}

func (s *ChatService) Leave(sessionID, room string) error {
	return s.orchestrator.Leave(sessionID, room)
}

func (s *ChatService) Send(sessionID, room, body string) (domain.Message, error) {
	return s.orchestrator.Send(sessionID, room, body)
}

func (s *ChatService) Search(ctx context.Context, sessionID, room, query string) ([]domain.Message, error) {
	return s.orchestrator.Search(ctx, sessionID, room, query)
}
