package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/Skotchmaster/storefront/internal/access"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const (
	ChatTopic      = "chat_messages"
	maxMessageLen  = 2000
	defaultHistory = 50
)

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type ChatService struct {
	Repo      *repo.GormRepo
	Publisher Publisher
	Topic     string
}

// PostMessage stores the message and fans it out. A failed publish is
// logged; the message is already saved.
func (s *ChatService) PostMessage(ctx context.Context, p Principal, body string) (*models.Message, error) {
	if err := p.require(access.ActionChat); err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, invalidField("message", "is required")
	}
	if utf8.RuneCountInString(body) > maxMessageLen {
		return nil, invalidField("message", "is too long")
	}

	msg := &models.Message{Email: p.Email, Body: body}
	if err := s.Repo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	if s.Publisher != nil {
		topic := s.Topic
		if topic == "" {
			topic = ChatTopic
		}
		if err := s.Publisher.PublishEvent(ctx, topic, msg.Email, msg); err != nil {
			logging.FromContext(ctx).Warn("chat_publish_failed", "message_id", msg.ID.String(), "error", err)
		}
	}
	return msg, nil
}

func (s *ChatService) ListMessages(ctx context.Context, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultHistory
	}
	return s.Repo.ListMessages(ctx, limit)
}
