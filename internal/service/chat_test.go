package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/access"
)

type fakePublisher struct {
	topics []string
	err    error
}

func (f *fakePublisher) PublishEvent(_ context.Context, topic, _ string, _ any) error {
	f.topics = append(f.topics, topic)
	return f.err
}

func TestChat_PostAndList(t *testing.T) {
	r := newTestRepo(t)
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := &ChatService{Repo: r, Publisher: pub}
	ctx := context.Background()
	_, user := mustUser(t, r, "u@example.com", access.RoleUser)
	_, admin := mustUser(t, r, "a@example.com", access.RoleAdmin)

	_, err := svc.PostMessage(ctx, admin, "hello")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.PostMessage(ctx, user, "   ")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.PostMessage(ctx, user, strings.Repeat("x", maxMessageLen+1))
	assert.ErrorIs(t, err, ErrValidation)

	msg, err := svc.PostMessage(ctx, user, " hello ")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Body)
	assert.Equal(t, []string{ChatTopic}, pub.topics)

	msgs, err := svc.ListMessages(ctx, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "u@example.com", msgs[0].Email)
}
