package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/pkg/mail"
)

type chanSender struct {
	out chan mail.Message
	err error
}

func (s *chanSender) Send(_ context.Context, msg mail.Message) error {
	s.out <- msg
	return s.err
}

func TestMailDispatcher_DeliversResetLink(t *testing.T) {
	sender := &chanSender{out: make(chan mail.Message, 1)}
	d := NewMailDispatcher(sender, "http://blog.test", 4)
	stop := d.Start(1)
	defer func() { _ = stop(context.Background()) }()

	d.SendPasswordResetEmail(&model.User{Username: "alice", Email: "alice@example.com"}, "tok123")

	select {
	case msg := <-sender.out:
		assert.Equal(t, "alice@example.com", msg.To)
		assert.Contains(t, msg.Body, "http://blog.test/reset_password/tok123")
	case <-time.After(2 * time.Second):
		t.Fatal("message was not delivered")
	}
}

func TestMailDispatcher_FailureDoesNotPropagate(t *testing.T) {
	sender := &chanSender{out: make(chan mail.Message, 1), err: errors.New("smtp down")}
	d := NewMailDispatcher(sender, "http://blog.test", 4)
	stop := d.Start(1)
	defer func() { _ = stop(context.Background()) }()

	require.True(t, d.Enqueue(mail.Message{To: "a@example.com"}))
	select {
	case <-sender.out:
	case <-time.After(2 * time.Second):
		t.Fatal("message was not attempted")
	}
}

func TestMailDispatcher_FullQueueDrops(t *testing.T) {
	d := NewMailDispatcher(&chanSender{out: make(chan mail.Message, 8)}, "", 1)

	assert.True(t, d.Enqueue(mail.Message{To: "a@example.com"}))
	assert.False(t, d.Enqueue(mail.Message{To: "b@example.com"}))
	assert.Equal(t, 1, d.QueueLen())
}
