package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubscriberStore struct {
	emails    map[string]bool
	insertErr error
}

func (s *fakeSubscriberStore) InsertSubscriber(ctx context.Context, email string) (bool, error) {
	if s.insertErr != nil {
		return false, s.insertErr
	}
	if s.emails[email] {
		return false, nil
	}
	s.emails[email] = true
	return true, nil
}

type fakeRelay struct {
	emails []string
	err    error
}

func (r *fakeRelay) Subscribe(ctx context.Context, email string) error {
	if r.err != nil {
		return r.err
	}
	r.emails = append(r.emails, email)
	return nil
}

func TestSubscribeValidation(t *testing.T) {
	svc := NewNewsletterService(&fakeSubscriberStore{emails: map[string]bool{}}, nil)

	for _, email := range []string{"", "nope", "a@b", "spaces in@example.com"} {
		assert.ErrorIs(t, svc.Subscribe(context.Background(), email), ErrInvalidEmail, email)
	}
	assert.NoError(t, svc.Subscribe(context.Background(), "reader@example.com"))
}

func TestSubscribeRelaysSignup(t *testing.T) {
	relay := &fakeRelay{}
	svc := NewNewsletterService(&fakeSubscriberStore{emails: map[string]bool{}}, relay)

	require.NoError(t, svc.Subscribe(context.Background(), "reader@example.com"))
	assert.Equal(t, []string{"reader@example.com"}, relay.emails)
}

func TestSubscribeRelayFailureIsNotFatal(t *testing.T) {
	relay := &fakeRelay{err: errors.New("upstream 500")}
	st := &fakeSubscriberStore{emails: map[string]bool{}}
	svc := NewNewsletterService(st, relay)

	assert.NoError(t, svc.Subscribe(context.Background(), "reader@example.com"))
	assert.True(t, st.emails["reader@example.com"])
}

func TestSubscribeRepeatIsNoOp(t *testing.T) {
	st := &fakeSubscriberStore{emails: map[string]bool{}}
	svc := NewNewsletterService(st, nil)

	require.NoError(t, svc.Subscribe(context.Background(), "reader@example.com"))
	require.NoError(t, svc.Subscribe(context.Background(), "reader@example.com"))
}

func TestSubscribeStoreErrorPropagates(t *testing.T) {
	st := &fakeSubscriberStore{insertErr: errors.New("connection refused")}
	svc := NewNewsletterService(st, nil)

	assert.Error(t, svc.Subscribe(context.Background(), "reader@example.com"))
}
