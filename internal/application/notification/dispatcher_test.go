package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pressmarket/backend/internal/domain/notification"
	"github.com/pressmarket/backend/internal/domain/publication"
	"github.com/pressmarket/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockNotificationRepository is a mock implementation of notification.Repository
type MockNotificationRepository struct {
	mock.Mock
	mu    sync.Mutex
	saved []*notification.Notification
}

func (m *MockNotificationRepository) FindByID(ctx context.Context, id uint64) (*notification.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Notification), args.Error(1)
}

func (m *MockNotificationRepository) FindForRecipient(ctx context.Context, recipientID uint64, filter shared.Filter) ([]notification.Notification, error) {
	args := m.Called(ctx, recipientID, filter)
	return args.Get(0).([]notification.Notification), args.Error(1)
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, recipientID uint64) (int64, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) Save(ctx context.Context, n *notification.Notification) error {
	args := m.Called(ctx, n)
	if args.Error(0) == nil {
		m.mu.Lock()
		m.saved = append(m.saved, n)
		m.mu.Unlock()
	}
	return args.Error(0)
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, recipientID uint64) error {
	args := m.Called(ctx, recipientID)
	return args.Error(0)
}

func (m *MockNotificationRepository) Delete(ctx context.Context, recipientID, id uint64) error {
	args := m.Called(ctx, recipientID, id)
	return args.Error(0)
}

func (m *MockNotificationRepository) savedTypes() []notification.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]notification.Type, len(m.saved))
	for i, n := range m.saved {
		types[i] = n.Type
	}
	return types
}

// stubDirectory resolves every user to one address, or fails
type stubDirectory struct {
	address string
	err     error
}

func (d *stubDirectory) EmailFor(ctx context.Context, userID uint64) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	return d.address, nil
}

// stubEmailSender records sends and can be told to fail
type stubEmailSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (s *stubEmailSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	s.sent = append(s.sent, to)
	s.mu.Unlock()
	return nil
}

// stubDedupStore marks every event ID fresh exactly once
type stubDedupStore struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func newStubDedupStore() *stubDedupStore {
	return &stubDedupStore{seen: make(map[string]bool)}
}

func (s *stubDedupStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[eventID] {
		return false, nil
	}
	s.seen[eventID] = true
	return true, nil
}

func (s *stubDedupStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[eventID], nil
}

func (s *stubDedupStore) Close() error { return nil }

func approvedEvent(t *testing.T, owner uint64) *publication.PublicationApprovedEvent {
	t.Helper()
	pub, err := publication.NewPublication("Tech Daily", "https://techdaily.example.com", publication.Actor{ID: owner, Role: publication.RoleUser})
	require.NoError(t, err)
	require.NoError(t, pub.Submit(publication.Actor{ID: owner, Role: publication.RoleUser}, true))
	require.NoError(t, pub.Approve(42, "ok"))
	pub.ID = 1
	return publication.NewPublicationApprovedEvent(pub, "ok")
}

func submittedEvent(t *testing.T, owner uint64) *publication.PublicationSubmittedEvent {
	t.Helper()
	pub, err := publication.NewPublication("Tech Daily", "https://techdaily.example.com", publication.Actor{ID: owner, Role: publication.RoleUser})
	require.NoError(t, err)
	require.NoError(t, pub.Submit(publication.Actor{ID: owner, Role: publication.RoleUser}, true))
	pub.ID = 1
	return publication.NewPublicationSubmittedEvent(pub)
}

func newTestDispatcher(repo *MockNotificationRepository, users UserDirectory, email EmailSender, dedup shared.IdempotencyStore) *Dispatcher {
	return NewDispatcher(repo, users, email, dedup, DefaultDispatcherConfig(), zap.NewNop())
}

func TestDispatcher_Handle_SendsEmailAndRecord(t *testing.T) {
	repo := new(MockNotificationRepository)
	sender := &stubEmailSender{}
	d := newTestDispatcher(repo, &stubDirectory{address: "owner@example.com"}, sender, nil)

	repo.On("Save", mock.Anything, mock.AnythingOfType("*notification.Notification")).Return(nil)

	err := d.Handle(context.Background(), approvedEvent(t, 7))

	require.NoError(t, err)
	assert.Equal(t, []string{"owner@example.com"}, sender.sent)
	require.Len(t, repo.saved, 1)
	assert.Equal(t, notification.TypePublicationApproved, repo.saved[0].Type)
	assert.Equal(t, uint64(7), repo.saved[0].RecipientID)
	require.NotNil(t, repo.saved[0].PublicationID)
	assert.Equal(t, uint64(1), *repo.saved[0].PublicationID)
}

func TestDispatcher_Handle_EmailFailureProducesAdvisoryRecord(t *testing.T) {
	repo := new(MockNotificationRepository)
	sender := &stubEmailSender{err: errors.New("smtp: connection refused")}
	d := newTestDispatcher(repo, &stubDirectory{address: "owner@example.com"}, sender, nil)

	repo.On("Save", mock.Anything, mock.AnythingOfType("*notification.Notification")).Return(nil)

	// A broken email path must not surface as a handler error.
	err := d.Handle(context.Background(), approvedEvent(t, 7))

	require.NoError(t, err)
	types := repo.savedTypes()
	require.Len(t, types, 2)
	assert.Contains(t, types, notification.TypePublicationApproved)
	assert.Contains(t, types, notification.TypeApprovedEmailFailed)
}

func TestDispatcher_Handle_SubmittedEmailFailureProducesAdvisoryRecord(t *testing.T) {
	repo := new(MockNotificationRepository)
	sender := &stubEmailSender{err: errors.New("smtp: connection refused")}
	d := newTestDispatcher(repo, &stubDirectory{address: "owner@example.com"}, sender, nil)

	repo.On("Save", mock.Anything, mock.AnythingOfType("*notification.Notification")).Return(nil)

	err := d.Handle(context.Background(), submittedEvent(t, 7))

	require.NoError(t, err)
	// The advisory record must be distinguishable from the primary one.
	types := repo.savedTypes()
	require.Len(t, types, 2)
	assert.Contains(t, types, notification.TypePublicationSubmitted)
	assert.Contains(t, types, notification.TypeSubmittedEmailFailed)
}

func TestDispatcher_Handle_UnknownRecipientSkipsEmail(t *testing.T) {
	repo := new(MockNotificationRepository)
	sender := &stubEmailSender{}
	d := newTestDispatcher(repo, &stubDirectory{err: shared.ErrNotFound}, sender, nil)

	repo.On("Save", mock.Anything, mock.AnythingOfType("*notification.Notification")).Return(nil)

	err := d.Handle(context.Background(), approvedEvent(t, 7))

	require.NoError(t, err)
	assert.Empty(t, sender.sent)
	// The in-app record is still written, without an advisory entry: a
	// missing directory row is not an email delivery failure.
	assert.Equal(t, []notification.Type{notification.TypePublicationApproved}, repo.savedTypes())
}

func TestDispatcher_Handle_NoOwnerNoFanOut(t *testing.T) {
	repo := new(MockNotificationRepository)
	sender := &stubEmailSender{}
	d := newTestDispatcher(repo, &stubDirectory{address: "admin@example.com"}, sender, nil)

	pub, err := publication.NewPublication("House Organ", "https://house.example.com", publication.Actor{ID: 42, Role: publication.RoleAdmin})
	require.NoError(t, err)
	require.NoError(t, pub.Submit(publication.Actor{ID: 42, Role: publication.RoleAdmin}, true))
	require.NoError(t, pub.Approve(42, ""))
	pub.ID = 2

	err = d.Handle(context.Background(), publication.NewPublicationApprovedEvent(pub, ""))

	require.NoError(t, err)
	assert.Empty(t, sender.sent)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestDispatcher_Handle_RepositoryFailureIsSwallowed(t *testing.T) {
	repo := new(MockNotificationRepository)
	sender := &stubEmailSender{}
	d := newTestDispatcher(repo, &stubDirectory{address: "owner@example.com"}, sender, nil)

	repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("db down"))

	err := d.Handle(context.Background(), approvedEvent(t, 7))

	require.NoError(t, err)
	assert.Equal(t, []string{"owner@example.com"}, sender.sent)
}

func TestDispatcher_Handle_DuplicateEventDispatchedOnce(t *testing.T) {
	repo := new(MockNotificationRepository)
	sender := &stubEmailSender{}
	d := newTestDispatcher(repo, &stubDirectory{address: "owner@example.com"}, sender, newStubDedupStore())

	repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	event := approvedEvent(t, 7)
	require.NoError(t, d.Handle(context.Background(), event))
	require.NoError(t, d.Handle(context.Background(), event))

	assert.Len(t, sender.sent, 1)
	assert.Len(t, repo.saved, 1)
}

func TestDispatcher_Handle_DedupStoreFailureDispatchesAnyway(t *testing.T) {
	repo := new(MockNotificationRepository)
	sender := &stubEmailSender{}
	dedup := newStubDedupStore()
	dedup.err = errors.New("redis unreachable")
	d := newTestDispatcher(repo, &stubDirectory{address: "owner@example.com"}, sender, dedup)

	repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	err := d.Handle(context.Background(), approvedEvent(t, 7))

	require.NoError(t, err)
	assert.Len(t, sender.sent, 1)
}

func TestDispatcher_Handle_RejectedEvent(t *testing.T) {
	repo := new(MockNotificationRepository)
	sender := &stubEmailSender{}
	d := newTestDispatcher(repo, &stubDirectory{address: "owner@example.com"}, sender, nil)

	repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	pub, err := publication.NewPublication("Tech Daily", "https://techdaily.example.com", publication.Actor{ID: 7, Role: publication.RoleUser})
	require.NoError(t, err)
	require.NoError(t, pub.Submit(publication.Actor{ID: 7, Role: publication.RoleUser}, true))
	require.NoError(t, pub.Reject(42, "thin content"))
	pub.ID = 3

	err = d.Handle(context.Background(), publication.NewPublicationRejectedEvent(pub, "thin content"))

	require.NoError(t, err)
	require.Len(t, repo.saved, 1)
	assert.Equal(t, notification.TypePublicationRejected, repo.saved[0].Type)
	assert.Contains(t, repo.saved[0].Message, "thin content")
}

func TestDispatcher_EventTypes(t *testing.T) {
	d := newTestDispatcher(new(MockNotificationRepository), &stubDirectory{}, &stubEmailSender{}, nil)

	assert.ElementsMatch(t, []string{
		publication.EventTypePublicationSubmitted,
		publication.EventTypePublicationApproved,
		publication.EventTypePublicationRejected,
	}, d.EventTypes())
}
