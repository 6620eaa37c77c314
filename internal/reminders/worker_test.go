package reminders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikjoobang/xivix-ai-core-sub000/internal/observability/metrics"
)

type memoryDueStore struct {
	mu       sync.Mutex
	due      []DueReminder
	sent     []uuid.UUID
	failures map[uuid.UUID]int
	max      int
}

func (m *memoryDueStore) ListDue(_ context.Context, asOf time.Time, _ int) ([]DueReminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []DueReminder
	for _, d := range m.due {
		if d.Status == StatusPending && !d.SendAt.After(asOf) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memoryDueStore) MarkSent(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, id)
	m.setStatus(id, StatusSent)
	return nil
}

func (m *memoryDueStore) MarkFailed(_ context.Context, id uuid.UUID, _ string, maxAttempts int) (ReminderStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures == nil {
		m.failures = map[uuid.UUID]int{}
	}
	m.failures[id]++
	m.max = maxAttempts
	for i := range m.due {
		if m.due[i].ID == id {
			m.due[i].Attempts++
		}
	}
	if m.failures[id] >= maxAttempts {
		m.setStatus(id, StatusFailed)
		return StatusFailed, nil
	}
	return StatusPending, nil
}

func (m *memoryDueStore) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *memoryDueStore) setStatus(id uuid.UUID, s ReminderStatus) {
	for i := range m.due {
		if m.due[i].ID == id {
			m.due[i].Status = s
		}
	}
}

type pushLog struct {
	texts []string
	users []string
	err   error
}

func (p *pushLog) SendText(_ context.Context, _, user, text string) error {
	if p.err != nil {
		return p.err
	}
	p.users = append(p.users, user)
	p.texts = append(p.texts, text)
	return nil
}

func dueReminder(sendAt time.Time, lead int) DueReminder {
	return DueReminder{
		Reminder: Reminder{ID: uuid.New(), StoreID: uuid.New(), TalkTalkUserID: "tt-1",
			LeadMinutes: lead, SendAt: sendAt, Status: StatusPending},
		CustomerName: "김민수",
		Service:      "스케일링",
		ReservedAt:   time.Date(2026, 4, 10, 5, 30, 0, 0, time.UTC),
	}
}

func newTestWorker(store DueStore, m Messenger, n FailureNotifier) *Worker {
	w := NewWorker(WorkerConfig{
		Store:     store,
		Messenger: m,
		Stores:    stubDirectory{name: "밝은 치과", email: "owner@example.com"},
		Notifier:  n,
		Location:  seoul,
		Metrics:   metrics.NewConversationMetrics(prometheus.NewRegistry()),
	})
	w.now = func() time.Time { return testTime }
	return w
}

func TestWorker_ProcessDueSendsOnlyDue(t *testing.T) {
	store := &memoryDueStore{due: []DueReminder{
		dueReminder(testTime.Add(-time.Minute), 1440),
		dueReminder(testTime.Add(time.Hour), 60),
	}}
	push := &pushLog{}
	w := newTestWorker(store, push, &recordingNotifier{})

	n, err := w.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, push.texts, 1)
	assert.Contains(t, push.texts[0], "[밝은 치과] 김민수님")
	assert.Equal(t, []string{"tt-1"}, push.users)
	assert.Equal(t, []uuid.UUID{store.due[0].ID}, store.sent)

	n, err = w.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "sent reminders are not resent")
}

func TestWorker_RetriesThenGivesUp(t *testing.T) {
	store := &memoryDueStore{due: []DueReminder{dueReminder(testTime.Add(-time.Minute), 60)}}
	push := &pushLog{err: errors.New("talktalk: status 500")}
	notifier := &recordingNotifier{}
	w := newTestWorker(store, push, notifier)

	for i := 0; i < DefaultMaxAttempts; i++ {
		n, err := w.ProcessDue(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
	}
	assert.Equal(t, DefaultMaxAttempts, store.max)
	assert.Equal(t, StatusFailed, store.due[0].Status)
	require.Len(t, notifier.failed, 1)
	assert.Contains(t, notifier.failed[0], "status 500")

	n, err := w.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, notifier.failed, 1)
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	store := &memoryDueStore{due: []DueReminder{dueReminder(testTime.Add(-time.Minute), 60)}}
	push := &pushLog{}
	w := newTestWorker(store, push, nil)
	w.interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return store.sentCount() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
