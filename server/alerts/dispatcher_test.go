package alerts

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Daskott/rightguard/server/alertlog"
	"github.com/Daskott/rightguard/server/channels"
	"github.com/Daskott/rightguard/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type senderStub struct {
	channel models.Channel
	mu      sync.Mutex
	calls   []string
	fail    map[string]bool
	block   bool
	panics  bool
}

func newSenderStub(channel models.Channel) *senderStub {
	return &senderStub{channel: channel, fail: map[string]bool{}}
}

func (s *senderStub) Channel() models.Channel { return s.channel }

func (s *senderStub) Send(ctx context.Context, delivery channels.Delivery) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, delivery.Contact.ID)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.panics {
		panic("provider sdk bug")
	}
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if s.fail[delivery.Contact.ID] {
		return "", errors.New("provider rejected message")
	}
	return string(s.channel) + "-" + delivery.Contact.ID, nil
}

func (s *senderStub) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type generatorStub struct {
	failFor string
}

func (g generatorStub) AlertMessage(ctx context.Context, incident models.Incident, contactName string) (string, error) {
	if contactName == g.failFor {
		return "", errors.New("model unavailable")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "Alert for " + contactName, nil
}

func (g generatorStub) IncidentSummary(ctx context.Context, incident models.Incident) (string, error) {
	return "summary", nil
}

type fixture struct {
	sms, email, push *senderStub
	log              *alertlog.MemoryLog
	dispatcher       *Dispatcher
}

func newFixture(generator generatorStub, opts Options) *fixture {
	f := &fixture{
		sms:   newSenderStub(models.SMS),
		email: newSenderStub(models.Email),
		push:  newSenderStub(models.Push),
		log:   alertlog.NewMemoryLog(nil),
	}
	f.dispatcher = NewDispatcher(generator, channels.NewRegistry(f.sms, f.email, f.push), f.log, opts)
	return f
}

var (
	incident = models.Incident{ID: "i1", UserID: "u1", Location: "Main St", InteractionSummary: "Officer asked for ID"}
	contacts = []models.EmergencyContact{
		{ID: "c1", Name: "Jane", Phone: "5551234567", Email: "jane@example.com"},
		{ID: "c2", Name: "John", Phone: "5559876543", Email: "john@example.com"},
		{ID: "c3", Name: "Kim", Phone: "5550001111", Email: "kim@example.com"},
	}
)

func TestDispatchWithoutContacts(t *testing.T) {
	f := newFixture(generatorStub{}, Options{})

	res := f.dispatcher.Dispatch(context.Background(), incident, nil)

	assert.Equal(t, models.PreconditionError, res.Kind)
	assert.Equal(t, "no contacts to alert", res.Err)
	assert.Equal(t, 0, f.sms.callCount()+f.email.callCount()+f.push.callCount())

	history, _ := f.log.History(context.Background(), "u1", 0)
	assert.Empty(t, history)
}

func TestDispatchAllChannelsSucceed(t *testing.T) {
	f := newFixture(generatorStub{}, Options{})

	res := f.dispatcher.Dispatch(context.Background(), incident, contacts[:2])
	require.True(t, res.Success())

	outcome := res.Data
	assert.Equal(t, "i1", outcome.IncidentID)
	assert.Equal(t, 2, outcome.TotalContacts)
	assert.Equal(t, 2, outcome.SuccessfulAlerts)
	require.Len(t, outcome.Results, 2)

	for i, result := range outcome.Results {
		assert.Equal(t, contacts[i].ID, result.ContactID)
		assert.Equal(t, "Alert for "+contacts[i].Name, result.Message)
		require.Len(t, result.Attempts, 3)
		for _, attempt := range result.Attempts {
			assert.True(t, attempt.Success)
			assert.Equal(t, string(attempt.Channel)+"-"+contacts[i].ID, attempt.MessageID)
			assert.False(t, attempt.Timestamp.IsZero())
		}
	}

	history, err := f.log.History(context.Background(), "u1", 0)
	require.Nil(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.AlertStatusCompleted, history[0].Status)
	assert.Equal(t, 2, history[0].ContactsNotified)
}

func TestDispatchMessageGenerationFailureForOneContact(t *testing.T) {
	f := newFixture(generatorStub{failFor: "John"}, Options{})

	res := f.dispatcher.Dispatch(context.Background(), incident, contacts)
	require.True(t, res.Success())

	results := res.Data.Results
	require.Len(t, results, 3)
	assert.Equal(t, []string{"c1", "c2", "c3"}, []string{results[0].ContactID, results[1].ContactID, results[2].ContactID})

	assert.Contains(t, results[1].Error, "model unavailable")
	assert.Empty(t, results[1].Attempts)
	assert.Len(t, results[0].Attempts, 3)
	assert.Len(t, results[2].Attempts, 3)

	assert.Equal(t, 2, res.Data.SuccessfulAlerts)
	assert.Equal(t, 2, f.sms.callCount(), "John should never be sent to")

	history, _ := f.log.History(context.Background(), "u1", 0)
	assert.Equal(t, models.AlertStatusPartialFailure, history[0].Status)
}

func TestDispatchChannelFailureIsRecordedPerChannel(t *testing.T) {
	cases := []struct {
		description string
		policy      SuccessPolicy
		successful  int
	}{
		{"Lenient policy counts contacts with generated messages", LenientPolicy, 1},
		{"Strict policy requires a delivered channel", StrictPolicy, 0},
	}

	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			f := newFixture(generatorStub{}, Options{Policy: c.policy})
			f.sms.fail["c1"] = true
			f.email.fail["c1"] = true
			f.push.fail["c1"] = true

			res := f.dispatcher.Dispatch(context.Background(), incident, contacts[:1])
			require.True(t, res.Success())
			assert.Equal(t, c.successful, res.Data.SuccessfulAlerts)

			for _, attempt := range res.Data.Results[0].Attempts {
				assert.False(t, attempt.Success)
				assert.Equal(t, "provider rejected message", attempt.Error)
			}
		})
	}
}

func TestDispatchChannelTimeout(t *testing.T) {
	f := newFixture(generatorStub{}, Options{ChannelTimeout: 20 * time.Millisecond})
	f.email.block = true

	start := time.Now()
	res := f.dispatcher.Dispatch(context.Background(), incident, contacts[:2])
	require.True(t, res.Success())
	assert.Less(t, time.Since(start), 2*time.Second)

	for _, result := range res.Data.Results {
		for _, attempt := range result.Attempts {
			if attempt.Channel == models.Email {
				assert.False(t, attempt.Success)
				assert.Contains(t, attempt.Error, "timed out")
				continue
			}
			assert.True(t, attempt.Success, "only the stalled channel should fail")
		}
	}
}

func TestDispatchRecoversFromSenderPanic(t *testing.T) {
	f := newFixture(generatorStub{}, Options{})
	f.push.panics = true

	res := f.dispatcher.Dispatch(context.Background(), incident, contacts[:1])
	require.True(t, res.Success())

	attempts := res.Data.Results[0].Attempts
	assert.True(t, attempts[0].Success)
	assert.True(t, attempts[1].Success)
	assert.False(t, attempts[2].Success)
	assert.Contains(t, attempts[2].Error, "panicked")
}

func TestDispatchMissingSender(t *testing.T) {
	sms := newSenderStub(models.SMS)
	dispatcher := NewDispatcher(generatorStub{}, channels.NewRegistry(sms), nil, Options{})

	res := dispatcher.Dispatch(context.Background(), incident, contacts[:1])
	require.True(t, res.Success())

	attempts := res.Data.Results[0].Attempts
	require.Len(t, attempts, 3)
	assert.True(t, attempts[0].Success)
	assert.Equal(t, "no sender configured for email", attempts[1].Error)
}

func TestDispatchKeepsOrderWithConcurrency(t *testing.T) {
	f := newFixture(generatorStub{}, Options{Concurrency: 3})

	res := f.dispatcher.Dispatch(context.Background(), incident, contacts)
	require.True(t, res.Success())

	for i, result := range res.Data.Results {
		assert.Equal(t, contacts[i].ID, result.ContactID)
	}
}

func TestSendTest(t *testing.T) {
	now := time.Date(2022, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(generatorStub{failFor: "Jane"}, Options{Now: func() time.Time { return now }})

	res := f.dispatcher.SendTest(context.Background(), "u1", contacts[:2])
	require.True(t, res.Success())

	assert.True(t, strings.HasPrefix(res.Data.IncidentID, "test_"))
	assert.Equal(t, 2, res.Data.SuccessfulAlerts, "test alerts never use message generation")
	for _, result := range res.Data.Results {
		assert.Equal(t, TestMessage, result.Message)
		require.Len(t, result.Attempts, 2)
		assert.Equal(t, models.SMS, result.Attempts[0].Channel)
		assert.Equal(t, models.Email, result.Attempts[1].Channel)
	}
	assert.Equal(t, 0, f.push.callCount())

	history, _ := f.log.History(context.Background(), "u1", 0)
	assert.Empty(t, history, "test alerts are not logged")

	empty := f.dispatcher.SendTest(context.Background(), "u1", nil)
	assert.Equal(t, models.PreconditionError, empty.Kind)
}

func TestPriority(t *testing.T) {
	assert.Equal(t, PriorityHigh, Priority(models.Incident{InteractionSummary: "I was Detained for an hour"}))
	assert.Equal(t, PriorityHigh, Priority(models.Incident{InteractionSummary: "officer used force"}))
	assert.Equal(t, PriorityMedium, Priority(models.Incident{InteractionSummary: "asked for ID"}))
}

func TestCancelIsAdvisory(t *testing.T) {
	f := newFixture(generatorStub{}, Options{})
	assert.Contains(t, f.dispatcher.Cancel("i1"), "cannot be recalled")
}

func TestDispatchIgnoresCallerCancellation(t *testing.T) {
	f := newFixture(generatorStub{}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := f.dispatcher.Dispatch(ctx, incident, contacts[:2])
	require.True(t, res.Success())
	assert.Equal(t, 2, res.Data.SuccessfulAlerts)

	for _, result := range res.Data.Results {
		assert.Empty(t, result.Error)
		require.Len(t, result.Attempts, 3)
		for _, attempt := range result.Attempts {
			assert.True(t, attempt.Success, attempt.Error)
		}
	}

	test := f.dispatcher.SendTest(ctx, "u1", contacts[:1])
	require.True(t, test.Success())
	for _, attempt := range test.Data.Results[0].Attempts {
		assert.True(t, attempt.Success, attempt.Error)
	}
}
