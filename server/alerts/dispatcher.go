package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/Daskott/rightguard/colors"
	"github.com/Daskott/rightguard/server/alertlog"
	"github.com/Daskott/rightguard/server/channels"
	"github.com/Daskott/rightguard/server/logger"
	"github.com/Daskott/rightguard/server/messaging"
	"github.com/Daskott/rightguard/server/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency    = 1
	DefaultChannelTimeout = 5 * time.Second

	TestMessage  = "This is a test alert from RightGuard AI. Your emergency contact is working correctly. No action needed."
	TestLocation = "Test Location"

	PriorityHigh   = "high"
	PriorityMedium = "medium"
)

var (
	prefix = colors.Prefix("dispatcher")

	highPriorityKeywords = regexp.MustCompile(`(?i)arrest|detained|handcuffs|weapon|force`)
)

type Options struct {
	// Concurrency bounds how many contacts are alerted at once
	Concurrency    int
	ChannelTimeout time.Duration
	Policy         SuccessPolicy
	Now            func() time.Time
	Logger         *zap.SugaredLogger
}

// Dispatcher fans an alert out to contacts over every channel and aggregates the results
type Dispatcher struct {
	generator messaging.Generator
	senders   channels.Registry
	log       alertlog.Log
	opts      Options
	logg      *zap.SugaredLogger
}

func NewDispatcher(generator messaging.Generator, senders channels.Registry, log alertlog.Log, opts Options) *Dispatcher {
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.ChannelTimeout <= 0 {
		opts.ChannelTimeout = DefaultChannelTimeout
	}
	if opts.Policy == nil {
		opts.Policy = LenientPolicy
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Dispatcher{
		generator: generator,
		senders:   senders,
		log:       log,
		opts:      opts,
		logg:      logger.OrDefault(opts.Logger),
	}
}

// Dispatch alerts every contact about incident over sms, email & push and
// appends the outcome to the alert log. Cancelling ctx does not stop the
// dispatch, only the per-channel timeout bounds a send.
func (d *Dispatcher) Dispatch(ctx context.Context, incident models.Incident, contacts []models.EmergencyContact) models.Result[models.AlertOutcome] {
	if len(contacts) == 0 {
		return models.Err[models.AlertOutcome](models.PreconditionError, "no contacts to alert")
	}
	ctx = context.WithoutCancel(ctx)

	d.logg.Infof("%vdispatching alert for incident %v to %v contacts (priority=%v)",
		prefix, incident.ID, len(contacts), Priority(incident))

	outcome := d.run(ctx, incident, contacts, models.AllChannels, func(ctx context.Context, contact models.EmergencyContact) (string, error) {
		return d.generator.AlertMessage(ctx, incident, contact.Name)
	}, false)

	d.appendLog(ctx, incident, outcome)

	return models.Ok(outcome)
}

// SendTest sends the fixed test message to every contact over sms & email. Nothing is logged.
func (d *Dispatcher) SendTest(ctx context.Context, userID string, contacts []models.EmergencyContact) models.Result[models.AlertOutcome] {
	if len(contacts) == 0 {
		return models.Err[models.AlertOutcome](models.PreconditionError, "no contacts to alert")
	}
	ctx = context.WithoutCancel(ctx)

	now := d.opts.Now()
	incident := models.Incident{
		ID:                 fmt.Sprintf("test_%d", now.UnixMilli()),
		UserID:             userID,
		Timestamp:          now,
		Location:           TestLocation,
		InteractionSummary: TestMessage,
	}

	outcome := d.run(ctx, incident, contacts, models.TestChannels, func(context.Context, models.EmergencyContact) (string, error) {
		return TestMessage, nil
	}, true)

	return models.Ok(outcome)
}

// Cancel records the intent to cancel alerts for incidentID. In-flight sends
// are not interrupted.
func (d *Dispatcher) Cancel(incidentID string) string {
	d.logg.Warnf("%valert cancellation requested for incident %v, in-flight sends are not interrupted", prefix, incidentID)
	return fmt.Sprintf("cancellation of alerts for incident %s recorded; alerts already sent cannot be recalled", incidentID)
}

// History returns the user's dispatched alerts, newest first
func (d *Dispatcher) History(ctx context.Context, userID string) models.Result[[]models.AlertLogRecord] {
	if d.log == nil {
		return models.Ok([]models.AlertLogRecord{})
	}

	history, err := d.log.History(ctx, userID, alertlog.DefaultHistoryLimit)
	if err != nil {
		d.logg.Errorf("%vunable to read alert history: %v", prefix, err)
		return models.Err[[]models.AlertLogRecord](models.RemoteUnavailable, "unable to read alert history: %v", err)
	}
	return models.Ok(history)
}

// Priority is high when the summary mentions an arrest, detention, handcuffs, weapons or force
func Priority(incident models.Incident) string {
	if highPriorityKeywords.MatchString(incident.InteractionSummary) {
		return PriorityHigh
	}
	return PriorityMedium
}

type messageFunc func(ctx context.Context, contact models.EmergencyContact) (string, error)

// run processes contacts with at most opts.Concurrency in flight. Results are
// stored by index so the outcome keeps the order of contacts.
func (d *Dispatcher) run(ctx context.Context, incident models.Incident, contacts []models.EmergencyContact, chans []models.Channel, message messageFunc, test bool) models.AlertOutcome {
	results := make([]models.ContactAlertResult, len(contacts))

	group := errgroup.Group{}
	group.SetLimit(d.opts.Concurrency)

	for i, contact := range contacts {
		i, contact := i, contact
		group.Go(func() error {
			results[i] = d.alertContact(ctx, incident, contact, chans, message, test)
			return nil
		})
	}
	group.Wait()

	outcome := models.AlertOutcome{
		IncidentID:    incident.ID,
		Results:       results,
		TotalContacts: len(contacts),
	}
	for _, result := range results {
		if d.opts.Policy(result) {
			outcome.SuccessfulAlerts++
		}
	}

	return outcome
}

func (d *Dispatcher) alertContact(ctx context.Context, incident models.Incident, contact models.EmergencyContact, chans []models.Channel, message messageFunc, test bool) models.ContactAlertResult {
	result := models.ContactAlertResult{
		ContactID:   contact.ID,
		ContactName: contact.Name,
		Phone:       contact.Phone,
		Email:       contact.Email,
		Attempts:    []models.AlertAttempt{},
	}

	text, err := message(ctx, contact)
	if err != nil {
		d.logg.Errorf("%vmessage generation failed for contact %v: %v", prefix, contact.ID, err)
		result.Error = err.Error()
		return result
	}
	result.Message = text

	delivery := channels.Delivery{Contact: contact, Message: text, Incident: incident, Test: test}
	attempts := make([]models.AlertAttempt, len(chans))

	wg := sync.WaitGroup{}
	for i, channel := range chans {
		wg.Add(1)
		go func(i int, channel models.Channel) {
			defer wg.Done()
			attempts[i] = d.send(ctx, channel, delivery)
		}(i, channel)
	}
	wg.Wait()

	result.Attempts = attempts
	return result
}

type sendResult struct {
	messageID string
	err       error
}

// send runs one channel send under the channel timeout. A sender that ignores
// its context is abandoned once the timeout expires.
func (d *Dispatcher) send(ctx context.Context, channel models.Channel, delivery channels.Delivery) models.AlertAttempt {
	attempt := models.AlertAttempt{Channel: channel}

	sender, ok := d.senders[channel]
	if !ok {
		attempt.Error = fmt.Sprintf("no sender configured for %s", channel)
		attempt.Timestamp = d.opts.Now()
		return attempt
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.opts.ChannelTimeout)
	defer cancel()

	done := make(chan sendResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- sendResult{err: fmt.Errorf("%s sender panicked: %v", channel, r)}
			}
		}()

		messageID, err := sender.Send(sendCtx, delivery)
		done <- sendResult{messageID: messageID, err: err}
	}()

	var res sendResult
	select {
	case res = <-done:
	case <-sendCtx.Done():
		res = sendResult{err: sendCtx.Err()}
	}

	if errors.Is(res.err, context.DeadlineExceeded) {
		res.err = fmt.Errorf("%s send timed out after %v", channel, d.opts.ChannelTimeout)
	}

	attempt.Timestamp = d.opts.Now()
	if res.err != nil {
		d.logg.Warnf("%v%v to contact %v failed: %v", prefix, channel, delivery.Contact.ID, res.err)
		attempt.Error = res.err.Error()
		return attempt
	}

	attempt.Success = true
	attempt.MessageID = res.messageID
	if attempt.MessageID == "" {
		attempt.MessageID = channels.NewMessageID(channel)
	}
	return attempt
}

func (d *Dispatcher) appendLog(ctx context.Context, incident models.Incident, outcome models.AlertOutcome) {
	if d.log == nil {
		return
	}

	status := models.AlertStatusCompleted
	switch {
	case outcome.SuccessfulAlerts == 0:
		status = models.AlertStatusFailed
	case outcome.SuccessfulAlerts < outcome.TotalContacts:
		status = models.AlertStatusPartialFailure
	}

	details, err := json.Marshal(outcome.Results)
	if err != nil {
		d.logg.Errorf("%vunable to encode alert details: %v", prefix, err)
	}

	record := models.AlertLogRecord{
		IncidentID:       incident.ID,
		UserID:           incident.UserID,
		AlertTimestamp:   d.opts.Now(),
		ContactsNotified: outcome.TotalContacts,
		SuccessfulAlerts: outcome.SuccessfulAlerts,
		Status:           status,
		Details:          details,
	}

	if err := d.log.Append(context.WithoutCancel(ctx), record); err != nil {
		d.logg.Errorf("%vunable to append alert log for incident %v: %v", prefix, incident.ID, err)
	}
}
