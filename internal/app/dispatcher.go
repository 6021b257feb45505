package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"degree_plan_review/internal/domain/notification"
	"degree_plan_review/internal/domain/user"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultQueueSize   = 256
	defaultSendTimeout = 30 * time.Second
)

// Dispatcher delivers notices on a background worker so that a slow or failing channel
// never holds up a committed review decision. Delivery is attempted once per channel.
// Student contact details and the reviewer name are looked up on the worker.
type Dispatcher struct {
	users       user.Repository // nil delivers notices as dispatched
	senders     []notification.Sender
	queue       chan notification.Notice
	sendTimeout time.Duration
	logger      *logrus.Entry

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

func NewDispatcher(logger *logrus.Entry, users user.Repository, queueSize int, sendTimeout time.Duration, senders ...notification.Sender) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	return &Dispatcher{
		users:       users,
		senders:     senders,
		queue:       make(chan notification.Notice, queueSize),
		sendTimeout: sendTimeout,
		logger:      logger,
	}
}

// Start launches the delivery worker. Calling it twice is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	d.wg.Add(1)
	go d.run()
	d.logger.WithField("channels", len(d.senders)).Info("Notification dispatcher started")
}

// Dispatch queues n. When the queue is full or the dispatcher is stopped the notice is
// dropped with a warning.
func (d *Dispatcher) Dispatch(n notification.Notice) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	entry := d.logger.WithFields(logrus.Fields{
		"notice_id":      n.ID.String(),
		"degree_plan_id": n.DegreePlanID,
		"student_id":     n.StudentID,
	})
	if d.closed {
		entry.Warn("Dispatcher stopped, dropping review notice")
		return
	}
	select {
	case d.queue <- n:
		entry.Debug("Review notice queued")
	default:
		entry.Warn("Notification queue full, dropping review notice")
	}
}

// Stop refuses new notices, drains the queue and waits for the worker to exit.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		// Nothing is draining; deliver what was queued before Start.
		for n := range d.queue {
			d.deliver(n)
		}
		return
	}
	d.wg.Wait()
	d.logger.Info("Notification dispatcher stopped")
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for n := range d.queue {
		d.deliver(n)
	}
}

func (d *Dispatcher) deliver(n notification.Notice) {
	entry := d.logger.WithFields(logrus.Fields{
		"notice_id":      n.ID.String(),
		"degree_plan_id": n.DegreePlanID,
		"student_id":     n.StudentID,
		"stage":          n.Stage,
		"approved":       n.Approved,
	})

	if len(d.senders) == 0 {
		entry.WithField("subject", n.Subject()).Info("No notification channel configured, review notice logged only")
		return
	}
	if err := d.address(&n, entry); err != nil {
		entry.WithError(err).Warn("Could not load student for review notice, skipping notification")
		return
	}

	for _, s := range d.senders {
		ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
		err := safeSend(ctx, s, n)
		cancel()
		if err != nil {
			entry.WithError(err).WithField("channel", s.Name()).Error("Failed to deliver review notice")
			continue
		}
		entry.WithField("channel", s.Name()).Info("Review notice delivered")
	}
}

// address fills the student's contact details and the reviewer's name.
func (d *Dispatcher) address(n *notification.Notice, entry *logrus.Entry) error {
	if d.users == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	student, err := d.users.GetByID(ctx, n.StudentID)
	if err != nil {
		return fmt.Errorf("load student %d: %w", n.StudentID, err)
	}
	n.StudentName = student.FirstName
	n.StudentEmail = student.Email
	if student.TelegramID.Valid {
		n.StudentTelegramID = student.TelegramID.Int64
	}

	if n.ReviewerID == 0 || n.ReviewerName != "" {
		return nil
	}
	reviewer, err := d.users.GetByID(ctx, n.ReviewerID)
	if err != nil {
		entry.WithError(err).WithField("reviewer_id", n.ReviewerID).Debug("Could not load reviewer name for review notice")
		return nil
	}
	n.ReviewerName = reviewer.FullName()
	return nil
}

func safeSend(ctx context.Context, s notification.Sender, n notification.Notice) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sender %s panicked: %v", s.Name(), r)
		}
	}()
	return s.Send(ctx, n)
}
