package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"lumen_back_end/internal/models"
)

const (
	kindAdmin    = "admin"
	kindCustomer = "client"

	defaultSendTimeout = 30 * time.Second
)

type Options struct {
	AdminEmail  string
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
	Logger      *zerolog.Logger
}

type job struct {
	kind  string
	order models.Order
}

// Dispatcher met les emails de commande en file et les envoie depuis un pool de workers.
// Les appels Notify* ne bloquent jamais : file pleine = job abandonné et journalisé.
type Dispatcher struct {
	mailer      Mailer
	adminEmail  string
	sendTimeout time.Duration
	log         zerolog.Logger

	jobs    chan job
	errs    chan error
	group   errgroup.Group
	drained chan struct{}
	stopped chan struct{}

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

func NewDispatcher(mailer Mailer, opts Options) *Dispatcher {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 100
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	base := log.Logger
	if opts.Logger != nil {
		base = *opts.Logger
	}

	d := &Dispatcher{
		mailer:      mailer,
		adminEmail:  opts.AdminEmail,
		sendTimeout: opts.SendTimeout,
		log:         base.With().Str("component", "notification").Logger(),
		jobs:        make(chan job, opts.QueueSize),
		errs:        make(chan error, opts.Workers),
		drained:     make(chan struct{}),
		stopped:     make(chan struct{}),
	}

	for i := 0; i < opts.Workers; i++ {
		d.group.Go(d.work)
	}
	go d.drainErrors()
	return d
}

func (d *Dispatcher) NotifyAdminOrderPlaced(order models.Order) {
	d.enqueue(job{kind: kindAdmin, order: order})
}

func (d *Dispatcher) NotifyCustomerOrderConfirmed(order models.Order) {
	d.enqueue(job{kind: kindCustomer, order: order})
}

func (d *Dispatcher) enqueue(j job) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn().Str("kind", j.kind).Str("order", j.order.OrderNumber).Msg("⚠️ Dispatcher arrêté, email ignoré")
		return
	}
	select {
	case d.jobs <- j:
	default:
		d.log.Warn().Str("kind", j.kind).Str("order", j.order.OrderNumber).Msg("⚠️ File d'emails pleine, email abandonné")
	}
}

func (d *Dispatcher) work() error {
	for j := range d.jobs {
		if err := d.send(j); err != nil {
			d.errs <- fmt.Errorf("email %s commande %s: %w", j.kind, j.order.OrderNumber, err)
			continue
		}
		d.log.Info().Str("kind", j.kind).Str("order", j.order.OrderNumber).Msg("📧 Email envoyé")
	}
	return nil
}

func (d *Dispatcher) send(j job) error {
	var (
		msg Message
		err error
	)
	switch j.kind {
	case kindAdmin:
		if d.adminEmail == "" {
			return errors.New("ADMIN_EMAIL non configuré")
		}
		msg, err = AdminOrderPlaced(d.adminEmail, j.order)
	default:
		if j.order.CustomerEmail == "" {
			return errors.New("email client absent")
		}
		msg, err = CustomerOrderConfirmed(j.order)
	}
	if err != nil {
		return fmt.Errorf("rendu du template: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()
	return d.mailer.Send(ctx, msg)
}

func (d *Dispatcher) drainErrors() {
	defer close(d.drained)
	for err := range d.errs {
		d.log.Error().Err(err).Msg("❌ Échec d'envoi d'email")
	}
}

// Close refuse les nouveaux jobs, laisse les workers vider la file puis attend leur fin
// (ou l'expiration de ctx).
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.jobs)
		d.mu.Unlock()

		go func() {
			_ = d.group.Wait()
			close(d.errs)
			<-d.drained
			close(d.stopped)
		}()
	})

	select {
	case <-d.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
