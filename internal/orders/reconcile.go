package orders

import (
	"context"
	"fmt"

	"lumen_back_end/internal/models"
	"lumen_back_end/internal/services/payment"
)

// Outcome indique si l'appelant a effectué la transition de paiement.
type Outcome int

const (
	// OutcomeAlreadyProcessed : un autre appelant a déjà appliqué la transition (ou elle n'est plus possible).
	OutcomeAlreadyProcessed Outcome = iota
	// OutcomeApplied : l'appelant possède la transition et ses effets de bord.
	OutcomeApplied
)

func (o Outcome) String() string {
	if o == OutcomeApplied {
		return "applied"
	}
	return "already_processed"
}

// WebhookResult résume le traitement d'un webhook authentifié.
type WebhookResult struct {
	EventType   string
	OrderNumber string
	Outcome     Outcome
	Notified    bool
	Ignored     bool
}

// Reconcile applique un signal de paiement par compare-and-set sur la commande.
// succeeded=true : completed depuis pending ou failed. succeeded=false : failed depuis pending uniquement.
func (s *Service) Reconcile(ctx context.Context, orderNumber, providerPaymentID string, succeeded bool) (Outcome, error) {
	var (
		applied bool
		err     error
	)
	if succeeded {
		applied, err = s.orders.MarkPaid(ctx, orderNumber, providerPaymentID)
	} else {
		applied, err = s.orders.MarkFailed(ctx, orderNumber)
	}
	if err != nil {
		return OutcomeAlreadyProcessed, err
	}
	if !applied {
		s.log.Debug().Str("order", orderNumber).Bool("succeeded", succeeded).Msg("Paiement déjà rapproché, rien à faire")
		return OutcomeAlreadyProcessed, nil
	}

	if succeeded {
		s.log.Info().Str("order", orderNumber).Str("payment_id", providerPaymentID).Msg("✅ Paiement confirmé")
	} else {
		s.log.Info().Str("order", orderNumber).Msg("❌ Paiement marqué en échec")
	}
	return OutcomeApplied, nil
}

// ReconcileFromClientPoll interroge Cashfree après la redirection du client.
// Ce chemin n'envoie jamais d'email.
func (s *Service) ReconcileFromClientPoll(ctx context.Context, orderID string, user models.Customer) (*models.Order, error) {
	order, err := s.loadOwned(ctx, orderID, user)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == models.PaymentCompleted {
		return order, nil
	}

	attempts, err := s.gateway.ListPayments(ctx, order.OrderNumber)
	if err != nil {
		return nil, fmt.Errorf("vérification paiement %s: %w", order.OrderNumber, err)
	}

	if attempt, ok := firstSuccess(attempts); ok {
		outcome, err := s.Reconcile(ctx, order.OrderNumber, attempt.ProviderPaymentID, true)
		if err != nil {
			return nil, err
		}
		if outcome == OutcomeApplied {
			s.clearCart(ctx, order)
		}
		return s.orders.FindByID(ctx, orderID)
	}

	if _, err := s.Reconcile(ctx, order.OrderNumber, "", false); err != nil {
		return nil, err
	}
	current, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	// Le webhook peut avoir gagné entre-temps.
	if current.PaymentStatus == models.PaymentCompleted {
		return current, nil
	}
	return nil, ErrPaymentNotCompleted
}

func firstSuccess(attempts []payment.Attempt) (payment.Attempt, bool) {
	for _, a := range attempts {
		if a.Status == payment.StatusSuccess {
			return a, true
		}
	}
	return payment.Attempt{}, false
}

// ReconcileFromWebhook authentifie puis applique un webhook Cashfree.
// Seule une signature invalide produit ErrInvalidSignature ; un corps illisible est ignoré.
func (s *Service) ReconcileFromWebhook(ctx context.Context, rawBody []byte, timestamp, signature string) (WebhookResult, error) {
	if !payment.VerifySignature(rawBody, timestamp, signature, s.webhookSecret) {
		s.log.Warn().Str("timestamp", timestamp).Int("size", len(rawBody)).Msg("🚨 Webhook rejeté : signature invalide")
		return WebhookResult{}, ErrInvalidSignature
	}

	evt, err := payment.ParseWebhookEvent(rawBody)
	if err != nil {
		s.log.Warn().Err(err).Msg("⚠️ Webhook authentifié mais illisible, ignoré")
		return WebhookResult{Ignored: true}, nil
	}
	res := WebhookResult{EventType: evt.Type, OrderNumber: evt.OrderNumber()}
	if res.OrderNumber == "" {
		s.log.Warn().Str("type", evt.Type).Msg("⚠️ Webhook sans order_id, ignoré")
		res.Ignored = true
		return res, nil
	}

	switch evt.Type {
	case payment.EventPaymentSuccess:
		// Lecture avant la transition : le propriétaire doit pouvoir vider le panier quoi qu'il arrive ensuite.
		snapshot, err := s.orders.FindByNumber(ctx, res.OrderNumber)
		if err != nil {
			return res, err
		}
		outcome, err := s.Reconcile(ctx, res.OrderNumber, evt.PaymentID(), true)
		if err != nil {
			return res, err
		}
		res.Outcome = outcome
		notified, err := s.settlePaidOrder(ctx, snapshot, evt.PaymentID(), outcome == OutcomeApplied)
		res.Notified = notified
		if err != nil {
			return res, err
		}

	case payment.EventPaymentFailed, payment.EventPaymentUserDropped:
		outcome, err := s.Reconcile(ctx, res.OrderNumber, "", false)
		if err != nil {
			return res, err
		}
		res.Outcome = outcome

	default:
		s.log.Debug().Str("type", evt.Type).Msg("Webhook non géré, acquitté")
		res.Ignored = true
	}
	return res, nil
}

// settlePaidOrder vide le panier si l'appelant possède la transition, puis envoie
// les emails de confirmation si personne ne l'a encore fait.
func (s *Service) settlePaidOrder(ctx context.Context, snapshot *models.Order, paymentID string, ownsTransition bool) (bool, error) {
	if ownsTransition {
		s.clearCart(ctx, snapshot)
	}

	number := snapshot.OrderNumber
	claimed, err := s.orders.ClaimNotification(ctx, number)
	if err != nil {
		return false, fmt.Errorf("réservation notification %s: %w", number, err)
	}
	if !claimed {
		return false, nil
	}

	// notifiedAt est posé : les emails partent même si la relecture échoue.
	order, err := s.orders.FindByNumber(ctx, number)
	if err != nil {
		s.log.Warn().Err(err).Str("order", number).Msg("⚠️ Relecture commande échouée, emails depuis l'instantané")
		order = paidCopy(snapshot, paymentID)
	}
	s.notifier.NotifyAdminOrderPlaced(*order)
	s.notifier.NotifyCustomerOrderConfirmed(*order)
	s.log.Info().Str("order", number).Msg("📧 Emails de confirmation mis en file")
	return true, nil
}

// paidCopy applique localement les champs posés par MarkPaid.
func paidCopy(o *models.Order, paymentID string) *models.Order {
	cp := *o
	if cp.PaymentStatus != models.PaymentCompleted {
		cp.PaymentStatus = models.PaymentCompleted
		cp.PaymentID = paymentID
	}
	if cp.OrderStatus == models.OrderPending {
		cp.OrderStatus = models.OrderProcessing
	}
	return &cp
}

// clearCart ne fait pas échouer le paiement : une erreur est seulement journalisée.
func (s *Service) clearCart(ctx context.Context, order *models.Order) {
	if err := s.carts.Clear(context.WithoutCancel(ctx), order.UserID); err != nil {
		s.log.Error().Err(err).Str("order", order.OrderNumber).Str("user_id", order.UserID).
			Msg("❌ Impossible de vider le panier")
		return
	}
	s.log.Info().Str("order", order.OrderNumber).Msg("🧹 Panier vidé")
}
