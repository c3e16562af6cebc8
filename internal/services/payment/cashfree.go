package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	ProductionBaseURL = "https://api.cashfree.com/pg"
	SandboxBaseURL    = "https://sandbox.cashfree.com/pg"

	apiVersion = "2023-08-01"
	currency   = "INR"

	// StatusSuccess est le payment_status d'une tentative réussie.
	StatusSuccess = "SUCCESS"
)

// GatewayError signale un refus ou une indisponibilité de la passerelle.
type GatewayError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("cashfree %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("cashfree %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("cashfree %s: %s", e.Op, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Timeout indique si l'appel a expiré.
func (e *GatewayError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(e.Err, &ne) && ne.Timeout()
}

type Customer struct {
	ID    string
	Email string
	Phone string
	Name  string
}

type Session struct {
	SessionID string `json:"payment_session_id"`
	OrderID   string `json:"order_id"`
}

// Attempt est une tentative de paiement enregistrée par Cashfree pour une commande.
type Attempt struct {
	Status            string
	ProviderPaymentID string
}

type CashfreeOptions struct {
	AppID     string
	SecretKey string
	Env       string // "PROD" pour la production, sandbox sinon
	BaseURL   string // surcharge (tests)
	ClientURL string
	ServerURL string
	Timeout   time.Duration
}

// CashfreeClient enveloppe les deux endpoints PG utilisés par le cycle de vie des commandes.
// Aucun retry ici : c'est à l'appelant de décider.
type CashfreeClient struct {
	appID     string
	secretKey string
	baseURL   string
	clientURL string
	serverURL string
	http      *http.Client
}

func NewCashfreeClient(opts CashfreeOptions) *CashfreeClient {
	base := opts.BaseURL
	if base == "" {
		base = SandboxBaseURL
		if strings.EqualFold(opts.Env, "PROD") {
			base = ProductionBaseURL
		}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CashfreeClient{
		appID:     opts.AppID,
		secretKey: opts.SecretKey,
		baseURL:   strings.TrimRight(base, "/"),
		clientURL: strings.TrimRight(opts.ClientURL, "/"),
		serverURL: strings.TrimRight(opts.ServerURL, "/"),
		http:      &http.Client{Timeout: timeout},
	}
}

func (c *CashfreeClient) BaseURL() string { return c.baseURL }

type createOrderRequest struct {
	OrderID         string          `json:"order_id"`
	OrderAmount     float64         `json:"order_amount"`
	OrderCurrency   string          `json:"order_currency"`
	CustomerDetails customerDetails `json:"customer_details"`
	OrderMeta       orderMeta       `json:"order_meta"`
}

type customerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone"`
	CustomerName  string `json:"customer_name,omitempty"`
}

type orderMeta struct {
	ReturnURL string `json:"return_url"`
	NotifyURL string `json:"notify_url"`
}

type paymentEntity struct {
	CFPaymentID   FlexString `json:"cf_payment_id"`
	PaymentStatus string     `json:"payment_status"`
}

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Type    string `json:"type"`
}

// CreatePaymentSession crée une commande côté Cashfree et retourne l'identifiant de session.
func (c *CashfreeClient) CreatePaymentSession(ctx context.Context, orderNumber string, amount float64, customer Customer) (*Session, error) {
	body := createOrderRequest{
		OrderID:       orderNumber,
		OrderAmount:   amount,
		OrderCurrency: currency,
		CustomerDetails: customerDetails{
			CustomerID:    customer.ID,
			CustomerEmail: customer.Email,
			CustomerPhone: customer.Phone,
			CustomerName:  customer.Name,
		},
		OrderMeta: orderMeta{
			ReturnURL: c.clientURL + "/order-confirmation/" + url.PathEscape(orderNumber),
			NotifyURL: c.serverURL + "/api/orders/webhook",
		},
	}

	var session Session
	if err := c.do(ctx, "create order", http.MethodPost, "/orders", body, &session); err != nil {
		return nil, err
	}
	if session.SessionID == "" {
		return nil, &GatewayError{Op: "create order", Message: "payment_session_id absent de la réponse"}
	}
	return &session, nil
}

// ListPayments retourne toutes les tentatives de paiement connues pour la commande.
func (c *CashfreeClient) ListPayments(ctx context.Context, orderNumber string) ([]Attempt, error) {
	var entities []paymentEntity
	path := "/orders/" + url.PathEscape(orderNumber) + "/payments"
	if err := c.do(ctx, "list payments", http.MethodGet, path, nil, &entities); err != nil {
		return nil, err
	}
	attempts := make([]Attempt, 0, len(entities))
	for _, e := range entities {
		attempts = append(attempts, Attempt{Status: e.PaymentStatus, ProviderPaymentID: string(e.CFPaymentID)})
	}
	return attempts, nil
}

func (c *CashfreeClient) do(ctx context.Context, op, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return &GatewayError{Op: op, Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &GatewayError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-version", apiVersion)
	req.Header.Set("x-client-id", c.appID)
	req.Header.Set("x-client-secret", c.secretKey)

	res, err := c.http.Do(req)
	if err != nil {
		return &GatewayError{Op: op, Err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return &GatewayError{Op: op, Err: err}
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var apiErr apiError
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			msg = apiErr.Message
		}
		if msg == "" {
			msg = http.StatusText(res.StatusCode)
		}
		return &GatewayError{Op: op, StatusCode: res.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &GatewayError{Op: op, Err: fmt.Errorf("réponse illisible: %w", err)}
	}
	return nil
}

// FlexString accepte une chaîne ou un nombre JSON (cf_payment_id change de type selon la version d'API).
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}
