// Package notify delivers customer and admin emails through the mail
// backend. Transition-attached emails are best-effort: the caller logs and
// swallows failures, never rolling back the status change they rode on.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"vehicle-rental-api/models"
)

// Notifier is the surface the reconciliation service depends on.
type Notifier interface {
	OrderDecision(ctx context.Context, orderID string, status models.OrderStatus) error
	NewOrderAlert(ctx context.Context, order models.Order) error
	PaymentReminder(ctx context.Context, orderID string) error
	RentalSummary(ctx context.Context, orderID string) error
}

type Mailer struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewMailer(baseURL, token string) *Mailer {
	return &Mailer{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (m *Mailer) post(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode mail payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("mail backend returned %d", resp.StatusCode)
	}
	return nil
}

// OrderDecision notifies the customer that their reservation was approved or
// rejected. The mail backend speaks approved/rejected, not the canonical enum.
func (m *Mailer) OrderDecision(ctx context.Context, orderID string, status models.OrderStatus) error {
	decision := "rejected"
	if status == models.StatusValidated {
		decision = "approved"
	}
	return m.post(ctx, "/orders/"+orderID+"/send-notification", map[string]string{"status": decision})
}

// NewOrderAlert notifies the admin of a freshly created reservation.
func (m *Mailer) NewOrderAlert(ctx context.Context, order models.Order) error {
	return m.post(ctx, "/orders/notify-admin", map[string]any{
		"orderId":       order.ID,
		"customerName":  order.CustomerName,
		"customerEmail": order.CustomerEmail,
		"customerPhone": order.CustomerPhone,
		"vehicleMake":   order.Vehicle.Brand,
		"vehicleModel":  order.Vehicle.Model,
		"pickupDate":    order.StartDate,
		"returnDate":    order.EndDate,
		"totalPrice":    order.TotalPrice,
	})
}

// PaymentReminder asks the mail backend to send a payment reminder. The
// admin triggers this explicitly, so the error is surfaced to the handler.
func (m *Mailer) PaymentReminder(ctx context.Context, orderID string) error {
	return m.post(ctx, "/orders/"+orderID+"/send-payment-reminder", map[string]string{})
}

// RentalSummary asks the mail backend to send the rental recap.
func (m *Mailer) RentalSummary(ctx context.Context, orderID string) error {
	return m.post(ctx, "/orders/"+orderID+"/send-rental-summary", map[string]string{})
}
