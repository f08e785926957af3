package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/greenli8/idea-validator/internal/config"
	"github.com/greenli8/idea-validator/internal/model"
)

const webhookSecret = "whsec_test"

// signStripePayload builds a Stripe-Signature header the same way Stripe's
// servers do: HMAC-SHA256 over "<timestamp>.<payload>".
func signStripePayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func postWebhook(t *testing.T, h *PaymentHandler, payload []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/payments/webhook", strings.NewReader(string(payload)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rec := httptest.NewRecorder()
	if err := h.Webhook(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

// fakeBilling records entitlement grants so fulfillment can be asserted
// without a database.
type fakeBilling struct {
	proEmails []string
	grants    map[string]int
}

func (f *fakeBilling) GetByID(context.Context, uint64) (model.User, error) {
	return model.User{}, sql.ErrNoRows
}

func (f *fakeBilling) SetStripeCustomerID(context.Context, uint64, string) error { return nil }

func (f *fakeBilling) SetPro(_ context.Context, email string) error {
	f.proEmails = append(f.proEmails, email)
	return nil
}

func (f *fakeBilling) AddCreditsByEmail(_ context.Context, email string, amount int) (model.User, error) {
	if f.grants == nil {
		f.grants = make(map[string]int)
	}
	f.grants[email] += amount
	return model.User{Email: email, Credits: f.grants[email]}, nil
}

func newPaymentHandler() *PaymentHandler {
	return NewPaymentHandler(config.Config{StripeWebhookSecret: webhookSecret}, &fakeBilling{})
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	rec := postWebhook(t, newPaymentHandler(), []byte(`{"type":"checkout.session.completed"}`), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestWebhookRejectsForgedSignature(t *testing.T) {
	payload := []byte(`{"type":"checkout.session.completed"}`)
	forged := signStripePayload(payload, "whsec_other", time.Now())

	rec := postWebhook(t, newPaymentHandler(), payload, forged)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "signature") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestWebhookRejectsStaleTimestamp(t *testing.T) {
	payload := []byte(`{"type":"checkout.session.completed"}`)
	stale := signStripePayload(payload, webhookSecret, time.Now().Add(-time.Hour))

	rec := postWebhook(t, newPaymentHandler(), payload, stale)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestWebhookIgnoresUnhandledEvents(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"invoice.paid","data":{"object":{}}}`)
	sig := signStripePayload(payload, webhookSecret, time.Now())

	rec := postWebhook(t, newPaymentHandler(), payload, sig)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "ignored") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestWebhookRejectsCompletedSessionWithoutEmail(t *testing.T) {
	payload := []byte(`{"id":"evt_2","type":"checkout.session.completed","data":{"object":{"id":"cs_1","metadata":{"plan":"maker"}}}}`)
	sig := signStripePayload(payload, webhookSecret, time.Now())

	rec := postWebhook(t, newPaymentHandler(), payload, sig)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "email") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func completedSessionPayload(email, plan string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":"evt_3","type":"checkout.session.completed","data":{"object":{"id":"cs_2","customer_details":{"email":%q},"metadata":{"plan":%q}}}}`,
		email, plan))
}

func TestWebhookFulfillsPlans(t *testing.T) {
	cases := []struct {
		plan        string
		wantCredits int
		wantPro     bool
	}{
		{PlanLifetime, 0, true},
		{PlanMaker, 10, false},
		{PlanSingle, 1, false},
		{"mystery_plan", 1, false}, // unknown plans still grant the single credit
	}
	for _, tc := range cases {
		t.Run(tc.plan, func(t *testing.T) {
			billing := &fakeBilling{}
			h := NewPaymentHandler(config.Config{StripeWebhookSecret: webhookSecret}, billing)

			payload := completedSessionPayload("Buyer@Example.com", tc.plan)
			sig := signStripePayload(payload, webhookSecret, time.Now())

			rec := postWebhook(t, h, payload, sig)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
			}

			if got := billing.grants["buyer@example.com"]; got != tc.wantCredits {
				t.Fatalf("credits granted = %d, want %d", got, tc.wantCredits)
			}
			if tc.wantPro {
				if len(billing.proEmails) != 1 || billing.proEmails[0] != "buyer@example.com" {
					t.Fatalf("proEmails = %v, want [buyer@example.com]", billing.proEmails)
				}
			} else if len(billing.proEmails) != 0 {
				t.Fatalf("proEmails = %v, want none", billing.proEmails)
			}
		})
	}
}

func TestPriceForPlan(t *testing.T) {
	h := NewPaymentHandler(config.Config{
		StripePriceSingle:   "price_single",
		StripePriceMaker:    "price_maker",
		StripePriceLifetime: "price_life",
	}, nil)

	cases := map[string]string{
		PlanSingle:   "price_single",
		PlanMaker:    "price_maker",
		PlanLifetime: "price_life",
		"unknown":    "",
	}
	for plan, want := range cases {
		if got := h.priceFor(plan); got != want {
			t.Errorf("priceFor(%q) = %q, want %q", plan, got, want)
		}
	}
}
