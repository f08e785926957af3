package handler

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/greenli8/idea-validator/internal/config"
	"github.com/greenli8/idea-validator/internal/middleware"
	"github.com/greenli8/idea-validator/internal/model"
	"github.com/greenli8/idea-validator/internal/queue"
)

// Purchase plans. Single and maker are one-time credit packs; lifetime flips
// the account to pro with unmetered analyses.
const (
	PlanSingle   = "single"
	PlanMaker    = "maker"
	PlanLifetime = "lifetime"

	makerPackCredits = 10
)

// billingAccounts is the slice of UserRepo the payment flow needs: customer
// bookkeeping for checkout and entitlement grants for fulfillment.
type billingAccounts interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	SetStripeCustomerID(ctx context.Context, userID uint64, customerID string) error
	SetPro(ctx context.Context, email string) error
	AddCreditsByEmail(ctx context.Context, email string, amount int) (model.User, error)
}

// PaymentHandler drives Stripe Checkout and the completion webhook.
type PaymentHandler struct {
	Cfg   config.Config
	Users billingAccounts
}

func NewPaymentHandler(cfg config.Config, users billingAccounts) *PaymentHandler {
	stripe.Key = cfg.StripeSecretKey
	return &PaymentHandler{Cfg: cfg, Users: users}
}

type checkoutReq struct {
	Plan string `json:"plan"`
}

func (h *PaymentHandler) priceFor(plan string) string {
	switch plan {
	case PlanSingle:
		return h.Cfg.StripePriceSingle
	case PlanMaker:
		return h.Cfg.StripePriceMaker
	case PlanLifetime:
		return h.Cfg.StripePriceLifetime
	}
	return ""
}

// CreateCheckout handles POST /v1/payments/checkout and returns the hosted
// Checkout URL for the requested plan.
func (h *PaymentHandler) CreateCheckout(c echo.Context) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if h.Cfg.StripeSecretKey == "" {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "billing not configured"})
	}

	var req checkoutReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body", "code": CodeValidation})
	}
	priceID := h.priceFor(req.Plan)
	if priceID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown plan", "code": CodeValidation})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	customerID, err := h.ensureStripeCustomer(ctx, userID)
	if err != nil {
		log.Printf("ensure stripe customer failed user=%d: %v", userID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to prepare billing", "code": CodeInternal})
	}

	frontend := strings.TrimRight(h.Cfg.FrontendURL, "/")
	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModePayment)),
		Customer: stripe.String(customerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(frontend + "/billing/success"),
		CancelURL:  stripe.String(frontend + "/billing/cancel"),
	}
	params.AddMetadata("plan", req.Plan)

	sess, err := session.New(params)
	if err != nil {
		log.Printf("stripe checkout session failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create checkout session", "code": CodeInternal})
	}
	return c.JSON(http.StatusOK, echo.Map{"url": sess.URL})
}

// Webhook handles POST /v1/payments/webhook. The endpoint is public; trust
// comes from the Stripe-Signature header alone.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	const maxBodyBytes = int64(65536)
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}
	if h.Cfg.StripeWebhookSecret == "" {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "webhook not configured"})
	}

	event, err := webhook.ConstructEventWithOptions(
		body,
		c.Request().Header.Get("Stripe-Signature"),
		h.Cfg.StripeWebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		log.Printf("stripe webhook signature failed: %v", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "signature verification failed"})
	}

	if event.Type != "checkout.session.completed" {
		return c.JSON(http.StatusOK, echo.Map{"status": "ignored"})
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		log.Printf("stripe session unmarshal failed: %v", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session payload"})
	}
	email := checkoutEmail(sess)
	if email == "" {
		log.Printf("stripe session %s missing customer email", sess.ID)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing customer email"})
	}
	plan := sess.Metadata["plan"]

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.fulfill(ctx, email, plan); err != nil {
		log.Printf("stripe fulfillment failed email=%s plan=%s: %v", email, plan, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "fulfillment failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// fulfill applies a completed purchase. Unknown plans fall back to a single
// credit rather than swallowing the customer's money.
func (h *PaymentHandler) fulfill(ctx context.Context, email, plan string) error {
	var (
		credits int
		pro     bool
		err     error
	)
	switch plan {
	case PlanLifetime:
		pro = true
		err = h.Users.SetPro(ctx, email)
	case PlanMaker:
		credits = makerPackCredits
		_, err = h.Users.AddCreditsByEmail(ctx, email, credits)
	default:
		credits = 1
		_, err = h.Users.AddCreditsByEmail(ctx, email, credits)
	}
	if err != nil {
		return err
	}

	go func() {
		pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queue.Publish(pctx, queue.QueuePaymentCompleted, queue.PaymentCompletedEvent{
			Email:          email,
			Plan:           plan,
			CreditsGranted: credits,
			ProGranted:     pro,
			CompletedAt:    time.Now().UTC().Format(time.RFC3339),
		})
	}()
	return nil
}

// ensureStripeCustomer finds or creates the Stripe Customer for a user and
// stores its id so repeat purchases reuse the same customer record.
func (h *PaymentHandler) ensureStripeCustomer(ctx context.Context, userID uint64) (string, error) {
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if u.StripeCustomerID != "" {
		return u.StripeCustomerID, nil
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(u.Email),
		Metadata: map[string]string{
			"user_id": strconv.FormatUint(userID, 10),
		},
	}
	cust, err := customer.New(params)
	if err != nil {
		return "", err
	}
	if err := h.Users.SetStripeCustomerID(ctx, userID, cust.ID); err != nil {
		return "", err
	}
	return cust.ID, nil
}

func checkoutEmail(sess stripe.CheckoutSession) string {
	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		return strings.ToLower(sess.CustomerDetails.Email)
	}
	if sess.CustomerEmail != "" {
		return strings.ToLower(sess.CustomerEmail)
	}
	return ""
}
