package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/invoice-api/internal/apperr"
	"github.com/iliyamo/invoice-api/internal/service"
)

// maxWebhookBody caps what is read from the processor.  Real events are a
// few kilobytes.
const maxWebhookBody = 1 << 20

// WebhookHandler receives processor callbacks.  The route must not sit
// behind any middleware that consumes or rewrites the body: the signature
// covers the exact bytes.
type WebhookHandler struct {
	Reconciler *service.Reconciler
}

func NewWebhookHandler(r *service.Reconciler) *WebhookHandler {
	return &WebhookHandler{Reconciler: r}
}

// Stripe handles POST /webhooks/stripe.
func (h *WebhookHandler) Stripe(c echo.Context) error {
	sig := c.Request().Header.Get("Stripe-Signature")
	if sig == "" {
		return apperr.New(apperr.InvalidSignature, "Missing Stripe-Signature header")
	}
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody+1))
	if err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "Unreadable webhook body", err)
	}
	if len(payload) > maxWebhookBody {
		return apperr.New(apperr.ValidationFailed, "Webhook payload too large")
	}
	if _, err := h.Reconciler.Reconcile(c.Request().Context(), payload, sig); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
