package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/invoice-api/internal/apperr"
	"github.com/iliyamo/invoice-api/internal/middleware"
	"github.com/iliyamo/invoice-api/internal/model"
	"github.com/iliyamo/invoice-api/internal/service"
)

// PaymentHandler serves the pay endpoint.
type PaymentHandler struct {
	Payments *service.PaymentService
}

func NewPaymentHandler(p *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{Payments: p}
}

type payResp struct {
	ClientSecret string      `json:"clientSecret"`
	Amount       json.Number `json:"amount"`
	Currency     string      `json:"currency"`
}

// Pay opens a payment intent for the invoice in the path.
func (h *PaymentHandler) Pay(c echo.Context) error {
	invoiceID, err := strconv.ParseUint(c.Param("invoiceId"), 10, 64)
	if err != nil || invoiceID == 0 {
		return apperr.Validation("Validation failed",
			apperr.FieldError{Field: "invoiceId", Message: "invoiceId must be a positive integer"})
	}
	who, ok := middleware.IdentityFrom(c)
	if !ok {
		return apperr.Unauthenticated("Authentication required")
	}

	intent, err := h.Payments.CreateIntent(c.Request().Context(), invoiceID, service.Requester{UserID: who.UserID, Role: who.Role})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, payResp{
		ClientSecret: intent.ClientSecret,
		Amount:       json.Number(intent.Amount.StringFixed(model.MinorExponent(intent.Currency))),
		Currency:     intent.Currency,
	})
}
