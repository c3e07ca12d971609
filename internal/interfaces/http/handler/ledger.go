package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	rentapp "github.com/rentledger/backend/internal/application/rent"
	"github.com/rentledger/backend/internal/domain/rent"
	"github.com/rentledger/backend/internal/infrastructure/export"
	"github.com/rentledger/backend/internal/infrastructure/logger"
	"github.com/rentledger/backend/internal/interfaces/http/dto"
	"github.com/rentledger/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// HeaderIdempotentReplay marks a response that returns an already recorded payment
const HeaderIdempotentReplay = "Idempotent-Replayed"

// maxIdempotencyKeyLength matches the payments.idempotency_key column
const maxIdempotencyKeyLength = 128

// LedgerHandler handles payment recording, balance queries, receipts and statements
type LedgerHandler struct {
	BaseHandler
	ledgerService *rentapp.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledgerService *rentapp.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService}
}

// RecordPayment handles POST /tenancies/:id/payments.
// New payments answer 201; an idempotent replay answers 200 with the original result.
func (h *LedgerHandler) RecordPayment(c *gin.Context) {
	tenancyID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var req dto.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	key := strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey))
	if len(key) > maxIdempotencyKeyLength {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidationRange,
			fmt.Sprintf("%s must be at most %d characters", middleware.HeaderIdempotencyKey, maxIdempotencyKeyLength))
		return
	}

	cmd := rentapp.RecordPaymentCommand{
		TenancyID:      tenancyID,
		AmountMinor:    req.AmountMinor,
		Currency:       req.Currency,
		Purpose:        req.Purpose,
		Method:         req.Method,
		BillingMonths:  req.BillingMonths,
		PaidAt:         req.PaidAt,
		Reference:      req.Reference,
		Note:           req.Note,
		IdempotencyKey: key,
	}
	if operatorID, ok := middleware.GetOperatorID(c); ok {
		cmd.RecordedBy = operatorID
	}

	ctx := logger.WithTenancyID(c.Request.Context(), tenancyID.String())
	result, err := h.ledgerService.RecordPayment(ctx, cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if result.Replayed {
		c.Header(HeaderIdempotentReplay, "true")
		h.Success(c, result)
		return
	}
	h.Created(c, result)
}

// RefundPayment handles POST /tenancies/:id/payments/:paymentId/refund
func (h *LedgerHandler) RefundPayment(c *gin.Context) {
	tenancyID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	paymentID, ok := h.pathUUID(c, "paymentId")
	if !ok {
		return
	}

	var req dto.RefundPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	ctx := logger.WithTenancyID(c.Request.Context(), tenancyID.String())
	result, err := h.ledgerService.RefundPayment(ctx, rentapp.RefundPaymentCommand{
		TenancyID: tenancyID,
		PaymentID: paymentID,
		Reason:    req.Reason,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Balance handles GET /tenancies/:id/balance?as_of=
func (h *LedgerHandler) Balance(c *gin.Context) {
	tenancyID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	asOf, ok := h.asOf(c)
	if !ok {
		return
	}

	balance, err := h.ledgerService.ComputeBalance(c.Request.Context(), tenancyID, asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, balance)
}

// OverdueMonths handles GET /tenancies/:id/overdue-months?as_of=
func (h *LedgerHandler) OverdueMonths(c *gin.Context) {
	tenancyID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	asOf, ok := h.asOf(c)
	if !ok {
		return
	}

	overdue, err := h.ledgerService.ListOverdueMonths(c.Request.Context(), tenancyID, asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, overdue)
}

// Payments handles GET /tenancies/:id/payments
func (h *LedgerHandler) Payments(c *gin.Context) {
	tenancyID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	payments, err := h.ledgerService.PaymentsFor(c.Request.Context(), tenancyID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payments)
}

// PaidMonths handles GET /tenancies/:id/paid-months
func (h *LedgerHandler) PaidMonths(c *gin.Context) {
	tenancyID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	paid, err := h.ledgerService.PaidMonths(c.Request.Context(), tenancyID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, paid)
}

// SuggestedAmount handles GET /tenancies/:id/suggested-amount?months=N
func (h *LedgerHandler) SuggestedAmount(c *gin.Context) {
	tenancyID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var q dto.SuggestedAmountQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}

	amount, err := h.ledgerService.SuggestedAmount(c.Request.Context(), tenancyID, q.Months)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, amount)
}

// Receipt handles GET /payments/:paymentId/receipt
func (h *LedgerHandler) Receipt(c *gin.Context) {
	paymentID, ok := h.pathUUID(c, "paymentId")
	if !ok {
		return
	}

	receipt, err := h.ledgerService.GetReceipt(c.Request.Context(), paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, receipt)
}

// Statement handles GET /tenancies/:id/statement.xlsx?as_of=
func (h *LedgerHandler) Statement(c *gin.Context) {
	tenancyID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	asOf, ok := h.asOf(c)
	if !ok {
		return
	}

	statement, err := h.ledgerService.Statement(c.Request.Context(), tenancyID, asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	wb, err := export.NewStatementWorkbook(statement)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer func() {
		if err := wb.Close(); err != nil {
			logger.L(c.Request.Context()).Warn("failed to close statement workbook", zap.Error(err))
		}
	}()

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName(statement)))
	c.Header("Content-Type", export.ContentType)
	c.Status(http.StatusOK)
	if _, err := wb.WriteTo(c.Writer); err != nil {
		// Headers are gone; the client sees a truncated download
		_ = c.Error(err)
		logger.L(c.Request.Context()).Error("failed to stream statement", zap.Error(err))
	}
}

func (h *LedgerHandler) asOf(c *gin.Context) (*time.Time, bool) {
	var q dto.AsOfQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return nil, false
	}
	asOf, err := rent.ParseAsOf(q.AsOf)
	if err != nil {
		h.HandleError(c, err)
		return nil, false
	}
	return asOf, true
}
