package router

import (
	"github.com/rentledger/backend/internal/interfaces/http/handler"
)

// TenancyRoutes builds the /tenancies group: lifecycle, ledger writes and ledger queries
func TenancyRoutes(tenancies *handler.TenancyHandler, ledger *handler.LedgerHandler) *DomainGroup {
	g := NewDomainGroup("/tenancies")
	g.POST("", tenancies.Create)
	g.GET("", tenancies.List)
	g.GET("/:id", tenancies.GetByID)
	g.POST("/:id/terminate", tenancies.Terminate)

	g.GET("/:id/balance", ledger.Balance)
	g.GET("/:id/overdue-months", ledger.OverdueMonths)
	g.GET("/:id/paid-months", ledger.PaidMonths)
	g.GET("/:id/suggested-amount", ledger.SuggestedAmount)
	g.GET("/:id/statement.xlsx", ledger.Statement)

	payments := g.Group("/:id/payments")
	payments.GET("", ledger.Payments)
	payments.POST("", ledger.RecordPayment)
	payments.POST("/:paymentId/refund", ledger.RefundPayment)
	return g
}

// PaymentRoutes builds the /payments group
func PaymentRoutes(ledger *handler.LedgerHandler) *DomainGroup {
	g := NewDomainGroup("/payments")
	g.GET("/:paymentId/receipt", ledger.Receipt)
	return g
}
