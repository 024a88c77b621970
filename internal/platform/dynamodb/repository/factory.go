package repository

import (
	"go.uber.org/zap"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/audit"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/bank"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/expense"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/invoice"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/ledger"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/payin"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/platform/dynamodb/client"
)

// Factory creates repository instances
type Factory struct {
	client    client.Client
	tableName string
	logger    *zap.Logger
}

// NewFactory creates a new repository factory
func NewFactory(client client.Client, tableName string, logger *zap.Logger) *Factory {
	return &Factory{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// PayInRepository returns an implementation of the payin.Repository interface
func (f *Factory) PayInRepository() payin.Repository {
	return NewDynamoDBPayInRepository(f.client, f.tableName, f.logger)
}

// LedgerRepository returns an implementation of the ledger.Repository interface
func (f *Factory) LedgerRepository() ledger.Repository {
	return NewDynamoDBLedgerRepository(f.client, f.tableName, f.logger)
}

// InvoiceRepository returns an implementation of the invoice.Repository interface
func (f *Factory) InvoiceRepository() invoice.Repository {
	return NewDynamoDBInvoiceRepository(f.client, f.tableName, f.logger)
}

// ExpenseRepository returns an implementation of the expense.Repository interface
func (f *Factory) ExpenseRepository() expense.Repository {
	return NewDynamoDBExpenseRepository(f.client, f.tableName, f.logger)
}

// BankRepository returns an implementation of the bank.Repository interface
func (f *Factory) BankRepository() bank.Repository {
	return NewDynamoDBBankRepository(f.client, f.tableName, f.logger)
}

// AuditRepository returns an implementation of the audit.Repository interface
func (f *Factory) AuditRepository() audit.Repository {
	return NewDynamoDBAuditRepository(f.client, f.tableName, f.logger)
}
