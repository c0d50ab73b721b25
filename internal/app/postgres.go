package app

import (
	"context"

	"backoffice/internal/domain/notification"
	"backoffice/internal/infrastructure/storage/postgres"
	"backoffice/internal/infrastructure/storage/postgres/auth_repo"
	"backoffice/internal/infrastructure/storage/postgres/catalog_repo"
	"backoffice/internal/infrastructure/storage/postgres/document_repo"
	"backoffice/internal/infrastructure/storage/postgres/register_repo"
	"backoffice/pkg/numerator"
)

// PostgresBackends builds backends on a pgx transaction manager.
func PostgresBackends(txm *postgres.TxManager, notifier notification.Notifier) (Backends, error) {
	recorder, err := postgres.NewAuditRecorder(txm)
	if err != nil {
		return Backends{}, err
	}

	numbers := numerator.NewWithProvider(numerator.ProviderFunc(func(ctx context.Context) numerator.Querier {
		return txm.GetQuerier(ctx)
	}))

	return Backends{
		Tx:               txm,
		Numbers:          numbers,
		Items:            catalog_repo.NewItemRepo(txm),
		Warehouses:       catalog_repo.NewWarehouseRepo(txm),
		Customers:        catalog_repo.NewCustomerRepo(txm),
		DeliveryNotes:    document_repo.NewDeliveryNoteRepo(txm),
		StockCorrections: document_repo.NewStockCorrectionRepo(txm),
		SalesInvoices:    document_repo.NewSalesInvoiceRepo(txm),
		Stock:            register_repo.NewStockRepo(txm),
		Journal:          register_repo.NewJournalRepo(txm),
		Directory:        auth_repo.NewDirectoryRepo(txm),
		Notifier:         notifier,
		Audit:            recorder,
	}, nil
}
