package bootstrap

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/fulfillment/internal"
	"github.com/dukerupert/fulfillment/internal/domain"
	"github.com/dukerupert/fulfillment/internal/memstore"
	"github.com/dukerupert/fulfillment/internal/postgres"
	"github.com/dukerupert/fulfillment/migrations"
)

// Migration version tables, one per bounded context.
const (
	OrderingMigrations  = "goose_ordering"
	ShipmentMigrations  = "goose_shipment"
	InvoicingMigrations = "goose_invoicing"
)

// Stores holds the repositories of the contexts a process runs. Only the
// fields for those contexts are set.
type Stores struct {
	Orders    domain.OrderRepository
	Vouchers  domain.VoucherRepository
	Shipments domain.ShipmentRepository
	Invoices  domain.InvoiceRepository

	// Health pings the database; it always passes for the memory store.
	Health func(context.Context) error
	Close  CloseFunc
}

// Contexts selects which bounded contexts' stores to open.
type Contexts struct {
	Ordering  bool
	Shipment  bool
	Invoicing bool
}

// OpenStores opens Postgres (running the selected schemas' migrations) or
// the memory store, per cfg.Store.
func OpenStores(ctx context.Context, cfg *internal.Config, which Contexts, logger zerolog.Logger) (*Stores, error) {
	if cfg.Store == "memory" {
		logger.Warn().Msg("using in-memory store, data is lost on exit")
		return MemoryStores(which), nil
	}

	var schemas []Migration
	if which.Ordering {
		schemas = append(schemas, Migration{FS: migrations.Ordering, Table: OrderingMigrations})
	}
	if which.Shipment {
		schemas = append(schemas, Migration{FS: migrations.Shipment, Table: ShipmentMigrations})
	}
	if which.Invoicing {
		schemas = append(schemas, Migration{FS: migrations.Invoicing, Table: InvoicingMigrations})
	}

	pool, err := Postgres(ctx, cfg, logger, schemas...)
	if err != nil {
		return nil, err
	}
	return postgresStores(pool, which), nil
}

func postgresStores(pool *pgxpool.Pool, which Contexts) *Stores {
	s := &Stores{
		Health: pool.Ping,
		Close:  pool.Close,
	}
	if which.Ordering {
		s.Orders = postgres.NewOrderRepository(pool)
		s.Vouchers = postgres.NewVoucherRepository(pool)
	}
	if which.Shipment {
		s.Shipments = postgres.NewShipmentRepository(pool)
	}
	if which.Invoicing {
		s.Invoices = postgres.NewInvoiceRepository(pool)
	}
	return s
}

// MemoryStores returns empty in-memory repositories. The voucher store
// holds the same WELCOME10 voucher the ordering migration seeds.
func MemoryStores(which Contexts) *Stores {
	s := &Stores{
		Health: func(context.Context) error { return nil },
		Close:  func() {},
	}
	if which.Ordering {
		s.Orders = memstore.NewOrderRepository()
		s.Vouchers = memstore.NewVoucherRepository(domain.Voucher{
			Code:            "WELCOME10",
			DiscountPercent: decimal.NewFromInt(10),
			IsActive:        true,
		})
	}
	if which.Shipment {
		s.Shipments = memstore.NewShipmentRepository()
	}
	if which.Invoicing {
		s.Invoices = memstore.NewInvoiceRepository()
	}
	return s
}
