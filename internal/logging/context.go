package logging

import "log/slog"

// WithComponent returns a logger tagged with the subsystem name.
//
//	log := logging.WithComponent("kitchen")
//	log.Info("pool started", "workers", 4)
func WithComponent(component string) *slog.Logger {
	return GetLogger().With("component", component)
}

// WithOrder tags log lines with an order id.
func WithOrder(orderID string) *slog.Logger {
	return GetLogger().With("order_id", orderID)
}

// WithItem tags log lines with an inventory item id.
func WithItem(itemID string) *slog.Logger {
	return GetLogger().With("item_id", itemID)
}

// WithTable tags log lines with a table number.
func WithTable(table int) *slog.Logger {
	return GetLogger().With("table", table)
}

// WithWorker tags log lines with the pool and worker that emitted them.
func WithWorker(pool string, worker int) *slog.Logger {
	return GetLogger().With("pool", pool, "worker", worker)
}

// WithError includes err as a structured field.
//
//	logging.WithError(err).Error("audit append failed", "action", "RESTOCK")
func WithError(err error) *slog.Logger {
	return GetLogger().With("error", err.Error())
}
