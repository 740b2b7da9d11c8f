package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/audit"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/config"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/guard"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/kitchen"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/logging"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/model"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/multilock"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/notify"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/permission"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/service"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "restaurant:", err)
		os.Exit(1)
	}
}

type backends struct {
	inventory    guard.Repository[model.InventoryItem]
	menu         guard.Repository[model.MenuItem]
	reservations guard.Repository[model.Reservation]
	orders       guard.Repository[model.Order]
	payments     guard.Repository[model.Payment]
	audit        audit.Sink
	close        func() error
}

func openBackends(ctx context.Context, cfg config.Config) (*backends, error) {
	if cfg.Backend == config.BackendMemory {
		return &backends{
			inventory:    store.NewMemory[model.InventoryItem](),
			menu:         store.NewMemory[model.MenuItem](),
			reservations: store.NewMemory[model.Reservation](),
			orders:       store.NewMemory[model.Order](),
			payments:     store.NewMemory[model.Payment](),
			audit:        audit.NewMemory(),
			close:        func() error { return nil },
		}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("could not reach redis at %s: %w", cfg.RedisAddr, err)
	}
	logging.Info("using redis backend", "addr", cfg.RedisAddr)
	return &backends{
		inventory:    store.NewRedis[model.InventoryItem](client, "restaurant:inventory"),
		menu:         store.NewRedis[model.MenuItem](client, "restaurant:menu"),
		reservations: store.NewRedis[model.Reservation](client, "restaurant:reservations"),
		orders:       store.NewRedis[model.Order](client, "restaurant:orders"),
		payments:     store.NewRedis[model.Payment](client, "restaurant:payments"),
		audit:        audit.NewRedis(client, "restaurant:audit"),
		close:        client.Close,
	}, nil
}

// openNotifier logs order updates and, when a broker is configured, also
// publishes them.
func openNotifier(cfg config.Config) (notify.Notifier, func(), error) {
	logNotifier := notify.NewLogNotifier()
	if cfg.AMQPURL == "" {
		return logNotifier, func() {}, nil
	}

	conn, ch, err := notify.SetupConn(cfg.AMQPURL, 5, 2*time.Second)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		ch.Close()
		conn.Close()
	}
	return notify.Fanout{logNotifier, notify.NewAMQPNotifier(ch)}, closeFn, nil
}

func run() error {
	cfg, err := config.Parse(os.Args[1:], os.Getenv)
	if err != nil {
		return err
	}

	err = logging.Init(logging.Config{
		Level:      logging.ParseLevel(cfg.LogLevel),
		OutputPath: cfg.LogFile,
		Format:     cfg.LogFormat,
	})
	if err != nil {
		return err
	}
	defer logging.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	notifier, closeNotifier, err := openNotifier(cfg)
	if err != nil {
		return err
	}
	defer closeNotifier()

	env := service.Env{Policy: permission.DefaultPolicy(), Audit: b.audit}
	writeTimeout := guard.WithTimeout(cfg.WriteTimeout)

	r := &restaurant{
		menu:         service.NewMenuService(b.menu, env, writeTimeout),
		reservations: service.NewReservationService(b.reservations, env, writeTimeout),
	}
	r.inventory = service.NewInventoryService(b.inventory, r.menu, env, writeTimeout)
	r.tables = service.NewTableService(service.TableConfig{
		Tables:      cfg.Tables,
		LockTimeout: cfg.LockTimeout,
		Retry: multilock.RetryPolicy{
			Attempts:       cfg.RetryAttempts,
			InitialBackoff: cfg.RetryBackoff,
		},
	}, r.reservations, env)
	r.orders = service.NewOrderService(service.OrderConfig{
		Kitchen: kitchen.Config{
			Workers:       cfg.KitchenWorkers,
			QueueCapacity: cfg.QueueCapacity,
			SubmitTimeout: cfg.SubmitTimeout,
			PollInterval:  cfg.PollInterval,
			CookTimer:     kitchen.PerItem(cfg.CookPerItem),
		},
		PipelineConcurrency: cfg.PipelineSlots,
		Tables:              cfg.Tables,
	}, b.orders, r.menu, notifier, env, writeTimeout)
	r.payments = service.NewPaymentService(r.orders, b.payments, env, writeTimeout)
	r.analytics = service.NewAnalyticsService(r.orders, env)

	if err := r.seed(ctx); err != nil {
		return err
	}
	if err := r.orders.Kitchen().Start(ctx); err != nil {
		return err
	}

	logging.Info("restaurant open",
		"backend", cfg.Backend,
		"tables", cfg.Tables,
		"kitchen_workers", cfg.KitchenWorkers,
	)
	report := r.runDemo(ctx, cfg)

	waitCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := r.orders.Pipeline().Wait(waitCtx); err != nil {
		logging.WithError(err).Warn("order pipelines still running at shutdown")
	}
	abandoned := r.orders.Kitchen().Shutdown(cfg.ShutdownGrace)

	stats := r.orders.Kitchen().Stats()
	fmt.Printf("\nOrders placed: %d, failed: %d\n", report.placed.Load(), report.failed.Load())
	fmt.Printf("Kitchen processed %d tickets, %d failed, %d abandoned\n", stats.Processed, stats.Failed, len(abandoned))
	fmt.Printf("Stock moves: %d reductions, %d restocks, %d rejected\n", report.reductions.Load(), report.restocks.Load(), report.rejected.Load())
	fmt.Printf("Table transfers: %d done, %d refused\n", report.transfers.Load(), report.refused.Load())
	fmt.Printf("Payments: %d\n", report.payments.Load())

	reportCtx, cancelReport := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancelReport()
	if err := r.printAnalytics(reportCtx); err != nil {
		logging.WithError(err).Warn("analytics unavailable")
	}
	return nil
}
