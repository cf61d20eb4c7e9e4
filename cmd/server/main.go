package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"voucher-ledger/internal/allocator"
	allocatorhandler "voucher-ledger/internal/allocator/handler"
	"voucher-ledger/internal/auditlog"
	householdhandler "voucher-ledger/internal/household/handler"
	householdservice "voucher-ledger/internal/household/service"
	householdstore "voucher-ledger/internal/household/store"
	merchanthandler "voucher-ledger/internal/merchant/handler"
	merchantservice "voucher-ledger/internal/merchant/service"
	merchantstore "voucher-ledger/internal/merchant/store"
	"voucher-ledger/internal/pending"
	pendingstore "voucher-ledger/internal/pending/store"
	"voucher-ledger/internal/platform/config"
	"voucher-ledger/internal/platform/httpserver"
	"voucher-ledger/internal/platform/logger"
	"voucher-ledger/internal/platform/metrics"
	platformredis "voucher-ledger/internal/platform/redis"
	"voucher-ledger/internal/settlement"
	settlementhandler "voucher-ledger/internal/settlement/handler"
	settlementstore "voucher-ledger/internal/settlement/store"
	httptransport "voucher-ledger/internal/transport/http"
	vouchermodels "voucher-ledger/internal/voucher/models"
	voucherstore "voucher-ledger/internal/voucher/store"
)

const shutdownTimeout = 10 * time.Second

// main wires stores, services, and the HTTP surface by configuration and owns
// the process lifecycle. Business rules live in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	tranches, err := vouchermodels.LoadTranches(cfg.TranchePath)
	if err != nil {
		return err
	}

	ledger, err := buildLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer ledger.close()

	pendingStore, closePending, err := buildPendingStore(cfg)
	if err != nil {
		return err
	}
	defer closePending()

	notifier, closeNotifier, err := buildNotifier(cfg, log)
	if err != nil {
		return err
	}
	defer closeNotifier()

	auditSvc := auditlog.NewService(auditlog.NewWriter(cfg.AuditDir), notifier, log, m)
	householdSvc := householdservice.NewService(ledger.households, tranches.Labels(), log)
	merchantSvc := merchantservice.NewService(ledger.merchants, log)
	allocatorSvc := allocator.NewService(ledger.allocatorTx, tranches, log, m)
	settlementSvc := settlement.NewService(
		ledger.settlementTx,
		settlement.Stores{Vouchers: ledger.vouchers, History: ledger.history},
		tranches.Denominations(),
		ledger.households,
		ledger.merchants,
		auditSvc,
		log,
		m,
	)
	exchange := pending.NewExchange(pendingStore, tranches.Denominations(), cfg.PendingTTL, log, m)

	router := httptransport.NewRouter(log,
		householdhandler.New(householdSvc, log),
		merchanthandler.New(merchantSvc, log),
		allocatorhandler.New(allocatorSvc, log),
		settlementhandler.New(settlementSvc, exchange, log),
	)
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting voucher ledger",
		"addr", cfg.Addr,
		"store", cfg.StoreBackend,
		"pending_store", cfg.PendingBackend,
		"tranches", tranches.Labels(),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// ledger bundles the persistent stores with the transaction runners bound to
// the same backend.
type ledger struct {
	households   householdstore.Store
	merchants    merchantstore.Store
	vouchers     voucherstore.Store
	history      settlementstore.Store
	allocatorTx  allocator.Tx
	settlementTx settlement.Tx
	close        func()
}

func buildLedger(ctx context.Context, cfg config.Server) (*ledger, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		households := householdstore.NewInMemory()
		merchants := merchantstore.NewInMemory()
		vouchers := voucherstore.NewInMemory()
		history := settlementstore.NewInMemory()
		return &ledger{
			households:   households,
			merchants:    merchants,
			vouchers:     vouchers,
			history:      history,
			allocatorTx:  allocator.NewMemoryTx(allocator.Stores{Households: households, Vouchers: vouchers}),
			settlementTx: settlement.NewMemoryTx(settlement.Stores{Vouchers: vouchers, History: history}),
			close:        func() {},
		}, nil

	case config.StorePostgres:
		if cfg.PostgresDSN == "" {
			return nil, errors.New("VOUCHER_POSTGRES_DSN is required for the postgres store")
		}
		db, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return &ledger{
			households:   householdstore.NewPostgres(db),
			merchants:    merchantstore.NewPostgres(db),
			vouchers:     voucherstore.NewPostgres(db),
			history:      settlementstore.NewPostgres(db),
			allocatorTx:  allocator.NewPostgresTx(db),
			settlementTx: settlement.NewPostgresTx(db),
			close:        func() { db.Close() },
		}, nil

	default:
		return nil, errors.New("unknown VOUCHER_STORE backend: " + cfg.StoreBackend)
	}
}

func buildPendingStore(cfg config.Server) (pending.Store, func(), error) {
	switch cfg.PendingBackend {
	case config.PendingStoreFile:
		file, err := pendingstore.OpenFile(cfg.PendingLogPath, cfg.PendingTTL)
		if err != nil {
			return nil, nil, err
		}
		return file, func() { _ = file.Close() }, nil

	case config.PendingStoreRedis:
		client, err := platformredis.New(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		if client == nil {
			return nil, nil, errors.New("VOUCHER_REDIS_URL is required for the redis pending store")
		}
		return pendingstore.NewRedis(client.Client, cfg.PendingTTL), func() { _ = client.Close() }, nil

	case config.PendingStoreMemory:
		return pendingstore.NewInMemory(), func() {}, nil

	default:
		return nil, nil, errors.New("unknown VOUCHER_PENDING_STORE backend: " + cfg.PendingBackend)
	}
}

func buildNotifier(cfg config.Server, log *slog.Logger) (auditlog.Notifier, func(), error) {
	if len(cfg.KafkaBrokers) == 0 {
		return auditlog.NewLogNotifier(log), func() {}, nil
	}
	kn, err := auditlog.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	if err != nil {
		return nil, nil, err
	}
	return kn, func() { kn.Close() }, nil
}
