package main

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	appborrowing "github.com/xiebiao/library/internal/application/borrowing"
	"github.com/xiebiao/library/internal/application/monitor"
	apppayment "github.com/xiebiao/library/internal/application/payment"
	appuser "github.com/xiebiao/library/internal/application/user"
	"github.com/xiebiao/library/internal/domain/borrowing"
	"github.com/xiebiao/library/internal/domain/inventory"
	"github.com/xiebiao/library/internal/domain/notification"
	"github.com/xiebiao/library/internal/domain/payment"
	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/infrastructure/idempotency"
	"github.com/xiebiao/library/internal/infrastructure/notify"
	infrapayment "github.com/xiebiao/library/internal/infrastructure/payment"
	"github.com/xiebiao/library/internal/infrastructure/persistence/database"
	"github.com/xiebiao/library/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/library/internal/infrastructure/query"
	grpcapi "github.com/xiebiao/library/internal/interface/grpc"
	"github.com/xiebiao/library/internal/interface/http/dto"
	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/internal/interface/http/router"
	"github.com/xiebiao/library/pkg/jwt"
	"github.com/xiebiao/library/pkg/mq"
)

// App 进程内需要启动或关闭的组件
type App struct {
	Engine      *gin.Engine
	GRPC        *grpcapi.HealthServer
	Dispatcher  *notify.Dispatcher
	Hub         *notify.Hub
	Monitor     *monitor.Worker
	Idempotency *idempotency.Store
}

// ========================================
// 基础设施
// ========================================

func provideDB(cfg *config.Config, logger *slog.Logger) (*gorm.DB, func(), error) {
	db, err := database.NewDB(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, cleanup, nil
}

func provideRedis(cfg *config.Config, logger *slog.Logger) (*goredis.Client, func(), error) {
	client, err := redis.NewClient(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

func provideIdempotencyStore(cfg *config.Config) (*idempotency.Store, func(), error) {
	store, err := idempotency.Open(cfg.Idempotency.Path, cfg.Idempotency.TTL)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

func provideGateway(cfg *config.Config, logger *slog.Logger) *infrapayment.StripeGateway {
	return infrapayment.NewStripeGateway(cfg.Payment, cfg.Breaker, logger)
}

func provideOverdueQuery(db *gorm.DB, cfg *config.Config) (*query.OverdueQuery, error) {
	return query.NewOverdueQuery(db, cfg.Database.Driver)
}

// ========================================
// 通知
// ========================================

func provideHub(logger *slog.Logger) *notify.Hub {
	return notify.NewHub(logger)
}

// provideDispatcher 进程内投递：WebSocket总是本进程推送
// 配置了MQ时Telegram交给cmd/notifier消费投递
func provideDispatcher(cfg *config.Config, logger *slog.Logger, hub *notify.Hub) (*notify.Dispatcher, error) {
	senders := []notify.Sender{hub}
	if cfg.MQ.URL == "" && cfg.Telegram.Enabled() {
		tg, err := notify.NewTelegramSender(cfg.Telegram.Token, cfg.Telegram.ChatID, cfg.Telegram.MessageLimit)
		if err != nil {
			return nil, err
		}
		senders = append(senders, tg)
	}
	return notify.NewDispatcher(cfg.MQ.QueueSize, logger, senders...), nil
}

func provideNotifier(cfg *config.Config, logger *slog.Logger, dispatcher *notify.Dispatcher) (notification.Notifier, func(), error) {
	if cfg.MQ.URL == "" {
		return dispatcher, func() {}, nil
	}
	pub, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, notify.ExchangeType, logger)
	if err != nil {
		return nil, nil, err
	}
	fanout := notify.Fanout{notify.NewPublisher(pub, logger), dispatcher}
	return fanout, func() { _ = pub.Close() }, nil
}

// ========================================
// 领域与用例（需要从配置中取参数的）
// ========================================

func provideUserService(users user.Repository, cfg *config.Config) user.Service {
	return user.NewService(users, cfg.Admin.Emails)
}

func provideLoginUseCase(
	svc user.Service,
	jwtManager *jwt.Manager,
	sessions appuser.SessionStore,
	cfg *config.Config,
	logger *slog.Logger,
) *appuser.LoginUseCase {
	return appuser.NewLoginUseCase(svc, jwtManager, sessions, cfg.JWT.RefreshTokenExpire, logger)
}

func provideCreateBorrowingUseCase(
	tx appborrowing.TxManager,
	ledger *inventory.Ledger,
	borrowings borrowing.Repository,
	payments payment.Repository,
	binder *apppayment.SessionBinder,
	notifier notification.Notifier,
	cfg *config.Config,
	logger *slog.Logger,
) *appborrowing.CreateBorrowingUseCase {
	return appborrowing.NewCreateBorrowingUseCase(tx, ledger, borrowings, payments, binder, notifier, cfg.Telegram.MessageLimit, logger)
}

func provideReturnBorrowingUseCase(
	tx appborrowing.TxManager,
	ledger *inventory.Ledger,
	borrowings borrowing.Repository,
	payments payment.Repository,
	binder *apppayment.SessionBinder,
	notifier notification.Notifier,
	cfg *config.Config,
	logger *slog.Logger,
) *appborrowing.ReturnBorrowingUseCase {
	return appborrowing.NewReturnBorrowingUseCase(tx, ledger, borrowings, payments, binder, notifier, cfg.Telegram.MessageLimit, logger)
}

func provideConfirmPaymentUseCase(
	tx apppayment.TxManager,
	payments payment.Repository,
	gateway payment.Gateway,
	notifier notification.Notifier,
	cfg *config.Config,
	logger *slog.Logger,
) *apppayment.ConfirmPaymentUseCase {
	return apppayment.NewConfirmPaymentUseCase(tx, payments, gateway, notifier, cfg.Telegram.MessageLimit, logger)
}

func provideCancelPaymentUseCase(payments payment.Repository, cfg *config.Config) *apppayment.CancelPaymentUseCase {
	return apppayment.NewCancelPaymentUseCase(payments, cfg.Payment.SessionTTL)
}

func provideOverdueReportUseCase(
	q monitor.OverdueQuery,
	locker monitor.Locker,
	notifier notification.Notifier,
	cfg *config.Config,
	logger *slog.Logger,
) *monitor.OverdueReportUseCase {
	return monitor.NewOverdueReportUseCase(q, locker, notifier, cfg.Telegram.MessageLimit, logger)
}

func provideMonitorWorker(report *monitor.OverdueReportUseCase, cfg *config.Config, logger *slog.Logger) *monitor.Worker {
	return monitor.NewWorker(report, cfg.Monitor.Interval, logger)
}

// ========================================
// 接口层
// ========================================

func provideJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpire, cfg.JWT.RefreshTokenExpire)
}

func providePaging(cfg *config.Config) dto.Paging {
	return dto.Paging{Default: cfg.Pagination.PageSize, Max: cfg.Pagination.MaxPageSize}
}

// provideRouterOptions 生产环境不暴露Swagger
func provideRouterOptions(cfg *config.Config) router.Options {
	return router.Options{
		Mode:    cfg.Server.Mode,
		Swagger: cfg.Server.Mode != gin.ReleaseMode,
	}
}

func provideHealthChecks(db *database.Pinger, cache *redis.Locker) map[string]handler.Pinger {
	return map[string]handler.Pinger{"database": db, "redis": cache}
}

func provideGRPCServer(db *database.Pinger, cache *redis.Locker, cfg *config.Config, logger *slog.Logger) *grpcapi.HealthServer {
	checks := map[string]grpcapi.Checker{"database": db, "redis": cache}
	return grpcapi.NewHealthServer(checks, cfg.GRPC.CheckInterval, logger)
}
