//go:build wireinject
// +build wireinject

// Wire依赖注入配置，修改后执行 `wire gen ./cmd/api` 重新生成 wire_gen.go

package main

import (
	"log/slog"

	"github.com/google/wire"

	appbook "github.com/xiebiao/library/internal/application/book"
	appborrowing "github.com/xiebiao/library/internal/application/borrowing"
	"github.com/xiebiao/library/internal/application/monitor"
	apppayment "github.com/xiebiao/library/internal/application/payment"
	appuser "github.com/xiebiao/library/internal/application/user"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/inventory"
	"github.com/xiebiao/library/internal/domain/payment"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/infrastructure/idempotency"
	"github.com/xiebiao/library/internal/infrastructure/notify"
	infrapayment "github.com/xiebiao/library/internal/infrastructure/payment"
	"github.com/xiebiao/library/internal/infrastructure/persistence/database"
	"github.com/xiebiao/library/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/library/internal/infrastructure/query"
	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/internal/interface/http/router"
)

// infrastructureSet 数据库、Redis、幂等存储、支付网关、通知
var infrastructureSet = wire.NewSet(
	provideDB,
	provideRedis,
	provideIdempotencyStore,
	provideGateway,
	provideHub,
	provideDispatcher,
	provideNotifier,
	provideOverdueQuery,
	database.NewTxManager,
	database.NewPinger,
	redis.NewSessionStore,
	redis.NewLocker,
	wire.Bind(new(payment.Gateway), new(*infrapayment.StripeGateway)),
	wire.Bind(new(appborrowing.TxManager), new(*database.TxManager)),
	wire.Bind(new(apppayment.TxManager), new(*database.TxManager)),
	wire.Bind(new(book.TxManager), new(*database.TxManager)),
	wire.Bind(new(appuser.SessionStore), new(*redis.SessionStore)),
	wire.Bind(new(middleware.TokenBlacklist), new(*redis.SessionStore)),
	wire.Bind(new(middleware.IdempotencyStore), new(*idempotency.Store)),
	wire.Bind(new(monitor.OverdueQuery), new(*query.OverdueQuery)),
	wire.Bind(new(monitor.Locker), new(*redis.Locker)),
)

// repositorySet 仓储
var repositorySet = wire.NewSet(
	database.NewUserRepository,
	database.NewBookRepository,
	database.NewBorrowingRepository,
	database.NewPaymentRepository,
)

// domainSet 领域服务
var domainSet = wire.NewSet(
	provideUserService,
	book.NewService,
	inventory.NewLedger,
	wire.Bind(new(inventory.Store), new(book.Repository)),
)

// applicationSet 用例
var applicationSet = wire.NewSet(
	appuser.NewRegisterUseCase,
	provideLoginUseCase,
	appuser.NewLogoutUseCase,
	appuser.NewRefreshTokenUseCase,
	appuser.NewProfileUseCase,

	appbook.NewListBooksUseCase,
	appbook.NewGetBookUseCase,
	appbook.NewAddBookUseCase,
	appbook.NewUpdateBookUseCase,
	appbook.NewDeleteBookUseCase,

	apppayment.NewSessionBinder,
	provideCreateBorrowingUseCase,
	provideReturnBorrowingUseCase,
	appborrowing.NewGetBorrowingUseCase,
	appborrowing.NewListBorrowingsUseCase,

	apppayment.NewListPaymentsUseCase,
	apppayment.NewGetPaymentUseCase,
	apppayment.NewCreatePaymentUseCase,
	provideConfirmPaymentUseCase,
	provideCancelPaymentUseCase,

	provideOverdueReportUseCase,
	provideMonitorWorker,
)

// interfaceSet HTTP与gRPC
var interfaceSet = wire.NewSet(
	provideJWTManager,
	providePaging,
	provideRouterOptions,
	provideHealthChecks,
	provideGRPCServer,
	middleware.NewAuthMiddleware,
	handler.NewUserHandler,
	handler.NewBookHandler,
	handler.NewBorrowingHandler,
	handler.NewPaymentHandler,
	handler.NewNotificationHandler,
	handler.NewHealthHandler,
	wire.Bind(new(handler.WebSocketServer), new(*notify.Hub)),
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)

// InitializeApp 组装整个应用
// 返回的cleanup按依赖的逆序释放资源
func InitializeApp(cfg *config.Config, logger *slog.Logger) (*App, func(), error) {
	wire.Build(
		infrastructureSet,
		repositorySet,
		domainSet,
		applicationSet,
		interfaceSet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}
