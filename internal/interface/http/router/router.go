// Package router 组装gin引擎与路由
package router

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/internal/interface/http/middleware"
)

// Handlers 全部HTTP处理器
type Handlers struct {
	User         *handler.UserHandler
	Book         *handler.BookHandler
	Borrowing    *handler.BorrowingHandler
	Payment      *handler.PaymentHandler
	Notification *handler.NotificationHandler
	Health       *handler.HealthHandler
}

// Options 路由选项
type Options struct {
	Mode    string // debug | release | test
	Swagger bool
}

// New 创建gin引擎并注册路由
func New(
	opts Options,
	h Handlers,
	auth *middleware.AuthMiddleware,
	idem middleware.IdempotencyStore,
	logger *slog.Logger,
) *gin.Engine {
	switch opts.Mode {
	case gin.ReleaseMode, gin.TestMode:
		gin.SetMode(opts.Mode)
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestLogger(logger),
		middleware.Metrics(),
		middleware.Tracing(),
	)

	r.GET("/health", h.Health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if opts.Swagger {
		// http://localhost:8080/swagger/index.html
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")

	users := v1.Group("/users")
	{
		users.POST("/register", h.User.Register)
		users.POST("/login", h.User.Login)
		users.POST("/refresh", h.User.Refresh)
		users.POST("/logout", auth.RequireAuth(), h.User.Logout)
		users.GET("/me", auth.RequireAuth(), h.User.Me)
	}

	// 支付网关回跳是浏览器重定向，不带Token；靠会话ID与借阅ID的对应关系校验
	callbacks := v1.Group("/borrowings/:id")
	{
		callbacks.GET("/success", h.Borrowing.PaymentSuccess)
		callbacks.GET("/cancel", h.Borrowing.PaymentCancel)
	}

	authorized := v1.Group("")
	authorized.Use(auth.RequireAuth())

	idempotent := middleware.Idempotency(idem, logger)
	staff := middleware.RequireStaff()

	books := authorized.Group("/books")
	{
		books.GET("", h.Book.ListBooks)
		books.GET("/:id", h.Book.GetBook)
		books.POST("", staff, h.Book.CreateBook)
		books.PATCH("/:id", staff, h.Book.UpdateBook)
		books.DELETE("/:id", staff, h.Book.DeleteBook)
	}

	borrowings := authorized.Group("/borrowings")
	{
		borrowings.POST("", idempotent, h.Borrowing.CreateBorrowing)
		borrowings.GET("", h.Borrowing.ListBorrowings)
		borrowings.GET("/:id", h.Borrowing.GetBorrowing)
		borrowings.DELETE("/:id", h.Borrowing.DeleteBorrowing)
		borrowings.POST("/:id/return", h.Borrowing.ReturnBorrowing)
	}

	payments := authorized.Group("/payments")
	{
		payments.POST("", idempotent, h.Payment.CreatePayment)
		payments.GET("", h.Payment.ListPayments)
		payments.GET("/:id", h.Payment.GetPayment)
	}

	authorized.GET("/ws/notifications", staff, h.Notification.Stream)

	return r
}
