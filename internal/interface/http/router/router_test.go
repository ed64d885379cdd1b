package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appbook "github.com/xiebiao/library/internal/application/book"
	appborrowing "github.com/xiebiao/library/internal/application/borrowing"
	apppayment "github.com/xiebiao/library/internal/application/payment"
	appuser "github.com/xiebiao/library/internal/application/user"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/inventory"
	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/idempotency"
	"github.com/xiebiao/library/internal/infrastructure/notify"
	"github.com/xiebiao/library/internal/interface/http/dto"
	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/internal/testutil/memstore"
	"github.com/xiebiao/library/pkg/jwt"
)

// sessions 同时充当会话存储和Token黑名单
type sessions struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func (s *sessions) SaveSession(context.Context, uint, map[string]interface{}, time.Duration) error {
	return nil
}

func (s *sessions) DeleteSession(context.Context, uint) error { return nil }

func (s *sessions) AddToBlacklist(_ context.Context, token string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[token] = true
	return nil
}

func (s *sessions) IsInBlacklist(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revoked[token], nil
}

type server struct {
	engine *gin.Engine
	store  *memstore.Store
	gw     *memstore.Gateway
	jwt    *jwt.Manager
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Field   string          `json:"field"`
	Data    json.RawMessage `json:"data"`
}

type page struct {
	List  json.RawMessage `json:"list"`
	Total int64           `json:"total"`
}

func newServer(t *testing.T) *server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memstore.New()
	gw := memstore.NewGateway()
	notes := &memstore.Notifier{}
	sess := &sessions{revoked: make(map[string]bool)}
	jwtManager := jwt.NewManager("router-test-secret", 15*time.Minute, time.Hour)
	paging := dto.Paging{Default: 5, Max: 100}

	idem, err := idempotency.Open(filepath.Join(t.TempDir(), "idem.db"), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idem.Close() })

	binder := apppayment.NewSessionBinder(gw, store.Payments(), logger)
	ledger := inventory.NewLedger(store.Books())
	books := book.NewService(store.Books(), store)
	users := user.NewService(store.Users(), []string{"staff@example.com"})

	h := Handlers{
		User: handler.NewUserHandler(
			appuser.NewRegisterUseCase(users),
			appuser.NewLoginUseCase(users, jwtManager, sess, time.Hour, logger),
			appuser.NewLogoutUseCase(sess, jwtManager),
			appuser.NewRefreshTokenUseCase(store.Users(), jwtManager),
			appuser.NewProfileUseCase(store.Users()),
		),
		Book: handler.NewBookHandler(
			appbook.NewListBooksUseCase(books),
			appbook.NewGetBookUseCase(books),
			appbook.NewAddBookUseCase(books),
			appbook.NewUpdateBookUseCase(books),
			appbook.NewDeleteBookUseCase(books),
			paging,
		),
		Borrowing: handler.NewBorrowingHandler(
			appborrowing.NewCreateBorrowingUseCase(store, ledger, store.Borrowings(), store.Payments(), binder, notes, 4096, logger),
			appborrowing.NewReturnBorrowingUseCase(store, ledger, store.Borrowings(), store.Payments(), binder, notes, 4096, logger),
			appborrowing.NewGetBorrowingUseCase(store.Borrowings(), store.Books(), store.Payments()),
			appborrowing.NewListBorrowingsUseCase(store.Borrowings(), store.Books(), store.Payments()),
			apppayment.NewConfirmPaymentUseCase(store, store.Payments(), gw, notes, 4096, logger),
			apppayment.NewCancelPaymentUseCase(store.Payments(), 30*time.Minute),
			paging,
		),
		Payment: handler.NewPaymentHandler(
			apppayment.NewListPaymentsUseCase(store.Payments()),
			apppayment.NewGetPaymentUseCase(store.Payments(), store.Borrowings()),
			apppayment.NewCreatePaymentUseCase(store, store.Borrowings(), store.Books(), store.Payments(), binder),
			paging,
		),
		Notification: handler.NewNotificationHandler(notify.NewHub(logger), logger),
		Health:       handler.NewHealthHandler(map[string]handler.Pinger{}),
	}

	engine := New(Options{Mode: gin.TestMode}, h, middleware.NewAuthMiddleware(jwtManager, sess), idem, logger)
	return &server{engine: engine, store: store, gw: gw, jwt: jwtManager}
}

func (s *server) token(t *testing.T, userID uint, staff bool) string {
	t.Helper()
	pair, err := s.jwt.GenerateToken(jwt.Identity{
		UserID:   userID,
		Email:    fmt.Sprintf("user%d@example.com", userID),
		Nickname: fmt.Sprintf("user%d", userID),
		IsStaff:  staff,
	})
	require.NoError(t, err)
	return pair.AccessToken
}

func (s *server) do(t *testing.T, method, path, token string, body interface{}, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (s *server) createBook(t *testing.T, staffToken string, inventory int) appbook.BookView {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/v1/books", staffToken, map[string]interface{}{
		"title":     "Dune",
		"author":    "Frank Herbert",
		"cover":     "HARD",
		"inventory": inventory,
		"daily_fee": "1.50",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var view appbook.BookView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	return view
}

func dateFromNow(days int) string {
	return time.Now().AddDate(0, 0, days).Format(dto.DateLayout)
}

func TestRouter_AuthRequired(t *testing.T) {
	s := newServer(t)

	w, env := s.do(t, http.MethodGet, "/api/v1/books", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotZero(t, env.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/books", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_BookManagementIsStaffOnly(t *testing.T) {
	s := newServer(t)
	reader := s.token(t, 1, false)
	staff := s.token(t, 2, true)

	w, _ := s.do(t, http.MethodPost, "/api/v1/books", reader, map[string]interface{}{
		"title": "Dune", "author": "Frank Herbert", "cover": "HARD", "inventory": 1, "daily_fee": "1.50",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	created := s.createBook(t, staff, 3)
	assert.Equal(t, "Dune", created.Title)

	w, env := s.do(t, http.MethodGet, "/api/v1/books?page=1&page_size=10", reader, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var p page
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, int64(1), p.Total)

	path := fmt.Sprintf("/api/v1/books/%d", created.ID)
	w, _ = s.do(t, http.MethodDelete, path, reader, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodPatch, path, staff, map[string]interface{}{"inventory": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodDelete, path, staff, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, path, reader, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_BorrowReturnAndPay(t *testing.T) {
	s := newServer(t)
	reader := s.token(t, 1, false)
	other := s.token(t, 3, false)
	bk := s.createBook(t, s.token(t, 2, true), 1)

	// 借书
	w, env := s.do(t, http.MethodPost, "/api/v1/borrowings", reader, map[string]interface{}{
		"book": bk.ID, "expected_return_date": dateFromNow(4),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created appborrowing.BorrowingView
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.Len(t, created.Payments, 1)
	assert.Equal(t, "PENDING", created.Payments[0].Status)
	assert.Equal(t, "RENTAL_FEE", created.Payments[0].Kind)
	sessionID := created.Payments[0].SessionID
	require.NotEmpty(t, sessionID)

	// 最后一册已借出
	w, _ = s.do(t, http.MethodPost, "/api/v1/borrowings", other, map[string]interface{}{
		"book": bk.ID, "expected_return_date": dateFromNow(2),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 预计归还日必须晚于今天
	w, env = s.do(t, http.MethodPost, "/api/v1/borrowings", other, map[string]interface{}{
		"book": bk.ID, "expected_return_date": dateFromNow(0),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "expected_return_date", env.Field)

	path := fmt.Sprintf("/api/v1/borrowings/%d", created.ID)

	w, _ = s.do(t, http.MethodDelete, path, reader, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.NotEmpty(t, w.Header().Get("Allow"))

	w, _ = s.do(t, http.MethodGet, path, other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "他人的借阅按不存在处理")

	w, env = s.do(t, http.MethodGet, "/api/v1/borrowings", other, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var p page
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Zero(t, p.Total)

	// 回跳：未付款 → 拒绝；付款后 → PAID，重复回跳幂等
	success := fmt.Sprintf("%s/success?session_id=%s", path, sessionID)
	w, _ = s.do(t, http.MethodGet, success, "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.gw.Pay(sessionID)
	var confirmed apppayment.ConfirmPaymentResponse
	w, env = s.do(t, http.MethodGet, success, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, &confirmed))
	assert.False(t, confirmed.AlreadyPaid)
	assert.Equal(t, "PAID", confirmed.Payment.Status)

	w, env = s.do(t, http.MethodGet, success, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &confirmed))
	assert.True(t, confirmed.AlreadyPaid)

	w, _ = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/borrowings/%d/success", created.ID), "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "缺少session_id")

	// 还书，他人不可操作；实际归还日必须晚于今天
	late := map[string]string{"actual_return_date": dateFromNow(6)}
	w, _ = s.do(t, http.MethodPost, path+"/return", other, late)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(t, http.MethodPost, path+"/return", reader, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "actual_return_date", env.Field)

	// 逾期两天，租金已付，新建一条罚金记录
	w, env = s.do(t, http.MethodPost, path+"/return", reader, late)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var returned appborrowing.BorrowingView
	require.NoError(t, json.Unmarshal(env.Data, &returned))
	require.NotNil(t, returned.ActualReturnDate)
	require.Len(t, returned.Payments, 2)
	kinds := map[string]apppayment.PaymentView{}
	for _, pv := range returned.Payments {
		kinds[pv.Kind] = pv
	}
	assert.Equal(t, "PAID", kinds["RENTAL_FEE"].Status)
	assert.Equal(t, "PENDING", kinds["FINE"].Status)
	assert.Equal(t, "6.00", kinds["FINE"].AmountDue)

	w, _ = s.do(t, http.MethodPost, path+"/return", reader, late)
	assert.Equal(t, http.StatusBadRequest, w.Code, "重复归还")

	w, env = s.do(t, http.MethodGet, "/api/v1/payments", reader, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, int64(2), p.Total)
}

func TestRouter_IdempotentBorrowing(t *testing.T) {
	s := newServer(t)
	reader := s.token(t, 1, false)
	bk := s.createBook(t, s.token(t, 2, true), 2)
	body := map[string]interface{}{"book": bk.ID, "expected_return_date": dateFromNow(3)}

	first, firstEnv := s.do(t, http.MethodPost, "/api/v1/borrowings", reader, body, middleware.IdempotencyKeyHeader, "k-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	assert.Empty(t, first.Header().Get(middleware.IdempotentReplayHeader))

	second, secondEnv := s.do(t, http.MethodPost, "/api/v1/borrowings", reader, body, middleware.IdempotencyKeyHeader, "k-1")
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(middleware.IdempotentReplayHeader))
	assert.JSONEq(t, string(firstEnv.Data), string(secondEnv.Data))

	stored, err := s.store.Books().FindByID(context.Background(), bk.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Inventory, "重放不再扣库存")

	// 同一个键换了请求体
	changed := map[string]interface{}{"book": bk.ID, "expected_return_date": dateFromNow(5)}
	w, env := s.do(t, http.MethodPost, "/api/v1/borrowings", reader, changed, middleware.IdempotencyKeyHeader, "k-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "idempotency_key", env.Field)

	// 键按用户隔离
	w, _ = s.do(t, http.MethodPost, "/api/v1/borrowings", s.token(t, 4, false), body, middleware.IdempotencyKeyHeader, "k-1")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, w.Header().Get(middleware.IdempotentReplayHeader))
}

func TestRouter_RegisterLoginLogout(t *testing.T) {
	s := newServer(t)

	w, _ := s.do(t, http.MethodPost, "/api/v1/users/register", "", map[string]string{
		"email": "staff@example.com", "password": "secret123", "nickname": "librarian",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env := s.do(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{
		"email": "staff@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login appuser.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &login))
	assert.True(t, login.User.IsStaff)
	require.NotEmpty(t, login.AccessToken)

	w, env = s.do(t, http.MethodGet, "/api/v1/users/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me appuser.UserInfo
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "librarian", me.Nickname)

	w, _ = s.do(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{
		"email": "staff@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/users/logout", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/users/me", login.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "登出后Token进入黑名单")
}
