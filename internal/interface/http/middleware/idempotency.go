package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/library/internal/infrastructure/idempotency"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/response"
)

const (
	// IdempotencyKeyHeader 客户端为每次逻辑请求生成的唯一键
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotentReplayHeader 响应来自之前的执行结果
	IdempotentReplayHeader = "Idempotent-Replayed"
)

// IdempotencyStore 由 infrastructure/idempotency.Store 实现
type IdempotencyStore interface {
	// Save 仅在key空闲时写入，返回最终保存的条目和本次是否写入
	Save(key string, entry idempotency.Entry) (*idempotency.Entry, bool, error)
	Complete(key string, entry idempotency.Entry) error
	Release(key string) error
}

// Idempotency 带Idempotency-Key的POST请求重放第一次成功的响应
//
// 执行前先占住key，并发的同key请求只有一个会真正执行，其余返回409；
// 同一个key配不同请求体返回参数错误；存储故障时退化为普通请求
func Idempotency(store IdempotencyStore, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.Error(c, apperrors.ErrBindError)
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		// key按用户和路由隔离
		scoped := fmt.Sprintf("%d:%s:%s:%s", GetUserID(c), c.Request.Method, c.FullPath(), key)
		fingerprint := digest(c.Request.Method, c.Request.URL.Path, body)

		entry, reserved, err := store.Save(scoped, idempotency.Entry{Fingerprint: fingerprint, Pending: true})
		if err != nil {
			logger.WarnContext(c.Request.Context(), "idempotency reserve failed", "error", err)
			c.Next()
			return
		}
		if !reserved {
			switch {
			case entry.Fingerprint != fingerprint:
				response.Error(c, apperrors.New(apperrors.ErrCodeInvalidParams, "Idempotency-Key已用于不同的请求").WithField("idempotency_key"))
			case entry.Pending:
				response.Error(c, apperrors.ErrInProgress.WithField("idempotency_key"))
			default:
				c.Header(IdempotentReplayHeader, "true")
				c.Data(entry.Status, entry.ContentType, entry.Body)
			}
			c.Abort()
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		defer func() {
			// handler panic时释放key，panic继续交给Recovery
			if r := recover(); r != nil {
				_ = store.Release(scoped)
				panic(r)
			}
		}()
		c.Next()

		status := rec.Status()
		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			// 失败的请求允许用同一个key重试
			if err := store.Release(scoped); err != nil {
				logger.WarnContext(c.Request.Context(), "idempotency release failed", "error", err)
			}
			return
		}
		err = store.Complete(scoped, idempotency.Entry{
			Fingerprint: fingerprint,
			Status:      status,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.buf.Bytes(),
		})
		if err != nil {
			logger.WarnContext(c.Request.Context(), "idempotency save failed", "error", err)
		}
	}
}

func digest(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type bodyRecorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
