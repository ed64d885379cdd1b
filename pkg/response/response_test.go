package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

func TestHTTPStatus(t *testing.T) {
	cases := map[int]int{
		apperrors.ErrCodeInvalidDate:        http.StatusBadRequest,
		apperrors.ErrCodeOutOfStock:         http.StatusBadRequest,
		apperrors.ErrCodeAlreadyReturned:    http.StatusBadRequest,
		apperrors.ErrCodeInvalidParams:      http.StatusBadRequest,
		apperrors.ErrCodeUnauthorized:       http.StatusUnauthorized,
		apperrors.ErrCodeForbidden:          http.StatusForbidden,
		apperrors.ErrCodeBorrowingNotFound:  http.StatusNotFound,
		apperrors.ErrCodeMethodNotAllowed:   http.StatusMethodNotAllowed,
		apperrors.ErrCodeInProgress:         http.StatusConflict,
		apperrors.ErrCodeGatewayUnavailable: http.StatusServiceUnavailable,
		apperrors.ErrCodeDatabaseError:      http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatus(code), "code=%d", code)
	}
}

func TestError_CarriesField(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	Error(c, apperrors.ErrInvalidDate.WithField("expected_return_date"))

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apperrors.ErrCodeInvalidDate, body.Code)
	assert.Equal(t, "expected_return_date", body.Field)
}

func TestNewPageData(t *testing.T) {
	p := NewPageData([]int{1, 2}, 11, 2, 5)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 0, NewPageData(nil, 0, 1, 0).TotalPages)
}
