package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthReportsUpWhenBothStoresReachable(t *testing.T) {
	h, _, mock := setupHandler(t)
	c, w := newTestContext()

	mock.MatchExpectationsInOrder(false)
	c.Request = httptest.NewRequest(http.MethodGet, "/collaboration/health", nil)

	h.Health(c)

	assert.Equal(t, http.StatusOK, w.Code)
}
