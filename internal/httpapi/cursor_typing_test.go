package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdateCursorAcceptsValidPosition(t *testing.T) {
	h, _, _ := setupHandler(t)
	c, w := newTestContext()

	body := `{"userId":"u1","user":{"id":"u1","name":"Alice"},"canvasId":"c1","x":12.5,"y":40}`
	c.Request = httptest.NewRequest(http.MethodPost, "/collaboration/cursor/update", strings.NewReader(body))

	h.UpdateCursor(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateCursorRejectsNegativeCoordinate(t *testing.T) {
	h, _, _ := setupHandler(t)
	c, w := newTestContext()

	body := `{"userId":"u1","user":{"id":"u1","name":"Alice"},"canvasId":"c1","x":-5,"y":0}`
	c.Request = httptest.NewRequest(http.MethodPost, "/collaboration/cursor/update", strings.NewReader(body))

	h.UpdateCursor(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateTypingTogglesIndicator(t *testing.T) {
	h, _, _ := setupHandler(t)
	c, w := newTestContext()

	body := `{"userId":"u1","user":{"id":"u1","name":"Alice"},"canvasId":"c1","nodeId":"n1","isTyping":true}`
	c.Request = httptest.NewRequest(http.MethodPost, "/collaboration/typing/update", strings.NewReader(body))

	h.UpdateTyping(c)

	assert.Equal(t, http.StatusOK, w.Code)
}
