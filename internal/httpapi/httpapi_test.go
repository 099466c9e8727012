package httpapi

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/cathalhughes/canvas-collab/internal/activity"
	"github.com/cathalhughes/canvas-collab/internal/collab"
	"github.com/cathalhughes/canvas-collab/internal/config"
	"github.com/cathalhughes/canvas-collab/internal/dss"
	"github.com/cathalhughes/canvas-collab/internal/ess"
	"github.com/cathalhughes/canvas-collab/internal/eventbus"
	"github.com/cathalhughes/canvas-collab/internal/notify"
)

func testConfig() *config.Config {
	return &config.Config{
		PresenceTTLSeconds:    300,
		CursorTTLSeconds:      60,
		TypingTTLSeconds:      10,
		HeartbeatTTLSeconds:   30,
		CursorThrottleSeconds: 1,
		LockTimeoutSeconds:    30,
	}
}

func setupHandler(t *testing.T) (*Handler, *miniredis.Miniredis, sqlmock.Sqlmock) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	essClient, err := ess.New(ess.Config{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { essClient.Close() })

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := dss.NewForTesting(db)
	bus := eventbus.New()

	notifier, err := notify.NewPublisher(notify.Config{Enabled: false})
	require.NoError(t, err)

	collabSvc := collab.New(essClient, store, bus, testConfig())
	activitySvc := activity.New(store, bus, notifier, 200, 10, 30)

	return New(collabSvc, activitySvc, 30*time.Minute), mr, mock
}

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}
