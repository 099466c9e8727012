package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestGetActivitiesByCanvasQueriesStore(t *testing.T) {
	h, _, mock := setupHandler(t)
	c, w := newTestContext()

	mock.ExpectQuery(`SELECT (.+) FROM activities WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "canvas_id", "conversation_id", "node_id", "user_id", "user_name",
			"type", "description", "priority", "metadata", "batch_id", "timestamp",
		}))

	c.Params = []gin.Param{{Key: "id", Value: "c1"}}
	c.Request = httptest.NewRequest(http.MethodGet, "/collaboration/activities/canvas/c1", nil)

	h.GetActivitiesByCanvas(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActivitySummaryByCanvas(t *testing.T) {
	h, _, mock := setupHandler(t)
	c, w := newTestContext()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM activities`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT type, COUNT`).
		WillReturnRows(sqlmock.NewRows([]string{"type", "count", "distinct_users", "latest"}))
	mock.ExpectQuery(`SELECT user_id, user_name, COUNT`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "user_name", "cnt"}))

	c.Params = []gin.Param{{Key: "id", Value: "c1"}}
	c.Request = httptest.NewRequest(http.MethodGet, "/collaboration/activities/canvas/c1/summary?hours=12", nil)

	h.GetActivitySummaryByCanvas(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCleanupActivitiesDelegatesToStore(t *testing.T) {
	h, _, mock := setupHandler(t)
	c, w := newTestContext()

	mock.ExpectExec(`DELETE FROM activities WHERE timestamp`).
		WillReturnResult(sqlmock.NewResult(0, 5))

	c.Request = httptest.NewRequest(http.MethodPost, "/collaboration/activities/cleanup", nil)

	h.CleanupActivities(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
