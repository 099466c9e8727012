package errors

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockAlreadyHeldCarriesCurrentLock(t *testing.T) {
	err := LockAlreadyHeld(map[string]string{"userId": "alice"})
	assert.Equal(t, CodeLockAlreadyHeld, err.Code)
	assert.Equal(t, http.StatusConflict, err.StatusCode)

	var data struct {
		CurrentLock struct {
			UserID string `json:"userId"`
		} `json:"currentLock"`
	}
	require := assert.New(t)
	require.NoError(json.Unmarshal(err.Data, &data))
	require.Equal("alice", data.CurrentLock.UserID)
}

func TestStatusForCodeMapping(t *testing.T) {
	cases := map[string]int{
		CodeInvalidInput:       http.StatusBadRequest,
		CodeLockNotFound:       http.StatusNotFound,
		CodeLockNotOwned:       http.StatusConflict,
		CodeThrottleLimit:      http.StatusTooManyRequests,
		CodeESSConnectionError: http.StatusServiceUnavailable,
		CodeDatabaseError:      http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, New(code, "x").StatusCode, code)
	}
}

func TestToResponseOmitsStatusCode(t *testing.T) {
	err := LockNotOwned("bob")
	resp := err.ToResponse()
	assert.Equal(t, CodeLockNotOwned, resp.Code)
	assert.Contains(t, resp.Details, "bob")
}

func TestErrorStringIncludesDetails(t *testing.T) {
	err := Wrap(CodeDatabaseError, "insert failed", assertErr("connection reset"))
	assert.Contains(t, err.Error(), "connection reset")
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
