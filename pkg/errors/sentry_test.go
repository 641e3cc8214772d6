package errors

import (
	"context"
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/richxcame/scooter-ride/pkg/common"
	"github.com/stretchr/testify/assert"
)

func TestShouldReportError(t *testing.T) {
	assert.False(t, ShouldReportError(nil))
	assert.False(t, ShouldReportError(common.NewInvalidInputError("scooter id is required")))
	assert.False(t, ShouldReportError(common.NewAlreadyActiveError(common.MsgRideInProgress)))
	assert.False(t, ShouldReportError(common.NewInsufficientBalanceError(common.MsgEndInsufficientBalance, nil)))
	assert.False(t, ShouldReportError(context.Canceled))

	assert.True(t, ShouldReportError(common.NewNetworkError(common.MsgEndFailed, stderrors.New("dial"))))
	assert.True(t, ShouldReportError(common.NewMalformedRecordError("bad record", nil)))
}

func TestInitSentryRequiresDSN(t *testing.T) {
	assert.Error(t, InitSentry(&SentryConfig{}))
}

func TestReportWithoutClientIsSafe(t *testing.T) {
	assert.Nil(t, Report(context.Background(), common.NewInvalidInputError("x"), nil))
	assert.NotPanics(t, func() {
		Report(context.Background(), common.NewNetworkError(common.MsgStartFailed, stderrors.New("timeout")), map[string]interface{}{"scooter_id": "S1"})
	})
}

func TestSanitizeHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer x")
	h.Set("Accept", "application/json")

	out := sanitizeHeaders(h)
	assert.Equal(t, "[REDACTED]", out["Authorization"])
	assert.Equal(t, "application/json", out["Accept"])
}
