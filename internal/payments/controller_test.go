package payments

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"cineticket/internal/orders"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newCallbackRouter(f *paymentFixture) *gin.Engine {
	controller := NewController(f.service, nil)
	r := gin.New()
	r.GET("/payments/momo/return", controller.MomoReturn)
	r.POST("/payments/momo/ipn", controller.MomoIPN)
	return r
}

func postIPN(t *testing.T, r *gin.Engine, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/momo/ipn", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestMomoIPN(t *testing.T) {
	f := newPaymentFixture(t)
	r := newCallbackRouter(f)
	txn := f.attempt(t)

	w := postIPN(t, r, f.callback(txn, 0, 180000))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, orders.StatusConfirmed, f.orders.status(f.order.ID))

	// duplicates are acknowledged too
	w = postIPN(t, r, f.callback(txn, 0, 180000))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestMomoIPNBadSignature(t *testing.T) {
	f := newPaymentFixture(t)
	r := newCallbackRouter(f)
	txn := f.attempt(t)
	cb := f.callback(txn, 0, 180000)
	cb.Signature = "deadbeef"

	w := postIPN(t, r, cb)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, orders.StatusPending, f.orders.status(f.order.ID))
}

func TestMomoReturn(t *testing.T) {
	f := newPaymentFixture(t)
	r := newCallbackRouter(f)
	txn := f.attempt(t)
	cb := f.callback(txn, 1006, 180000)

	q := url.Values{}
	q.Set("partnerCode", cb.PartnerCode)
	q.Set("orderId", cb.OrderID)
	q.Set("requestId", cb.RequestID)
	q.Set("amount", cb.Amount.String())
	q.Set("orderInfo", cb.OrderInfo)
	q.Set("orderType", cb.OrderType)
	q.Set("transId", cb.TransID.String())
	q.Set("resultCode", cb.ResultCode.String())
	q.Set("message", cb.Message)
	q.Set("payType", cb.PayType)
	q.Set("responseTime", cb.ResponseTime.String())
	q.Set("extraData", cb.ExtraData)
	q.Set("signature", cb.Signature)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/payments/momo/return?"+q.Encode(), nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Message string          `json:"message"`
		Data    ReconcileResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, OutcomeFailed, body.Data.Outcome)
	assert.Equal(t, "Payment failed", body.Message)
}
