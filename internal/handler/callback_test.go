package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abanremit/mpesa-relay/internal/daraja"
	"github.com/abanremit/mpesa-relay/internal/service"
)

type mockReconciler struct {
	received *daraja.STKCallback
	ack      service.Ack
	err      error
}

func (m *mockReconciler) Reconcile(_ context.Context, cb *daraja.STKCallback) (service.Ack, error) {
	m.received = cb
	return m.ack, m.err
}

func validCallbackBody() string {
	return `{
		"Body": {"stkCallback": {
			"MerchantRequestID": "29115-34620561-1",
			"CheckoutRequestID": "ws_CO_1",
			"ResultCode": 0,
			"ResultDesc": "The service request is processed successfully.",
			"CallbackMetadata": {"Item": [
				{"Name": "MpesaReceiptNumber", "Value": "R123"},
				{"Name": "Amount", "Value": 500}
			]}
		}}
	}`
}

func TestReceiveCallback(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		ack            service.Ack
		reconcileErr   error
		wantResultCode int
		wantReconciled bool
	}{
		{
			name:           "valid success callback",
			body:           validCallbackBody(),
			ack:            service.Ack{ResultCode: 0, ResultDesc: "Accepted"},
			wantResultCode: 0,
			wantReconciled: true,
		},
		{
			name:           "invalid JSON acknowledged without mutation",
			body:           "not-json",
			wantResultCode: 1,
			wantReconciled: false,
		},
		{
			name:           "empty body acknowledged",
			body:           "",
			wantResultCode: 1,
			wantReconciled: false,
		},
		{
			name:           "missing checkout id acknowledged",
			body:           `{"Body":{"stkCallback":{"ResultCode":0,"ResultDesc":"ok"}}}`,
			wantResultCode: 1,
			wantReconciled: false,
		},
		{
			name:           "persistence outage asks for redelivery",
			body:           validCallbackBody(),
			ack:            service.Ack{ResultCode: 1, ResultDesc: "Internal error, retry delivery"},
			reconcileErr:   fmt.Errorf("connection refused"),
			wantResultCode: 1,
			wantReconciled: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := &mockReconciler{ack: tc.ack, err: tc.reconcileErr}
			h := NewCallbackHandler(rec)

			req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()

			h.ReceiveCallback(rr, req)

			// The gateway always gets a 200; the embedded result code carries
			// the outcome.
			assert.Equal(t, http.StatusOK, rr.Code)

			var ack service.Ack
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ack))
			assert.Equal(t, tc.wantResultCode, ack.ResultCode)

			if tc.wantReconciled {
				require.NotNil(t, rec.received)
				assert.Equal(t, "ws_CO_1", rec.received.CheckoutRequestID)
			} else {
				assert.Nil(t, rec.received)
			}
		})
	}
}

func TestReceiveCallback_StringResultCode(t *testing.T) {
	rec := &mockReconciler{ack: service.Ack{ResultCode: 0, ResultDesc: "Accepted"}}
	h := NewCallbackHandler(rec)

	body := `{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_1","ResultCode":"1032","ResultDesc":"Request cancelled by user"}}}`
	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(body))
	rr := httptest.NewRecorder()

	h.ReceiveCallback(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, rec.received)
	assert.Equal(t, daraja.ResultCode(1032), rec.received.ResultCode)
}
