package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abanremit/mpesa-relay/internal/domain"
	"github.com/abanremit/mpesa-relay/internal/service"
)

type mockDepositService struct {
	received *service.DepositRequest
	result   *service.DepositResult
	err      error
}

func (m *mockDepositService) Initiate(_ context.Context, req service.DepositRequest) (*service.DepositResult, error) {
	m.received = &req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func TestInitiateDeposit(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "valid request",
			body:       `{"phone":"0712345678","amount":500,"ownerId":"u1"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "amount as string",
			body:       `{"phone":"0712345678","amount":"500","ownerId":"u1"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "invalid JSON",
			body:       "not-json",
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "non numeric amount",
			body:       `{"phone":"0712345678","amount":"lots","ownerId":"u1"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "missing owner",
			body:       `{"phone":"0712345678","amount":500}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "zero amount",
			body:       `{"phone":"0712345678","amount":0,"ownerId":"u1"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "negative amount",
			body:       `{"phone":"0712345678","amount":-20,"ownerId":"u1"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "gateway rejection surfaces as bad gateway",
			body:       `{"phone":"0712345678","amount":500,"ownerId":"u1"}`,
			svcErr:     domain.ErrGatewayRejected,
			wantStatus: http.StatusBadGateway,
			wantCode:   "GATEWAY_REJECTED",
		},
		{
			name:       "auth rejection surfaces as bad gateway",
			body:       `{"phone":"0712345678","amount":500,"ownerId":"u1"}`,
			svcErr:     domain.ErrUpstreamAuth,
			wantStatus: http.StatusBadGateway,
			wantCode:   "UPSTREAM_AUTH_FAILED",
		},
		{
			name:       "invalid phone from service",
			body:       `{"phone":"123","amount":500,"ownerId":"u1"}`,
			svcErr:     domain.ErrInvalidPhone,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_PHONE",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockDepositService{
				result: &service.DepositResult{
					CheckoutRequestID: "ws_CO_1",
					MerchantRequestID: "29115-34620561-1",
					CustomerMessage:   "Success. Request accepted for processing",
				},
				err: tc.svcErr,
			}
			h := NewSTKPushHandler(svc)

			req := httptest.NewRequest(http.MethodPost, "/stkpush", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()

			h.InitiateDeposit(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)

			var resp APIResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

			if tc.wantCode == "" {
				assert.True(t, resp.Success)
			} else {
				assert.False(t, resp.Success)
				require.NotNil(t, resp.Error)
				assert.Equal(t, tc.wantCode, resp.Error.Code)
			}
		})
	}
}

func TestInitiateDeposit_ResponseShape(t *testing.T) {
	svc := &mockDepositService{
		result: &service.DepositResult{
			CheckoutRequestID: "ws_CO_1",
			MerchantRequestID: "29115-34620561-1",
			CustomerMessage:   "Success. Request accepted for processing",
		},
	}
	h := NewSTKPushHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/stkpush", strings.NewReader(`{"phone":"0712345678","amount":500,"ownerId":"u1"}`))
	rr := httptest.NewRecorder()

	h.InitiateDeposit(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Success bool            `json:"success"`
		Data    stkPushResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "ws_CO_1", resp.Data.CheckoutRequestID)
	assert.Equal(t, "29115-34620561-1", resp.Data.MerchantRequestID)

	require.NotNil(t, svc.received)
	assert.Equal(t, "u1", svc.received.OwnerID)
	assert.Equal(t, "0712345678", svc.received.Phone)
	assert.True(t, svc.received.Amount.Equal(decimal.NewFromInt(500)))
}
