// mock-gateway stands in for the Daraja sandbox during local development:
// it issues tokens, accepts STK push requests, and delivers a delayed
// result callback (optionally twice, to exercise the duplicate-delivery
// path) to the CallBackURL each push names.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/abanremit/mpesa-relay/internal/logging"
)

type pushRequest struct {
	Amount      string `json:"Amount"`
	PhoneNumber string `json:"PhoneNumber"`
	CallBackURL string `json:"CallBackURL"`
}

func main() {
	logging.Init("mock-gateway", "info", os.Getenv("APP_ENV"))

	resultCode := envInt("MOCK_RESULT_CODE", 0)
	delay := time.Duration(envInt("MOCK_CALLBACK_DELAY_MS", 2000)) * time.Millisecond
	duplicates := envInt("MOCK_CALLBACK_DELIVERIES", 1)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := r.BasicAuth(); !ok {
			http.Error(w, "missing credentials", http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]string{
			"access_token": uuid.NewString(),
			"expires_in":   "3599",
		})
	})

	mux.HandleFunc("POST /mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		var req pushRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		merchantID := fmt.Sprintf("29115-%d-1", rand.Intn(100000000))
		checkoutID := "ws_CO_" + time.Now().Format("020120060102150405") + strconv.Itoa(rand.Intn(10000))

		go func() {
			time.Sleep(delay)
			for i := range duplicates {
				deliverCallback(req, merchantID, checkoutID, resultCode)
				slog.Info("callback delivered",
					"checkout_request_id", checkoutID,
					"delivery", i+1,
					"result_code", resultCode,
				)
			}
		}()

		writeJSON(w, map[string]string{
			"MerchantRequestID":   merchantID,
			"CheckoutRequestID":   checkoutID,
			"ResponseCode":        "0",
			"ResponseDescription": "Success. Request accepted for processing",
			"CustomerMessage":     "Success. Request accepted for processing",
		})
	})

	addr := ":8081"
	slog.Info("mock gateway started", "addr", addr, "result_code", resultCode, "deliveries", duplicates)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func deliverCallback(req pushRequest, merchantID, checkoutID string, resultCode int) {
	cb := map[string]any{
		"MerchantRequestID": merchantID,
		"CheckoutRequestID": checkoutID,
		"ResultCode":        resultCode,
		"ResultDesc":        "The service request is processed successfully.",
	}
	if resultCode == 0 {
		cb["CallbackMetadata"] = map[string]any{
			"Item": []map[string]any{
				{"Name": "Amount", "Value": req.Amount},
				{"Name": "MpesaReceiptNumber", "Value": receiptNumber()},
				{"Name": "TransactionDate", "Value": time.Now().Format("20060102150405")},
				{"Name": "PhoneNumber", "Value": req.PhoneNumber},
			},
		}
	} else {
		cb["ResultDesc"] = "Request cancelled by user"
	}

	body, _ := json.Marshal(map[string]any{
		"Body": map[string]any{"stkCallback": cb},
	})

	resp, err := http.Post(req.CallBackURL, "application/json", bytes.NewReader(body))
	if err != nil {
		slog.Error("callback delivery failed", "url", req.CallBackURL, "error", err)
		return
	}
	resp.Body.Close()
}

func receiptNumber() string {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ0123456789"
	b := make([]byte, 10)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
