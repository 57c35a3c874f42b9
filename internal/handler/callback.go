package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/abanremit/mpesa-relay/internal/daraja"
	"github.com/abanremit/mpesa-relay/internal/logging"
	"github.com/abanremit/mpesa-relay/internal/service"
)

type reconcileService interface {
	Reconcile(ctx context.Context, cb *daraja.STKCallback) (service.Ack, error)
}

type CallbackHandler struct {
	reconciler reconcileService
}

func NewCallbackHandler(reconciler reconcileService) *CallbackHandler {
	return &CallbackHandler{reconciler: reconciler}
}

var ackMalformed = service.Ack{ResultCode: 1, ResultDesc: "Rejected"}

// ReceiveCallback takes the gateway's asynchronous result. The response is
// always HTTP 200: the embedded ResultCode is what drives the gateway's
// retry logic. Malformed envelopes are acknowledged and dropped; only a
// persistence failure answers with a retry request.
func (h *CallbackHandler) ReceiveCallback(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		log.Error("failed to read callback body", "error", err)
		RespondJSON(w, http.StatusOK, ackMalformed)
		return
	}

	cb, err := daraja.ParseCallback(body)
	if err != nil {
		log.Warn("malformed callback envelope", "error", err)
		RespondJSON(w, http.StatusOK, ackMalformed)
		return
	}

	ack, err := h.reconciler.Reconcile(r.Context(), cb)
	if err != nil {
		log.Error("callback reconciliation failed",
			"checkout_request_id", cb.CheckoutRequestID,
			"error", err,
		)
	}

	RespondJSON(w, http.StatusOK, ack)
}
