package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/DevFusionist/dilse/internal/domain"
)

const signatureHeader = "X-Razorpay-Signature"

// 1 MiB is far above any real gateway event; the cap only bounds abuse.
const maxWebhookBody = 1 << 20

// WebhookProcessor is the minimal interface needed to handle gateway events.
type WebhookProcessor interface {
	Process(ctx context.Context, body []byte, signature string) error
}

// HandleWebhook returns the handler for the gateway's webhook stream. It
// answers 200 for everything handled or deliberately ignored, 400 for
// deliveries the gateway must not retry, and 500 when a retry could succeed.
func HandleWebhook(svc WebhookProcessor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "unreadable body")
			return
		}

		err = svc.Process(r.Context(), body, r.Header.Get(signatureHeader))
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		case errors.Is(err, domain.ErrInvalidSignature):
			writeError(w, http.StatusBadRequest, codeInvalidSignature, "invalid signature")
		case errors.Is(err, domain.ErrMalformedEvent):
			writeError(w, http.StatusBadRequest, codeMalformedEvent, "malformed event")
		default:
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		}
	}
}
