package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/api/responses"
	pkgerrors "github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/errors"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/logger"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/metrics"
)

const signatureHeader = "X-Signature"

type paymentWebhookProcessor interface {
	Process(ctx context.Context, body []byte) error
}

type signatureVerifier interface {
	Verify(header string, body []byte) error
}

// PaymentWebhook receives gateway event deliveries. The contract with the
// gateway is strict: an invalid signature gets a generic 401, and anything
// after a valid signature gets a 200 so the gateway never retries forever
// against a bug on our side.
func PaymentWebhook(processor paymentWebhookProcessor, verifier signatureVerifier, m *metrics.WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if processor == nil || verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook pipeline unavailable"))
			return
		}

		m.IncReceived()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if err := verifier.Verify(r.Header.Get(signatureHeader), body); err != nil {
			m.IncInvalidSignature()
			if logg != nil {
				logCtx := logg.WithFields(ctx, map[string]any{"error": err.Error()})
				logg.Warn(logCtx, "webhook.invalid_signature")
			}
			// One generic message regardless of what failed.
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid signature"))
			return
		}

		if err := processor.Process(ctx, body); err != nil && logg != nil {
			logg.Error(ctx, "webhook.process", err)
		}

		responses.WriteSuccess(w, map[string]bool{"received": true})
	}
}
