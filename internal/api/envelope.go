package api

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookberryapp/bookberry-server/internal/http/response"
)

// EnvelopeTransformer wraps every huma response body in response.Envelope.
// Errors produced through RegisterErrorHandler become failure envelopes.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	switch body := v.(type) {
	case response.Envelope, *response.Envelope:
		return v, nil
	case *APIError:
		return response.ErrorEnvelope(body.Code, body.Message, body.Details), nil
	case *huma.ErrorModel:
		return response.ErrorEnvelope(string(response.CodeForStatus(body.Status)), body.Detail, body.Errors), nil
	}

	if !strings.HasPrefix(status, "2") && !strings.HasPrefix(status, "3") {
		return response.ErrorEnvelope("", "request failed", v), nil
	}
	return response.SuccessEnvelope(v), nil
}
