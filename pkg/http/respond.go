package xhttp

import (
	"encoding/json"

	"github.com/khatape/khata-ledger/pkg/apperr"
	"github.com/khatape/khata-ledger/pkg/logger"
)

type ErrorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func WriteJSON(ctx *RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logger.Error("[xhttp] failed to encode response", "error", err)
		ctx.Error(StatusText(StatusInternalServerError), StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

// WriteError maps err to its HTTP status and writes a body that never leaks storage details.
func WriteError(ctx *RequestCtx, err error) {
	status := apperr.HTTPStatus(err)
	if status >= StatusInternalServerError {
		logger.Error("[xhttp] request failed", "path", string(ctx.Path()), "error", err)
	}
	WriteJSON(ctx, status, ErrorBody{Error: apperr.PublicMessage(err), Kind: string(apperr.KindOf(err))})
}
