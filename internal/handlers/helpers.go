package handlers

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/pkg/apperr"
	xhttp "github.com/khatape/khata-ledger/pkg/http"
)

const HeaderActorID = "X-Actor-Id"

type listResponse[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	if err := json.Unmarshal(ctx.PostBody(), dst); err != nil {
		return apperr.Validation("decode_request", "invalid JSON: %v", err)
	}
	return nil
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func queryInt(ctx *xhttp.RequestCtx, key string) int {
	n, _ := strconv.Atoi(query(ctx, key))
	return n
}

// pathUUID reads a route parameter such as {business_id}.
func pathUUID(ctx *xhttp.RequestCtx, name string) (uuid.UUID, error) {
	raw, _ := ctx.UserValue(name).(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Validation("parse_path", "%s must be a uuid", name)
	}
	return id, nil
}

// actorID is the caller identity recorded on writes. Authentication happens upstream.
func actorID(ctx *xhttp.RequestCtx) (uuid.UUID, error) {
	raw := string(ctx.Request.Header.Peek(HeaderActorID))
	if raw == "" {
		return uuid.Nil, apperr.Validation("actor", "%s header is required", HeaderActorID)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Validation("actor", "%s must be a uuid", HeaderActorID)
	}
	return id, nil
}

func parseTime(s string) (time.Time, error) {
	// RFC3339 or YYYY-MM-DD
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
