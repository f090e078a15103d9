package xhttp

import (
	"github.com/fasthttp/router"
)

type Router = router.Router
type Group = router.Group

// APIPrefix is where every versioned business route lives.
const APIPrefix = "/api/v1"

// CreateDefaultRouter returns a router with JSON bodies for unknown paths and
// for known paths hit with the wrong method.
func CreateDefaultRouter() *Router {
	r := router.New()
	r.RedirectTrailingSlash = true
	r.SaveMatchedRoutePath = true
	r.NotFound = NotFoundHandler
	r.MethodNotAllowed = MethodNotAllowedHandler
	r.HandleOPTIONS = false
	r.HandleMethodNotAllowed = true
	return r
}

// APIGroup returns the group rooted at APIPrefix.
func APIGroup(r *Router) *Group {
	return r.Group(APIPrefix)
}

func NotFoundHandler(ctx *RequestCtx) {
	WriteJSON(ctx, StatusNotFound, ErrorBody{Error: StatusText(StatusNotFound)})
}

func MethodNotAllowedHandler(ctx *RequestCtx) {
	WriteJSON(ctx, StatusMethodNotAllowed, ErrorBody{Error: StatusText(StatusMethodNotAllowed)})
}
