package xhttp

import (
	"reflect"
	"runtime"
	"slices"
	"time"

	"github.com/khatape/khata-ledger/pkg/logger"
	"github.com/valyala/fasthttp"
)

type Server = fasthttp.Server

type ServerOption struct {
	Name               string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ReadBufferSize     int
	WriteBufferSize    int
	MaxRequestBodySize int
	Concurrency        int
}

var DefaultServerOption = ServerOption{
	Name:               "khata-ledger",
	ReadTimeout:        5 * time.Second,
	WriteTimeout:       5 * time.Second,
	IdleTimeout:        10 * time.Second,
	ReadBufferSize:     4 * 1024,
	WriteBufferSize:    4 * 1024,
	MaxRequestBodySize: 1 * 1024 * 1024,
	Concurrency:        10_000,
}

// WithOverrides returns a copy of o with every positive argument applied. Timeouts are milliseconds.
func (o ServerOption) WithOverrides(readTimeoutMs, writeTimeoutMs, readBuffer, writeBuffer int) ServerOption {
	if readTimeoutMs > 0 {
		o.ReadTimeout = time.Duration(readTimeoutMs) * time.Millisecond
	}
	if writeTimeoutMs > 0 {
		o.WriteTimeout = time.Duration(writeTimeoutMs) * time.Millisecond
	}
	if readBuffer > 0 {
		o.ReadBufferSize = readBuffer
	}
	if writeBuffer > 0 {
		o.WriteBufferSize = writeBuffer
	}
	return o
}

type Engine struct {
	*Router
	*Server
	middle []MiddlewareFunc
}

func NewServer(options ServerOption) *Engine {
	return &Engine{
		Router: CreateDefaultRouter(),
		Server: &fasthttp.Server{
			Name:                  options.Name,
			ReadTimeout:           options.ReadTimeout,
			WriteTimeout:          options.WriteTimeout,
			IdleTimeout:           options.IdleTimeout,
			ReadBufferSize:        options.ReadBufferSize,
			WriteBufferSize:       options.WriteBufferSize,
			MaxRequestBodySize:    options.MaxRequestBodySize,
			Concurrency:           options.Concurrency,
			NoDefaultServerHeader: true,
			CloseOnShutdown:       true,
			Logger:                logger.GetLogger(),
			ErrorHandler: func(ctx *RequestCtx, err error) {
				logger.Warn("[xhttp] connection error", "error", err)
			},
		},
	}
}

func CreateServer() *Engine {
	return NewServer(DefaultServerOption)
}

// Use appends middleware. The first registered middleware runs outermost.
func (e *Engine) Use(middleware MiddlewareFunc) {
	e.middle = append(e.middle, middleware)
}

// Handler builds the final request handler: router wrapped by every middleware.
func (e *Engine) Handler() RequestHandler {
	h := e.Router.Handler
	mws := slices.Clone(e.middle)
	slices.Reverse(mws)
	for _, m := range mws {
		h = m(h)
	}
	return h
}

func (e *Engine) DoRouting() {
	for method, routes := range e.Router.List() {
		for _, r := range routes {
			logger.Debug("[xhttp] route", "method", method, "path", r)
		}
	}
	for i, m := range e.middle {
		logger.Debug("[xhttp] middleware registered", "order", i+1, "name", runtime.FuncForPC(reflect.ValueOf(m).Pointer()).Name())
	}
	e.Server.Handler = e.Handler()
}

func (e *Engine) ListenAndServe(addr string) error {
	e.DoRouting()
	logger.Info("[xhttp] server is listening", "addr", addr)
	return e.Server.ListenAndServe(addr)
}

func (e *Engine) Shutdown() {
	logger.Info("[xhttp] server is shutting down")
	if err := e.Server.Shutdown(); err != nil {
		logger.Error("[xhttp] error while shutting down", "error", err)
	}
}
