// Package controller serves the walltime HTTP API
package controller

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gwos/walltime/config"
	wterr "github.com/gwos/walltime/errors"
	"github.com/gwos/walltime/sdk/clock"
	"github.com/gwos/walltime/watchdog"
	"github.com/hashicorp/go-uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const (
	shutdownTimeout = 5 * time.Second

	pinHeader       = "X-PIN"
	requestIDHeader = "X-Request-Id"
)

// Controller holds the HTTP server state
type Controller struct {
	mu  sync.Mutex
	srv *http.Server

	cfg      config.Controller
	clock    clock.Clock
	watchdog *watchdog.Watchdog
}

// New returns a stopped Controller, wd may be nil
func New(cfg config.Controller, c clock.Clock, wd *watchdog.Watchdog) *Controller {
	return &Controller{cfg: cfg, clock: c, watchdog: wd}
}

// Handler builds the router
func (ctrl *Controller) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(ctrl.cfg.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = ctrl.cfg.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{http.MethodGet, http.MethodOptions}
	corsConfig.AllowHeaders = []string{pinHeader, requestIDHeader}
	corsConfig.ExposeHeaders = []string{requestIDHeader}
	router.Use(cors.New(corsConfig))
	router.Use(requestID)

	ctrl.registerAPI1(router)
	if ctrl.watchdog != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(ctrl.watchdog.Registry(), promhttp.HandlerOpts{})))
	}
	return router
}

// Start starts listening, it is a no-op if already started
func (ctrl *Controller) Start() error {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if ctrl.srv != nil {
		log.Warn().Msg("controller already started")
		return nil
	}

	addr := ctrl.cfg.Addr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	/* listen synchronously to report the address in use */
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if wterr.IsErrorAddressInUse(err) {
			log.Err(err).Str("addr", addr).Msg("controller address in use")
		}
		return err
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      ctrl.Handler(),
		ReadTimeout:  ctrl.cfg.ReadTimeout,
		WriteTimeout: ctrl.cfg.WriteTimeout,
	}
	ctrl.srv = srv

	certFile, keyFile := ctrl.cfg.CertFile, ctrl.cfg.KeyFile
	go func() {
		var err error
		if certFile != "" && keyFile != "" {
			log.Info().Str("addr", ln.Addr().String()).Msg("controller: start listen TLS")
			err = srv.ServeTLS(ln, certFile, keyFile)
		} else {
			log.Info().Str("addr", ln.Addr().String()).Msg("controller: start listen")
			err = srv.Serve(ln)
		}
		if err != nil && err != http.ErrServerClosed {
			log.Err(err).Msg("controller: serve error")
		}
	}()
	return nil
}

// Stop gracefully shutdowns the http server
func (ctrl *Controller) Stop() error {
	ctrl.mu.Lock()
	srv := ctrl.srv
	ctrl.srv = nil
	ctrl.mu.Unlock()
	if srv == nil {
		return nil
	}

	log.Info().Msg("controller: shutdown ...")
	timeout := ctrl.cfg.StopTimeout
	if timeout <= 0 {
		timeout = shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Err(err).Msg("controller: shutdown error")
		return err
	}
	return nil
}

// requestID tags the request with the caller's X-Request-Id or a new one
func requestID(c *gin.Context) {
	id := c.GetHeader(requestIDHeader)
	if id == "" {
		var err error
		if id, err = uuid.GenerateUUID(); err != nil {
			log.Warn().Err(err).Msg("controller: could not generate request id")
		}
	}
	if id != "" {
		c.Header(requestIDHeader, id)
	}
	c.Next()
	log.Debug().
		Str("requestID", id).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Int("status", c.Writer.Status()).
		Msg("controller: request")
}

func (ctrl *Controller) validatePin(c *gin.Context) {
	if ctrl.cfg.Pin == "" || ctrl.cfg.Pin == c.GetHeader(pinHeader) {
		return
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid " + pinHeader})
}
