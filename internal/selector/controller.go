// Package selector provides the interactive area-selection HTTP server.
//
// The selector serves a small map page and waits for the operator to
// submit a study-area polygon. Analysis runs that were not given an
// area on the command line block on Await until a selection arrives.
package selector

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"sync"

	"github.com/coastcube/filmstrip/internal/geo"
	"github.com/coastcube/filmstrip/internal/log"
	"github.com/coastcube/filmstrip/pkg/config"
	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

var (
	//go:embed all:assets
	content embed.FS
)

// pendingRequest tracks a single outstanding call to Await. The token is
// echoed back to the submitting client so it can confirm which run
// consumed its selection.
type pendingRequest struct {
	token  string
	result chan geo.Polygon
}

// Controller represents the area selection server controller
type Controller struct {
	ctx            context.Context
	wg             *sync.WaitGroup
	selectorConfig config.SelectorData
	Server         http.Server
	FS             *fs.FS
	logger         *zap.SugaredLogger
	handlers       *Handlers

	mu      sync.Mutex
	pending *pendingRequest
}

// NewController creates a new area selection server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, sc config.SelectorData, logger *zap.SugaredLogger) (*Controller, error) {
	ctrl := &Controller{
		ctx:            ctx,
		wg:             wg,
		selectorConfig: sc,
		logger:         logger,
	}

	// If a ListenAddr was not provided, listen on all interfaces
	if sc.ListenAddr == "" {
		logger.Info("selector.listen_addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		sc.ListenAddr = "0.0.0.0"
	}

	// Set default HTTP port if not specified
	if sc.Port == 0 {
		logger.Info("selector.port not provided; defaulting to 8080")
		sc.Port = 8080
	}

	// Create handlers
	ctrl.handlers = NewHandlers(ctrl)

	// Set up embedded filesystem for assets
	assetsFS, _ := fs.Sub(fs.FS(content), "assets")
	ctrl.FS = &assetsFS

	// Set up router
	router := ctrl.setupRouter()
	ctrl.Server.Addr = fmt.Sprintf("%v:%v", sc.ListenAddr, sc.Port)
	ctrl.Server.Handler = handlers.CompressHandler(handlers.CORS(
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(router))

	return ctrl, nil
}

// StartController starts the area selection server
func (c *Controller) StartController() error {
	log.Info("Starting area selection server controller...")
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
			log.Errorf("selection server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("Shutting down the area selection server...")
		c.Server.Shutdown(context.Background())
	}()

	return nil
}

// Await blocks until a polygon is submitted to the selection endpoint or
// the context is cancelled. Only one caller may wait at a time.
func (c *Controller) Await(ctx context.Context) (geo.Polygon, error) {
	c.mu.Lock()
	if c.pending != nil {
		c.mu.Unlock()
		return geo.Polygon{}, fmt.Errorf("a selection request is already pending")
	}
	req := &pendingRequest{
		token:  uuid.New().String(),
		result: make(chan geo.Polygon, 1),
	}
	c.pending = req
	c.mu.Unlock()

	c.logger.Infof("waiting for area selection at http://%v (token %v)", c.Server.Addr, req.token)

	defer func() {
		c.mu.Lock()
		if c.pending == req {
			c.pending = nil
		}
		c.mu.Unlock()
	}()

	select {
	case poly := <-req.result:
		return poly, nil
	case <-ctx.Done():
		return geo.Polygon{}, ctx.Err()
	}
}

// deliver hands a submitted polygon to the waiting Await call. It returns
// the pending token, or an error when no run is waiting for a selection.
func (c *Controller) deliver(poly geo.Polygon) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == nil {
		return "", fmt.Errorf("no analysis run is waiting for a selection")
	}

	token := c.pending.token
	c.pending.result <- poly
	c.pending = nil
	return token, nil
}

// status reports whether a run is currently waiting and under which token
func (c *Controller) status() (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == nil {
		return false, ""
	}
	return true, c.pending.token
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()

	// API endpoints
	router.HandleFunc("/api/v1/selection", c.handlers.SubmitSelection).Methods("POST")
	router.HandleFunc("/api/v1/selection", c.handlers.GetSelectionStatus).Methods("GET")

	// Map page
	router.HandleFunc("/", c.handlers.ServeIndex)

	// Static file serving
	router.PathPrefix("/").Handler(http.FileServer(http.FS(*c.FS)))

	return router
}
