// Package rest provides the Gin-based inspection API of a running simulation.
package rest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/tslnc04/agent-sim/internal/geometry"
	"github.com/tslnc04/agent-sim/internal/storage/local"
	"github.com/tslnc04/agent-sim/internal/world"
)

// WorldView is the read side of a simulation the API serves. Implementations
// must be safe to call while the simulation is stepping.
type WorldView interface {
	Stats() world.Stats
	AgentsIn(r geometry.Rect) []world.AgentInfo
	RenderSVG(w io.Writer)
	WriteContacts(w io.Writer) error
}

// Server is the REST API server.
type Server struct {
	engine *gin.Engine
	mu     sync.Mutex
	http   *http.Server
	closed bool
	view   WorldView
	store  local.StatsStore
	logger *zap.Logger
}

// New creates a REST Server. store may be nil, in which case /history
// reports the service as unavailable.
func New(view WorldView, store local.StatsStore, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine: engine,
		view:   view,
		store:  store,
		logger: logger,
	}
	s.registerRoutes()
	return s
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves on addr until Shutdown is called. It returns nil after a
// clean shutdown, or at once if Shutdown already ran.
func (s *Server) Start(addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.http = srv
	s.mu.Unlock()

	s.logger.Info("REST API listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops a server started with Start.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.http
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// registerRoutes sets up the /agentsim context path.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/agentsim")

	// Swagger UI
	api.GET("/swagger-ui/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api.GET("/stats", s.stats)
	api.GET("/history", s.history)
	api.GET("/agents", s.agents)
	api.GET("/quadtree.svg", s.quadtree)
	api.GET("/contacts.dot", s.contacts)
}

// @Summary Current step statistics
// @Tags simulation
// @Produce json
// @Success 200 {object} world.Stats
// @Router /agentsim/stats [get]
func (s *Server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, s.view.Stats())
}

// @Summary Recorded statistics for a range of steps
// @Tags simulation
// @Produce json
// @Param from query int false "first step"
// @Param to query int false "last step"
// @Success 200 {array} world.Stats
// @Router /agentsim/history [get]
func (s *Server) history(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no stats store configured"})
		return
	}
	from, err := intQuery(c, "from", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to, err := intQuery(c, "to", math.MaxInt32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records, err := s.store.Range(from, to)
	if err != nil {
		s.logger.Error("history lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []world.Stats{}
	}
	c.JSON(http.StatusOK, records)
}

// @Summary Agents inside a rectangle
// @Tags simulation
// @Produce json
// @Param x0 query number true "first corner x"
// @Param y0 query number true "first corner y"
// @Param x1 query number true "second corner x"
// @Param y1 query number true "second corner y"
// @Success 200 {array} world.AgentInfo
// @Router /agentsim/agents [get]
func (s *Server) agents(c *gin.Context) {
	var corners [4]float64
	for i, name := range []string{"x0", "y0", "x1", "y1"} {
		v, err := strconv.ParseFloat(c.Query(name), 64)
		if err != nil || math.IsNaN(v) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter " + name + " must be a number"})
			return
		}
		corners[i] = v
	}

	r := geometry.NewRect(geometry.V(corners[0], corners[1]), geometry.V(corners[2], corners[3]))
	found := s.view.AgentsIn(r)
	if found == nil {
		found = []world.AgentInfo{}
	}
	c.JSON(http.StatusOK, found)
}

func (s *Server) quadtree(c *gin.Context) {
	var buf bytes.Buffer
	s.view.RenderSVG(&buf)
	c.Data(http.StatusOK, "image/svg+xml", buf.Bytes())
}

func (s *Server) contacts(c *gin.Context) {
	var buf bytes.Buffer
	if err := s.view.WriteContacts(&buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/vnd.graphviz", buf.Bytes())
}

func intQuery(c *gin.Context, name string, def int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("query parameter " + name + " must be an integer")
	}
	return v, nil
}
