package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Joseda-hg/taskmanager/internal/model"
	"github.com/Joseda-hg/taskmanager/internal/service"
	"github.com/gin-gonic/gin"
	goerrors "github.com/go-errors/errors"
)

// Pinger reports whether storage is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	service    *service.Service
	pinger     Pinger
	corsOrigin string
	log        *slog.Logger
}

type statusRequest struct {
	Completed bool `json:"completed"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func NewServer(svc *service.Service, pinger Pinger, corsOrigin string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{service: svc, pinger: pinger, corsOrigin: corsOrigin, log: logger}
}

func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(requestID(), requestLogger(s.log), gin.CustomRecovery(s.recoverPanic))
	if s.corsOrigin != "" {
		router.Use(allowOrigin(s.corsOrigin))
	}

	router.GET("/healthz", s.healthHandler)
	router.GET("/todos", s.listHandler)
	router.POST("/todos", s.createHandler)
	router.GET("/todos/:id", s.getHandler)
	router.PUT("/todos/:id", s.updateStatusHandler)
	router.POST("/sync", s.syncHandler)
	return router
}

func (s *Server) listHandler(c *gin.Context) {
	views, err := s.service.List(c.Request.Context(), queryFromRequest(c))
	if err != nil {
		s.writeInternalError(c, err)
		return
	}
	if len(views) == 0 {
		c.Status(http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) getHandler(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	view, err := s.service.GetByID(c.Request.Context(), id)
	if err != nil {
		s.writeInternalError(c, err)
		return
	}
	if view == nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) updateStatusHandler(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	var body statusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, messageResponse{Message: "invalid request body: " + err.Error()})
		return
	}

	updated, err := s.service.UpdateStatus(c.Request.Context(), id, body.Completed)
	var policyErr *service.PolicyError
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.Status(http.StatusNotFound)
	case errors.As(err, &policyErr):
		c.JSON(http.StatusBadRequest, messageResponse{Message: policyErr.Error()})
	case err != nil:
		s.writeInternalError(c, err)
	case !updated:
		c.Status(http.StatusNotFound)
	default:
		c.Status(http.StatusOK)
	}
}

func (s *Server) createHandler(c *gin.Context) {
	var intent model.CreateIntent
	if err := c.ShouldBindJSON(&intent); err != nil {
		c.JSON(http.StatusBadRequest, messageResponse{Message: "invalid request body: " + err.Error()})
		return
	}

	view, err := s.service.Create(c.Request.Context(), intent)
	var policyErr *service.PolicyError
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.As(err, &policyErr):
		c.JSON(http.StatusBadRequest, messageResponse{Message: err.Error()})
	case err != nil:
		s.writeInternalError(c, err)
	default:
		c.JSON(http.StatusCreated, view)
	}
}

func (s *Server) syncHandler(c *gin.Context) {
	if err := s.service.SyncFromRemote(c.Request.Context()); err != nil {
		s.writeInternalError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) healthHandler(c *gin.Context) {
	if s.pinger != nil {
		if err := s.pinger.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) writeInternalError(c *gin.Context, err error) {
	s.log.Error("request failed",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", c.GetString(requestIDKey),
		"error", err,
		"stack", goerrors.Wrap(err, 1).ErrorStack(),
	)
	c.JSON(http.StatusInternalServerError, messageResponse{Message: "internal error: " + err.Error()})
}

func (s *Server) recoverPanic(c *gin.Context, recovered any) {
	err := goerrors.Wrap(recovered, 2)
	s.log.Error("panic recovered", "path", c.Request.URL.Path, "error", err.Error(), "stack", string(err.Stack()))
	c.AbortWithStatusJSON(http.StatusInternalServerError, messageResponse{Message: "internal error"})
}

func queryFromRequest(c *gin.Context) model.Query {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "10"))

	return model.Query{
		Page:     page,
		PageSize: pageSize,
		Title:    strings.TrimSpace(c.Query("title")),
		Sort:     strings.TrimSpace(c.Query("sort")),
		Order:    strings.TrimSpace(c.Query("order")),
	}
}

func parseID(value string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(value), 10, 64)
}
