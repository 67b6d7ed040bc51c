// =============================================================================
// Ledger Cleaner - HTTP Server
// =============================================================================
//
// This module exposes the cleaning pipeline over HTTP. A client uploads a
// ledger export and receives the reassembled workbook as a download.
//
// ROUTES:
//   POST /            multipart field "file", optional "profile"
//   POST /api/clean   same as POST /
//   GET  /healthz     liveness probe
//
// STATUS CODES:
//   400  no upload, unreadable upload, unknown profile
//   413  upload larger than server.max_upload_mb
//   422  the upload does not have the ledger layout, or an amount is invalid
//   500  the cleaned workbook could not be written
//
// Error bodies are plain text carrying the failure message.
//
// =============================================================================

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ginjaninja78/ledger-cleaner/internal/cleaner"
	"github.com/ginjaninja78/ledger-cleaner/internal/config"
	"github.com/ginjaninja78/ledger-cleaner/internal/converter"
	"github.com/ginjaninja78/ledger-cleaner/internal/xlsxparser"
	"github.com/ginjaninja78/ledger-cleaner/internal/xlsxwriter"
)

const (
	// XLSXContentType is the MIME type of the returned workbook.
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// DownloadName is the file name offered to the client.
	DownloadName = "processed.xlsx"

	// RequestIDHeader carries the request id in both directions.
	RequestIDHeader = "X-Request-ID"

	shutdownTimeout = 10 * time.Second
)

// =============================================================================
// SERVER
// =============================================================================

// Server serves the cleaning endpoint.
type Server struct {
	cfg       config.ServerConfig
	profiles  *config.ProfileSet
	pipelines map[string]*cleaner.Pipeline
	logger    *slog.Logger
	router    *gin.Engine
}

// New builds a Server with one pipeline per profile. A profile whose cleaning
// settings cannot build a pipeline is an error. A nil logger discards output.
func New(cfg config.ServerConfig, profiles *config.ProfileSet, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("component", "server")

	pipelines := make(map[string]*cleaner.Pipeline)
	for _, p := range profiles.All() {
		spec, err := p.CleanerSpec()
		if err != nil {
			return nil, err
		}
		pipeline, err := cleaner.New(spec, logger)
		if err != nil {
			return nil, fmt.Errorf("profile %q: %w", p.Code, err)
		}
		pipelines[p.Code] = pipeline
	}

	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	s := &Server{
		cfg:       cfg,
		profiles:  profiles,
		pipelines: pipelines,
		logger:    logger,
		router:    gin.New(),
	}
	s.setupRoutes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on cfg.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery(), requestID(), s.requestLogger())

	s.router.POST("/", s.handleClean)
	s.router.POST("/api/clean", s.handleClean)
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

// requestID keeps the caller's X-Request-ID or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"bytes", c.Writer.Size(),
			"latency", time.Since(start),
			"request_id", c.GetString("request_id"),
		)
	}
}

// =============================================================================
// HANDLERS
// =============================================================================

func (s *Server) handleClean(c *gin.Context) {
	if s.cfg.MaxUploadMB > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadMB<<20)
	}

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.String(http.StatusRequestEntityTooLarge, "Upload exceeds %d MB", s.cfg.MaxUploadMB)
			return
		}
		c.String(http.StatusBadRequest, "No file uploaded")
		return
	}

	code := c.Query("profile")
	if code == "" {
		code = c.PostForm("profile")
	}
	profile := s.profiles.Default()
	if code != "" {
		p, ok := s.profiles.Get(code)
		if !ok {
			c.String(http.StatusBadRequest, "Unknown profile %q", code)
			return
		}
		profile = p
	}

	file, err := header.Open()
	if err != nil {
		c.String(http.StatusBadRequest, "Error reading Excel file: %v", err)
		return
	}
	defer file.Close()

	wb, err := converter.DecodeUpload(header.Filename, file, profile.CSVSettings)
	if err != nil {
		c.String(http.StatusBadRequest, "Error reading Excel file: %v", unwrapDecode(err))
		return
	}

	out, report, err := s.pipelines[profile.Code].CleanAndReassemble(wb)
	if err != nil {
		s.logger.Warn("cleaning failed",
			"request_id", c.GetString("request_id"),
			"profile", profile.Code,
			"kind", converter.Kind(err),
			"error", err,
		)
		c.String(statusFor(err), "%v", err)
		return
	}

	data, err := xlsxwriter.EncodeBytes(out)
	if err != nil {
		s.logger.Error("encoding failed", "request_id", c.GetString("request_id"), "error", err)
		c.String(http.StatusInternalServerError, "%v", err)
		return
	}

	s.logger.Debug("cleaned upload",
		"request_id", c.GetString("request_id"),
		"profile", profile.Code,
		"file", header.Filename,
		"input_rows", report.InputRows,
		"output_rows", report.OutputRows(),
	)

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", DownloadName))
	c.Header("X-Cleaned-Rows", fmt.Sprint(report.OutputRows()))
	c.Data(http.StatusOK, XLSXContentType, data)
}

// statusFor maps a cleaning failure to a response status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, cleaner.ErrSchema), errors.Is(err, cleaner.ErrParse):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// unwrapDecode returns the decoder's own message, without the package prefix.
func unwrapDecode(err error) error {
	var de *xlsxparser.DecodeError
	if errors.As(err, &de) && de.Err != nil {
		return de.Err
	}
	return err
}
