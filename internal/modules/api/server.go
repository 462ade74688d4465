package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"grapvid/internal/models"
	"grapvid/internal/modules/backend"
	"grapvid/internal/modules/notifier"
	"grapvid/internal/modules/resolver"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Server exposes one SingleStep and one TwoStep resolver over a local JSON API.
// Download endpoints return the synthesized link; the caller performs the fetch.
type Server struct {
	tiktok  *resolver.SingleStep
	youtube *resolver.TwoStep
	logger  *zap.Logger

	tiktokMsgs  *notifier.Recorder
	youtubeMsgs *notifier.Recorder
}

// New creates a Server around the two resolvers.
func New(tiktok *resolver.SingleStep, youtube *resolver.TwoStep, logger *zap.Logger) *Server {
	return &Server{tiktok: tiktok, youtube: youtube, logger: logger}
}

// WithMessages shows the latest notification of each resolver in its state view.
// The recorders must be among the notifiers the resolvers were built with.
func (s *Server) WithMessages(tiktok, youtube *notifier.Recorder) *Server {
	s.tiktokMsgs = tiktok
	s.youtubeMsgs = youtube
	return s
}

type submitRequest struct {
	URL string `json:"url" binding:"required"`
}

type selectRequest struct {
	VideoItag *models.Itag `json:"video_itag"`
	AudioItag *models.Itag `json:"audio_itag"`
}

type formatView struct {
	Itag  models.Itag `json:"itag"`
	Label string      `json:"label"`
}

type youtubeView struct {
	resolver.TwoState
	VideoFormats []formatView      `json:"video_formats"`
	AudioFormats []formatView      `json:"audio_formats"`
	CanSubmit    bool              `json:"can_submit"`
	CanDownload  bool              `json:"can_download"`
	Message      *notifier.Message `json:"message,omitempty"`
}

type tiktokView struct {
	resolver.SingleState
	CanSubmit   bool              `json:"can_submit"`
	CanDownload bool              `json:"can_download"`
	Message     *notifier.Message `json:"message,omitempty"`
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	tt := r.Group("/api/tiktok")
	tt.GET("/state", s.tiktokState)
	tt.POST("/submit", s.tiktokSubmit)
	tt.POST("/download", s.tiktokDownload)

	yt := r.Group("/api/youtube")
	yt.GET("/state", s.youtubeState)
	yt.POST("/submit", s.youtubeSubmit)
	yt.POST("/select", s.youtubeSelect)
	yt.POST("/download", s.youtubeDownload)

	return r
}

// Handler wraps the router with CORS so a page served elsewhere can drive it.
func (s *Server) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(s.Router())
}

// ListenAndServe serves until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down API server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) tiktokState(c *gin.Context) {
	c.JSON(http.StatusOK, s.tiktokView())
}

func (s *Server) tiktokSubmit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}
	if err := s.tiktok.Submit(c.Request.Context(), req.URL); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.tiktokView())
}

func (s *Server) tiktokDownload(c *gin.Context) {
	link, err := s.tiktok.Download(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

func (s *Server) youtubeState(c *gin.Context) {
	c.JSON(http.StatusOK, s.youtubeView())
}

func (s *Server) youtubeSubmit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}
	if err := s.youtube.Submit(c.Request.Context(), req.URL); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.youtubeView())
}

func (s *Server) youtubeSelect(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}
	if req.VideoItag != nil {
		if err := s.youtube.SelectVideo(*req.VideoItag); err != nil {
			s.fail(c, err)
			return
		}
	}
	if req.AudioItag != nil {
		if err := s.youtube.SelectAudio(*req.AudioItag); err != nil {
			s.fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, s.youtubeView())
}

func (s *Server) youtubeDownload(c *gin.Context) {
	link, err := s.youtube.Download(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

func (s *Server) tiktokView() tiktokView {
	st := s.tiktok.State()
	return tiktokView{
		SingleState: st,
		CanSubmit:   st.CanSubmit(),
		CanDownload: st.CanDownload(),
		Message:     lastMessage(s.tiktokMsgs),
	}
}

func (s *Server) youtubeView() youtubeView {
	st := s.youtube.State()
	return youtubeView{
		TwoState:     st,
		VideoFormats: toViews(st.VideoFormats()),
		AudioFormats: toViews(st.AudioFormats()),
		CanSubmit:    st.CanSubmit(),
		CanDownload:  st.CanDownload(),
		Message:      lastMessage(s.youtubeMsgs),
	}
}

func lastMessage(r *notifier.Recorder) *notifier.Message {
	if r == nil {
		return nil
	}
	if m, ok := r.Last(); ok {
		return &m
	}
	return nil
}

func toViews(formats []models.FormatOption) []formatView {
	views := make([]formatView, 0, len(formats))
	for _, f := range formats {
		views = append(views, formatView{Itag: f.Itag, Label: f.Label()})
	}
	return views
}

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, resolver.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, resolver.ErrBusy):
		status = http.StatusConflict
	case errors.Is(err, backend.ErrBackend):
		status = http.StatusBadGateway
	}
	s.logger.Debug("request failed", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}
