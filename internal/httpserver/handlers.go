package httpserver

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vsource/hero/internal/banner"
	"github.com/vsource/hero/internal/model"
	"github.com/vsource/hero/internal/slideshow"
	"go.uber.org/zap"
)

// heroView is the payload of GET /api/hero and of each event on the stream.
type heroView struct {
	Snapshot model.Snapshot `json:"snapshot"`
	Layers   []model.Layer  `json:"layers"`
	Slide    *model.Slide   `json:"slide,omitempty"`
}

func (s *Server) view(snap model.Snapshot) heroView {
	v := heroView{Snapshot: snap, Layers: slideshow.Layers(snap)}
	// A queued snapshot may predate a remount; never pair it with the new deck.
	if slide, ok := s.banner.SlideOf(snap); ok {
		v.Slide = &slide
	}
	return v
}

// fail maps a banner error to a JSON error response.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, banner.ErrClosed) {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// respond runs a banner operation and replies with the resulting state.
func (s *Server) respond(c *gin.Context, op func() error) {
	if err := op(); err != nil {
		fail(c, err)
		return
	}
	snap, err := s.banner.Snapshot()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.view(snap))
}

func (s *Server) handleHealth(c *gin.Context) {
	snap, err := s.banner.Snapshot()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"uptime":   time.Since(s.startTime).String(),
		"mount_id": snap.MountID,
		"slides":   snap.Count,
	})
}

func (s *Server) handleHero(c *gin.Context) {
	s.respond(c, func() error { return nil })
}

func (s *Server) handleSlides(c *gin.Context) {
	slides, err := s.banner.Slides()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slides": slides, "count": len(slides)})
}

func (s *Server) handleNext(c *gin.Context) {
	s.respond(c, s.banner.Next)
}

func (s *Server) handlePrevious(c *gin.Context) {
	s.respond(c, s.banner.Previous)
}

func indexParam(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be an integer"})
		return 0, false
	}
	return index, true
}

// handleGoTo accepts any integer; indices outside the deck are ignored by
// the controller and the unchanged state is returned.
func (s *Server) handleGoTo(c *gin.Context) {
	index, ok := indexParam(c)
	if !ok {
		return
	}
	s.respond(c, func() error { return s.banner.GoTo(index) })
}

func (s *Server) handleReady(c *gin.Context) {
	index, ok := indexParam(c)
	if !ok {
		return
	}
	s.respond(c, func() error { return s.banner.ImageReady(index) })
}

func (s *Server) handleTouch(c *gin.Context) {
	var req struct {
		Phase string   `json:"phase" binding:"required,oneof=start end"`
		X     *float64 `json:"x" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: phase must be start or end and x is required"})
		return
	}

	x := *req.X
	if req.Phase == "start" {
		s.respond(c, func() error { return s.banner.TouchStart(x) })
		return
	}
	s.respond(c, func() error { return s.banner.TouchEnd(x) })
}

func (s *Server) handleVisibility(c *gin.Context) {
	var req struct {
		Hidden *bool `json:"hidden" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing hidden field"})
		return
	}
	s.respond(c, func() error { return s.banner.SetPaused(model.PauseHidden, *req.Hidden) })
}

func (s *Server) handleHover(c *gin.Context) {
	var req struct {
		Hovering *bool `json:"hovering" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing hovering field"})
		return
	}
	s.respond(c, func() error { return s.banner.SetPaused(model.PauseHover, *req.Hovering) })
}

func (s *Server) handleCTA(c *gin.Context) {
	target, err := s.banner.Activate()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"target": target})
}

func (s *Server) handleStats(c *gin.Context) {
	if s.stats == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "analytics disabled"})
		return
	}

	stats, err := s.stats.SlideStats()
	if err != nil {
		s.logger.Error("slide stats query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read slide stats"})
		return
	}
	total, err := s.stats.TotalImpressions()
	if err != nil {
		s.logger.Error("impression count failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read impression count"})
		return
	}
	if stats == nil {
		stats = []model.SlideStat{}
	}

	c.JSON(http.StatusOK, gin.H{
		"slides":            stats,
		"total_impressions": total,
	})
}

// handleEvents streams a "snapshot" server-sent event for every state
// change, starting with the current state.
func (s *Server) handleEvents(c *gin.Context) {
	ch, cancel := s.banner.Subscribe()
	defer cancel()

	// Event streams outlive the server's write timeout.
	if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Debug("write deadline not cleared", zap.Error(err))
	}
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	c.Stream(func(io.Writer) bool {
		select {
		case snap, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("snapshot", s.view(snap))
			return snap.Live
		case <-ctx.Done():
			return false
		}
	})
}
