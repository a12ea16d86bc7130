// Package handlers exposes the HTTP surface: the submission endpoint plus
// the thin landing-page, health and client-log routes.
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"vaxline/internal/models"
)

// SubmissionStore is the slice of the record store the HTTP layer uses.
type SubmissionStore interface {
	Append(ctx context.Context, rec models.AppointmentRecord) (int, error)
}

// ConfirmationSender pushes the booking confirmation.
type ConfirmationSender interface {
	SendConfirmation(ctx context.Context, rec models.AppointmentRecord) error
}

// ReminderQueue enqueues the deferred reminder task for a submission.
type ReminderQueue interface {
	Schedule(submissionID string) string
}

// Handler carries the injected collaborators for every route.
type Handler struct {
	store     SubmissionStore
	notifier  ConfirmationSender
	reminders ReminderQueue
	loc       *time.Location
	staticDir string
	log       zerolog.Logger
}

func New(store SubmissionStore, notifier ConfirmationSender, reminders ReminderQueue, loc *time.Location, staticDir string, log zerolog.Logger) *Handler {
	return &Handler{
		store:     store,
		notifier:  notifier,
		reminders: reminders,
		loc:       loc,
		staticDir: staticDir,
		log:       log,
	}
}

// Register wires all routes onto the router.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/", h.Home)
	r.GET("/health", h.Health)
	r.POST("/saveData", h.SaveData)
	r.POST("/log", h.ClientLog)
}

// Home serves the booking form landing page.
func (h *Handler) Home(c *gin.Context) {
	c.File(h.staticDir + "/index.html")
}

// Health is a simple health check endpoint.
func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// ClientLog accepts error reports from the front-end form.
func (h *Handler) ClientLog(c *gin.Context) {
	var body struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "missing message"})
		return
	}
	h.log.Info().Str("client_ip", clientIP(c)).Str("message", body.Message).Msg("client-side error report")
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// clientIP prefers proxy-set headers over the socket address.
func clientIP(c *gin.Context) string {
	if ip := c.GetHeader("X-Real-IP"); ip != "" {
		return ip
	}
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		if parts := strings.Split(xff, ","); len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	return c.ClientIP()
}
