package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"vaxline/internal/models"
	"vaxline/internal/schedule"
)

const confirmTimeout = 15 * time.Second

// SaveData handles POST /saveData: validate, compute the dose schedule,
// append the record, then kick off the confirmation push and the deferred
// reminder. Only the append decides success or failure of the request; the
// two follow-up actions are initiated before the response but never awaited.
func (h *Handler) SaveData(c *gin.Context) {
	var req models.SubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid JSON body"})
		return
	}

	if missing := req.MissingFields(); len(missing) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "missing required field(s): " + strings.Join(missing, ", "),
		})
		return
	}

	followUps, err := schedule.FollowUpDates(req.VaccineName, req.AppointmentDate)
	if err != nil {
		var pe *schedule.ParseError
		if errors.As(err, &pe) {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": pe.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "could not compute dose schedule"})
		return
	}

	formTime := req.FormTime
	if formTime == "" {
		formTime = time.Now().In(h.loc).Format("2006-01-02 15:04:05")
	}

	rec := models.AppointmentRecord{
		SubmissionID:  uuid.NewString(),
		UserID:        req.UserID,
		UserName:      req.UserName,
		UserPhone:     req.UserPhone,
		VaccineName:   req.VaccineName,
		FirstDoseDate: req.AppointmentDate,
		FormTimestamp: formTime,
	}
	if len(followUps) > 0 {
		rec.SecondDoseDate = followUps[0]
	}
	if len(followUps) > 1 {
		rec.ThirdDoseDate = followUps[1]
	}

	row, err := h.store.Append(c.Request.Context(), rec)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", rec.UserID).Msg("record append failed")
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "failed to save appointment"})
		return
	}
	h.log.Info().Int("row", row).Str("submission_id", rec.SubmissionID).Str("vaccine", rec.VaccineName).Msg("appointment recorded")

	// Best-effort from here on: the submitter already owns row N, and a
	// missed notification must not turn the response into a failure.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), confirmTimeout)
		defer cancel()
		if err := h.notifier.SendConfirmation(ctx, rec); err != nil {
			h.log.Warn().Err(err).Str("user_id", rec.UserID).Msg("confirmation push failed")
		}
	}()
	if rec.SecondDoseDate != "" {
		h.reminders.Schedule(rec.SubmissionID)
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "appointment saved"})
}
