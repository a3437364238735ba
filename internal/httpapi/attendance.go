package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tutorcenter/internal/queue"
	"tutorcenter/internal/tutoring"
)

type scanBody struct {
	StudentID string `json:"studentId" binding:"required"`
	ClassID   string `json:"classId" binding:"required"`
	Status    string `json:"status" binding:"omitempty,attstatus"`
	Notes     string `json:"notes"`
}

type rangeQuery struct {
	From string `form:"from" binding:"omitempty,date"`
	To   string `form:"to" binding:"omitempty,date"`
}

func (h *Handler) markAttendance(c *gin.Context) {
	var body scanBody
	if !h.bind(c, &body) {
		return
	}
	a, err := h.svc.MarkAttendance(c.Request.Context(), tutoring.AttendanceRequest{
		StudentID: body.StudentID,
		ClassID:   body.ClassID,
		Status:    tutoring.AttendanceStatus(body.Status),
		Notes:     body.Notes,
		MarkedBy:  actorID(c),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Attendance recorded successfully", "attendance": a})
}

func (h *Handler) studentAttendance(c *gin.Context) {
	var q rangeQuery
	if !h.bindQuery(c, &q) {
		return
	}
	records, err := h.svc.StudentAttendance(c.Request.Context(), c.Param("id"), tutoring.DateRange{
		From: optionalDate(q.From),
		To:   optionalDate(q.To),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) classAttendanceToday(c *gin.Context) {
	entries, err := h.svc.ClassAttendanceToday(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// markAbsentees runs the absentee pass inline, or hands it to the worker
// when async=true and a queue is configured.
func (h *Handler) markAbsentees(c *gin.Context) {
	ctx := c.Request.Context()
	classID := c.Param("id")

	if c.Query("async") == "true" && h.queue != nil {
		if _, err := h.svc.GetClass(ctx, classID); err != nil {
			h.fail(c, err)
			return
		}
		msg, err := queue.NewMessage(queue.TypeMarkAbsentees, queue.MarkAbsenteesJob{ClassID: classID, MarkedBy: actorID(c)})
		if err != nil {
			h.fail(c, err)
			return
		}
		if err := h.queue.Publish(ctx, msg); err != nil {
			h.fail(c, fmt.Errorf("publish %s: %w", msg.Type, err))
			return
		}
		h.log.Info("absentee job queued", zap.String("class_id", classID))
		c.JSON(http.StatusAccepted, gin.H{"message": "Absentee marking queued", "classId": classID})
		return
	}

	created, err := h.svc.MarkAbsentees(ctx, classID, actorID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": fmt.Sprintf("%d students marked as absent", len(created)),
		"records": created,
	})
}
