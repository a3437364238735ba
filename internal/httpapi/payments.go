package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tutorcenter/internal/tutoring"
)

type paymentBody struct {
	StudentID string     `json:"studentId" binding:"required"`
	ClassID   string     `json:"classId" binding:"required"`
	Month     string     `json:"month" binding:"required,month"`
	Amount    *int64     `json:"amount" binding:"omitempty,min=0"`
	Method    string     `json:"method" binding:"omitempty,paymethod"`
	Reference string     `json:"reference"`
	PaidAt    *time.Time `json:"paidAt"`
}

func (b paymentBody) request() tutoring.PaymentRequest {
	return tutoring.PaymentRequest{
		StudentID: b.StudentID,
		ClassID:   b.ClassID,
		Month:     b.Month,
		Amount:    b.Amount,
		Method:    tutoring.PaymentMethod(b.Method),
		Reference: b.Reference,
		PaidAt:    b.PaidAt,
	}
}

type paymentQuery struct {
	Month     string `form:"month" binding:"omitempty,month"`
	ClassID   string `form:"classId"`
	StudentID string `form:"studentId"`
}

func (h *Handler) recordPayment(c *gin.Context) {
	var body paymentBody
	if !h.bind(c, &body) {
		return
	}
	p, err := h.svc.RecordPayment(c.Request.Context(), body.request())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Payment recorded", "payment": p})
}

func (h *Handler) enrollAndPay(c *gin.Context) {
	var body paymentBody
	if !h.bind(c, &body) {
		return
	}
	res, err := h.svc.EnrollAndPay(c.Request.Context(), body.request())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Enrolled and paid", "payment": res.Payment, "enrolled": res.Enrolled})
}

func (h *Handler) listPayments(c *gin.Context) {
	var q paymentQuery
	if !h.bindQuery(c, &q) {
		return
	}
	ps, err := h.svc.ListPayments(c.Request.Context(), tutoring.PaymentFilter{
		StudentID: q.StudentID,
		ClassID:   q.ClassID,
		Month:     tutoring.Month(q.Month),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ps)
}

func (h *Handler) studentPayments(c *gin.Context) {
	v, err := h.svc.StudentPaymentView(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}
