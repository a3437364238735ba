package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tutorcenter/internal/tutoring"
)

type teacherBody struct {
	Name    string `json:"name" binding:"required"`
	Subject string `json:"subject" binding:"required"`
	Contact string `json:"contact"`
}

type teacherPatch struct {
	Name    *string `json:"name"`
	Subject *string `json:"subject"`
	Contact *string `json:"contact"`
}

func (h *Handler) createTeacher(c *gin.Context) {
	var body teacherBody
	if !h.bind(c, &body) {
		return
	}
	t, err := h.svc.CreateTeacher(c.Request.Context(), tutoring.NewTeacher(body))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Teacher added successfully", "teacher": t})
}

func (h *Handler) listTeachers(c *gin.Context) {
	ts, err := h.svc.ListTeachers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ts)
}

func (h *Handler) getTeacher(c *gin.Context) {
	t, err := h.svc.GetTeacher(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) updateTeacher(c *gin.Context) {
	var body teacherPatch
	if !h.bind(c, &body) {
		return
	}
	t, err := h.svc.UpdateTeacher(c.Request.Context(), c.Param("id"), tutoring.TeacherUpdate(body))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Teacher updated successfully", "teacher": t})
}

func (h *Handler) deleteTeacher(c *gin.Context) {
	if err := h.svc.DeleteTeacher(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Teacher deleted successfully"})
}

type classBody struct {
	TeacherID string `json:"teacherId" binding:"required"`
	Subject   string `json:"subject" binding:"required"`
	ClassName string `json:"className" binding:"required"`
	Day       string `json:"day" binding:"required,weekday"`
	Time      string `json:"time" binding:"required,clock"`
	Fee       int64  `json:"fee" binding:"min=0"`
}

type classPatch struct {
	TeacherID *string `json:"teacherId"`
	Subject   *string `json:"subject"`
	ClassName *string `json:"className"`
	Day       *string `json:"day" binding:"omitempty,weekday"`
	Time      *string `json:"time" binding:"omitempty,clock"`
	Fee       *int64  `json:"fee" binding:"omitempty,min=0"`
}

type classQuery struct {
	TeacherID string `form:"teacherId"`
	Day       string `form:"day" binding:"omitempty,weekday"`
}

func (h *Handler) createClass(c *gin.Context) {
	var body classBody
	if !h.bind(c, &body) {
		return
	}
	cl, err := h.svc.CreateClass(c.Request.Context(), tutoring.NewClass(body))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Class added successfully", "class": cl})
}

func (h *Handler) listClasses(c *gin.Context) {
	var q classQuery
	if !h.bindQuery(c, &q) {
		return
	}
	f := tutoring.ClassFilter{TeacherID: q.TeacherID}
	if q.Day != "" {
		f.Day, _ = tutoring.CanonicalDay(q.Day)
	}
	cs, err := h.svc.ListClasses(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cs)
}

func (h *Handler) getClass(c *gin.Context) {
	cl, err := h.svc.GetClass(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cl)
}

func (h *Handler) updateClass(c *gin.Context) {
	var body classPatch
	if !h.bind(c, &body) {
		return
	}
	cl, err := h.svc.UpdateClass(c.Request.Context(), c.Param("id"), tutoring.ClassUpdate(body))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Class updated successfully", "class": cl})
}

func (h *Handler) deleteClass(c *gin.Context) {
	if err := h.svc.DeleteClass(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Class deleted successfully"})
}
