package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"tutorcenter/internal/media"
	"tutorcenter/internal/qr"
	"tutorcenter/internal/tutoring"
)

type studentBody struct {
	Name            string `json:"name" form:"name" binding:"required"`
	NIC             string `json:"nic" form:"nic" binding:"required"`
	SchoolName      string `json:"schoolName" form:"schoolName" binding:"required"`
	Email           string `json:"email" form:"email" binding:"required,email"`
	Age             int    `json:"age" form:"age" binding:"required,min=1,max=120"`
	Contact         string `json:"contact" form:"contact" binding:"required"`
	Address         string `json:"address" form:"address"`
	GuardianName    string `json:"guardianName" form:"guardianName"`
	GuardianContact string `json:"guardianContact" form:"guardianContact"`
	AdmissionDate   string `json:"admissionDate" form:"admissionDate" binding:"omitempty,date"`
	Stream          string `json:"stream" form:"stream" binding:"required"`
	ProfilePicture  string `json:"profilePicture" form:"-"`
}

type studentPatch struct {
	Name            *string `json:"name" form:"name"`
	NIC             *string `json:"nic" form:"nic"`
	SchoolName      *string `json:"schoolName" form:"schoolName"`
	Email           *string `json:"email" form:"email" binding:"omitempty,email"`
	Age             *int    `json:"age" form:"age" binding:"omitempty,min=1,max=120"`
	Contact         *string `json:"contact" form:"contact"`
	Address         *string `json:"address" form:"address"`
	GuardianName    *string `json:"guardianName" form:"guardianName"`
	GuardianContact *string `json:"guardianContact" form:"guardianContact"`
	AdmissionDate   *string `json:"admissionDate" form:"admissionDate" binding:"omitempty,date"`
	Stream          *string `json:"stream" form:"stream"`
	ProfilePicture  *string `json:"profilePicture" form:"-"`
}

// upload stores the profilePicture file of a multipart request. It returns
// an empty reference when the request carries no file.
func (h *Handler) upload(c *gin.Context) (string, error) {
	if c.ContentType() != binding.MIMEMultipartPOSTForm {
		return "", nil
	}
	fh, err := c.FormFile("profilePicture")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", tutoring.NewValidationError("invalid upload")
	}
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, ext, err := media.Read(f, fh.Filename, h.maxUpload)
	switch {
	case errors.Is(err, media.ErrNotImage):
		return "", tutoring.NewValidationError("Only image files are allowed",
			tutoring.FieldError{Field: "profilePicture", Error: "only image files are allowed"})
	case errors.Is(err, media.ErrTooLarge):
		return "", tutoring.NewValidationError("Image is too large",
			tutoring.FieldError{Field: "profilePicture", Error: "image exceeds the upload limit"})
	case err != nil:
		return "", err
	}
	return h.media.Save(c.Request.Context(), "profile"+ext, data)
}

func (h *Handler) createStudent(c *gin.Context) {
	var body studentBody
	if !h.bind(c, &body) {
		return
	}
	picture, err := h.upload(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if picture == "" {
		picture = body.ProfilePicture
	}
	stu, err := h.svc.CreateStudent(c.Request.Context(), tutoring.NewStudent{
		Name:            body.Name,
		NIC:             body.NIC,
		SchoolName:      body.SchoolName,
		Email:           body.Email,
		Age:             body.Age,
		Contact:         body.Contact,
		Address:         body.Address,
		GuardianName:    body.GuardianName,
		GuardianContact: body.GuardianContact,
		AdmissionDate:   optionalDate(body.AdmissionDate),
		Stream:          body.Stream,
		ProfilePicture:  picture,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Student added successfully", "student": stu})
}

func (h *Handler) listStudents(c *gin.Context) {
	students, err := h.svc.ListStudents(c.Request.Context(), c.Query("search"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, students)
}

func (h *Handler) lookupStudent(c *gin.Context) {
	stu, err := h.svc.LookupStudent(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stu)
}

func (h *Handler) getStudent(c *gin.Context) {
	d, err := h.svc.GetStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) studentQR(c *gin.Context) {
	d, err := h.svc.GetStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	size := qr.DefaultSize
	if v := c.Query("size"); v != "" {
		if size, err = strconv.Atoi(v); err != nil {
			h.fail(c, tutoring.NewValidationError("size must be a number"))
			return
		}
	}
	png, err := qr.PNG(qr.Payload{StudentID: d.ID, Name: d.Name, NIC: d.NIC}, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) updateStudent(c *gin.Context) {
	var body studentPatch
	if !h.bind(c, &body) {
		return
	}
	picture, err := h.upload(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if picture != "" {
		body.ProfilePicture = &picture
	}
	up := tutoring.StudentUpdate{
		Name:            body.Name,
		NIC:             body.NIC,
		SchoolName:      body.SchoolName,
		Email:           body.Email,
		Age:             body.Age,
		Contact:         body.Contact,
		Address:         body.Address,
		GuardianName:    body.GuardianName,
		GuardianContact: body.GuardianContact,
		Stream:          body.Stream,
		ProfilePicture:  body.ProfilePicture,
	}
	if body.AdmissionDate != nil {
		up.AdmissionDate = optionalDate(*body.AdmissionDate)
	}
	stu, err := h.svc.UpdateStudent(c.Request.Context(), c.Param("id"), up)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student updated successfully", "student": stu})
}

func (h *Handler) deleteStudent(c *gin.Context) {
	if err := h.svc.DeleteStudent(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student deleted successfully"})
}

type classRef struct {
	ClassID string `json:"classId" binding:"required"`
}

func (h *Handler) enroll(c *gin.Context) {
	var body classRef
	if !h.bind(c, &body) {
		return
	}
	e, err := h.svc.Enroll(c.Request.Context(), c.Param("id"), body.ClassID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student enrolled successfully", "enrollment": e})
}

func (h *Handler) unenroll(c *gin.Context) {
	var body classRef
	if !h.bind(c, &body) {
		return
	}
	if err := h.svc.Unenroll(c.Request.Context(), c.Param("id"), body.ClassID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student unenrolled successfully"})
}
