package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"tutorcenter/internal/tutoring"
)

var errBadBody = tutoring.NewValidationError("invalid request body")

// bind decodes the request into obj and writes the error response on failure.
func (h *Handler) bind(c *gin.Context, obj any) bool {
	if err := c.ShouldBind(obj); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			err = errBadBody
		}
		h.fail(c, err)
		return false
	}
	return true
}

func (h *Handler) bindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			err = tutoring.NewValidationError("invalid query")
		}
		h.fail(c, err)
		return false
	}
	return true
}

// fail maps err to a status code and JSON body.
func (h *Handler) fail(c *gin.Context, err error) {
	var code int
	var message any

	var verrs validator.ValidationErrors
	var terr *tutoring.Error
	switch {
	case errors.As(err, &verrs):
		fldErrs := make(map[string]string, len(verrs))
		for _, vErr := range verrs {
			if Translator != nil {
				fldErrs[vErr.Field()] = vErr.Translate(Translator)
			} else {
				fldErrs[vErr.Field()] = vErr.Error()
			}
		}
		code = http.StatusBadRequest
		message = fldErrs
	case errors.As(err, &terr):
		code = statusFor(terr.Kind)
		if terr.Kind == tutoring.KindValidation && len(terr.Fields) > 0 {
			fldErrs := make(map[string]string, len(terr.Fields))
			for _, fErr := range terr.Fields {
				fldErrs[fErr.Field] = fErr.Error
			}
			message = fldErrs
		} else {
			message = gin.H{"error": terr.Error()}
		}
	default:
		code = http.StatusInternalServerError
		message = gin.H{"error": http.StatusText(code)}
		h.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(code, message)
}

func statusFor(k tutoring.Kind) int {
	switch k {
	case tutoring.KindNotFound:
		return http.StatusNotFound
	case tutoring.KindConflict:
		return http.StatusConflict
	case tutoring.KindValidation, tutoring.KindInvalidState:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
