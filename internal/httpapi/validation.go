package httpapi

import (
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"tutorcenter/internal/tutoring"
)

var (
	// Translator renders validation errors in English.
	Translator ut.Translator
	setupOnce  sync.Once
)

const dateLayout = "2006-01-02"

var customTags = map[string]struct {
	text string
	fn   validator.Func
}{
	"month": {"must be a month in YYYY-MM format", func(fl validator.FieldLevel) bool {
		_, err := tutoring.ParseMonth(fl.Field().String())
		return err == nil
	}},
	"weekday": {"must be a day of the week", func(fl validator.FieldLevel) bool {
		_, ok := tutoring.CanonicalDay(fl.Field().String())
		return ok
	}},
	"clock": {"must be a time in HH:MM format", func(fl validator.FieldLevel) bool {
		return tutoring.ValidClock(fl.Field().String())
	}},
	"paymethod": {"must be one of cash, card, bank, online, other", func(fl validator.FieldLevel) bool {
		return tutoring.PaymentMethod(fl.Field().String()).Valid()
	}},
	"attstatus": {"must be one of present, absent, late, excused", func(fl validator.FieldLevel) bool {
		return tutoring.AttendanceStatus(fl.Field().String()).Valid()
	}},
	"date": {"must be a date in YYYY-MM-DD format", func(fl validator.FieldLevel) bool {
		_, err := parseDate(fl.Field().String())
		return err == nil
	}},
}

// setupValidator configures gin's validator engine once per process.
func setupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_en := en.New()
		uni := ut.New(_en, _en)
		Translator, _ = uni.GetTranslator("en")
		_ = en_translations.RegisterDefaultTranslations(v, Translator)

		// Use JSON tag names for errors instead of Go struct names.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			if name == "-" {
				return ""
			}
			return name
		})

		for tag, ct := range customTags {
			_ = v.RegisterValidation(tag, ct.fn)
			registerTranslation(v, tag, ct.text, false)
		}
		registerTranslation(v, "required", "this field is required", true)
	})
}

func registerTranslation(v *validator.Validate, tag, text string, override bool) {
	_ = v.RegisterTranslation(
		tag, Translator,
		func(t ut.Translator) error { return t.Add(tag, text, override) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// parseDate accepts a calendar date or an RFC 3339 timestamp. A timestamp
// keeps its offset, so the day is the one written by the caller.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// optionalDate parses s, which has already passed the date tag.
func optionalDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := parseDate(s)
	if err != nil {
		return nil
	}
	return &t
}
