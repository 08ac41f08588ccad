package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	trans    ut.Translator
	initOnce sync.Once

	providerIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// InitValidator configures gin's validator engine with json field names,
// English translations and the custom tags. Safe to call more than once.
func InitValidator() {
	initOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		_ = v.RegisterValidation("provider_id", func(fl validator.FieldLevel) bool {
			return providerIDPattern.MatchString(fl.Field().String())
		})

		locale := en.New()
		uni := ut.New(locale, locale)
		trans, _ = uni.GetTranslator("en")

		_ = en_translations.RegisterDefaultTranslations(v, trans)
		_ = v.RegisterTranslation("provider_id", trans,
			func(ut ut.Translator) error {
				return ut.Add("provider_id", "{0} can only contain letters, numbers, underscores, and hyphens", true)
			},
			func(ut ut.Translator, fe validator.FieldError) string {
				t, _ := ut.T("provider_id", fe.Field())
				return t
			},
		)
		_ = v.RegisterTranslation("http_url", trans,
			func(ut ut.Translator) error {
				return ut.Add("http_url", "{0} must be an http or https URL with a host", true)
			},
			func(ut ut.Translator, fe validator.FieldError) string {
				t, _ := ut.T("http_url", fe.Field())
				return t
			},
		)
	})
}

// ParseValidationError converts raw binding errors into a field -> message map.
func ParseValidationError(err error) map[string]string {
	errMap := make(map[string]string)

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			ns := e.Namespace()

			if i := strings.Index(ns, "."); i != -1 {
				ns = ns[i+1:]
			}

			msg := e.Error()
			if trans != nil {
				msg = e.Translate(trans)
			}

			if e.Tag() == "oneof" {
				msg = fmt.Sprintf("must be one of [%s]", strings.ReplaceAll(e.Param(), " ", ", "))
			}

			errMap[ns] = msg
		}
		return errMap
	}

	errMap["body"] = "Invalid request body format. Please fix your payload."
	return errMap
}
