package integrations

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/nulzo/chat-router/internal/gateway"
)

const (
	MaxNameLength = 255
	MaxURLLength  = 2048
)

// InvalidInputError is a user-facing validation failure.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return e.Field + ": " + e.Reason
}

var dangerousName = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script[^>]*>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)onerror=`),
	regexp.MustCompile(`(?i)onload=`),
	regexp.MustCompile(`(?i)onclick=`),
	regexp.MustCompile(`(?i)<iframe[^>]*>`),
	regexp.MustCompile(`(?i)<object[^>]*>`),
	regexp.MustCompile(`(?i)<embed[^>]*>`),
}

var dangerousURL = []string{"<script", "javascript:", "onerror="}

// validate runs the same rules as the HTTP binding for callers outside gin.
var validate = validator.New()

// ValidateName trims name and rejects empty, oversized or markup-bearing values.
func ValidateName(name, field string) (string, error) {
	name = strings.TrimSpace(name)
	if err := validate.Var(name, fmt.Sprintf("required,max=%d", MaxNameLength)); err != nil {
		return "", fieldError(field, err)
	}
	for _, re := range dangerousName {
		if re.MatchString(name) {
			return "", &InvalidInputError{Field: field, Reason: "contains potentially dangerous content"}
		}
	}
	return name, nil
}

// ValidateURL trims raw and checks it is an http(s) URL with a host. Loopback
// hosts are allowed here; whether they can be reached is decided at request time.
func ValidateURL(raw, field string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if err := validate.Var(raw, fmt.Sprintf("max=%d,http_url", MaxURLLength)); err != nil {
		return "", fieldError(field, err)
	}

	lower := strings.ToLower(raw)
	for _, bad := range dangerousURL {
		if strings.Contains(lower, bad) {
			return "", &InvalidInputError{Field: field, Reason: "contains potentially dangerous content"}
		}
	}
	return raw, nil
}

func fieldError(field string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &InvalidInputError{Field: field, Reason: "has an invalid format"}
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return &InvalidInputError{Field: field, Reason: "is required"}
	case "max":
		return &InvalidInputError{Field: field, Reason: fmt.Sprintf("is too long (max %s characters)", fe.Param())}
	case "http_url":
		return &InvalidInputError{Field: field, Reason: "must be an http or https URL with a host"}
	default:
		return &InvalidInputError{Field: field, Reason: "has an invalid format"}
	}
}

// ProviderID derives the custom provider id for an integration name:
// lower-cased, spaces to underscores, anything but letters, digits, '_' and
// '-' dropped.
func ProviderID(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r == ' ':
			b.WriteRune('_')
		case r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		}
	}
	return gateway.CustomPrefix + b.String()
}
