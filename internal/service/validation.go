package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/healthcare-admin-api/internal/models"
	appErrors "github.com/noah-isme/healthcare-admin-api/pkg/errors"
)

var (
	phonePattern     = regexp.MustCompile(`^\+?1?\d{9,15}$`)
	shortCodePattern = regexp.MustCompile(`^[A-Z0-9]+$`)
)

// NewValidator returns a validator that reports json field names and knows the
// phone and shortcode tags.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("shortcode", func(fl validator.FieldLevel) bool {
		return shortCodePattern.MatchString(fl.Field().String())
	})
	return v
}

// validationError converts validator output into a VALIDATION_ERROR with one detail per field.
func validationError(err error, message string) *appErrors.Error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		if _, seen := details[fe.Field()]; !seen {
			details[fe.Field()] = fieldMessage(fe)
		}
	}
	out := appErrors.WithDetails(appErrors.ErrValidation, message, details)
	out.Err = err
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "lte":
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "phone":
		return "Enter a valid phone number (e.g., +1234567890)."
	case "shortcode":
		return "Only uppercase letters and numbers are allowed."
	default:
		return fmt.Sprintf("Failed on the '%s' rule.", fe.Tag())
	}
}

// validID reports whether id can name a stored row; anything else is treated as absent.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func internalError(err error, message string) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func paginate(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
