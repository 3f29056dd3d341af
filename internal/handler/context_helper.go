package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/healthcare-admin-api/internal/middleware"
	"github.com/noah-isme/healthcare-admin-api/internal/models"
	appErrors "github.com/noah-isme/healthcare-admin-api/pkg/errors"
)

const queryDateLayout = "2006-01-02"

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		return nil
	}
	return claims
}

// invalidPayload maps a bind failure to a validation error, naming the field
// when the body decoded but a value had the wrong JSON type.
func invalidPayload(err error) *appErrors.Error {
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) && ute.Field != "" && ute.Type != nil {
		return appErrors.Field(appErrors.ErrValidation, ute.Field, typeMismatchMessage(ute.Type.Kind()))
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
}

func typeMismatchMessage(kind reflect.Kind) string {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "A valid integer is required."
	case reflect.Float32, reflect.Float64:
		return "A valid number is required."
	case reflect.String:
		return "Not a valid string."
	case reflect.Bool:
		return "Must be a valid boolean."
	}
	return "Invalid value."
}

// pageParams reads page and limit, leaving zero values for the service to default.
func pageParams(c *gin.Context) (page, size int) {
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		page = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		size = v
	}
	return page, size
}

// dateRange parses inclusive YYYY-MM-DD query bounds; the upper bound becomes
// the start of the following day.
func dateRange(c *gin.Context, fromKey, toKey string) (*time.Time, *time.Time, error) {
	details := map[string]string{}
	var from, to *time.Time
	if raw := strings.TrimSpace(c.Query(fromKey)); raw != "" {
		t, err := time.ParseInLocation(queryDateLayout, raw, time.UTC)
		if err != nil {
			details[fromKey] = "Enter a valid date (YYYY-MM-DD)."
		} else {
			from = &t
		}
	}
	if raw := strings.TrimSpace(c.Query(toKey)); raw != "" {
		t, err := time.ParseInLocation(queryDateLayout, raw, time.UTC)
		if err != nil {
			details[toKey] = "Enter a valid date (YYYY-MM-DD)."
		} else {
			end := t.Add(24 * time.Hour)
			to = &end
		}
	}
	if len(details) > 0 {
		return nil, nil, appErrors.WithDetails(appErrors.ErrValidation, "invalid date filter", details)
	}
	return from, to, nil
}
