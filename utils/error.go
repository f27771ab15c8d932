package utils

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ErrorResponse is the envelope of every non-2xx response.
type ErrorResponse struct {
	Message string         `json:"message"`
	Extra   map[string]any `json:"extra"`
}

// ErrorHandler is a middleware to catch panics and return structured errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				GetLogger().Error("Unhandled panic", zap.Any("error", err))

				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
					Message: "Internal server error",
					Extra:   map[string]any{},
				})
			}
		}()
		c.Next()
	}
}

// JSONError sends a standardized JSON error response
func JSONError(c *gin.Context, status int, message string, extra map[string]any) {
	if extra == nil {
		extra = map[string]any{}
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Message: message, Extra: extra})
}

// RespondError writes err using the envelope. Service errors keep their
// status and detail; anything else is logged and hidden behind a 500.
func RespondError(c *gin.Context, logger *zap.Logger, err error) {
	if se, ok := AsServiceError(err); ok {
		if se.Kind == KindExternalServiceFailure {
			logger.Warn(se.Message, zap.Error(err))
		}
		JSONError(c, se.HTTPStatus(), se.Message, se.Extra)
		return
	}
	logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	JSONError(c, http.StatusInternalServerError, "Internal server error", nil)
}

// BindingError converts a gin binding failure into an InvalidInput error
// with per-field messages.
func BindingError(err error) *ServiceError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewInvalidInput("Validation error", map[string][]string{"non_field_errors": {err.Error()}})
	}
	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		name := fieldPath(fe)
		fields[name] = append(fields[name], describeFieldError(fe))
	}
	return NewInvalidInput("Validation error", fields)
}

// fieldPath drops the root struct name, e.g. "req.products_data[0].quantity" → "products_data[0].quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// UseJSONFieldNames makes gin's validator report json tag names.
func UseJSONFieldNames() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	}
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min":
		if fe.Kind().String() == "slice" {
			return "Ensure this list has at least " + fe.Param() + " element(s)."
		}
		return "Ensure this value is greater than or equal to " + fe.Param() + "."
	case "uuid", "uuid4", "uuid_rfc4122":
		return "Must be a valid UUID."
	default:
		return "Invalid value (" + fe.Tag() + ")."
	}
}
