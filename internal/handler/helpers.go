package handler

import (
	"errors"
	"net/http"
	"reflect"

	"github.com/oliklab/mledger-sub000/internal/apierror"
	"github.com/oliklab/mledger-sub000/internal/middleware"
	"github.com/oliklab/mledger-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

// bindQuery binds and validates query-string filters.
func bindQuery(c *gin.Context, filter interface{}) bool {
	if err := c.ShouldBindQuery(filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid query: "+err.Error()))
		return false
	}
	return validateStruct(c, filter)
}

func validateStruct(c *gin.Context, v interface{}) bool {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string)
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// paramID parses the :id path parameter, writing 400 on failure.
func paramID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

// currentUser returns the id set by JWTAuth. Routes are always mounted
// behind it, so a missing id is a wiring bug and answered with 401.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("authentication required"))
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps the ledger error taxonomy onto HTTP. Messages of typed
// errors are client-safe; their causes and every untyped error are only
// logged.
func respondError(c *gin.Context, err error) {
	var le *service.Error
	if !errors.As(err, &le) {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, apierror.New("internal server error"))
		return
	}

	code := le.Code
	if code == "" {
		code = le.Kind.String()
	}
	switch le.Kind {
	case service.KindValidation:
		c.JSON(http.StatusUnprocessableEntity, apierror.WithCode(code, le.Msg))
	case service.KindNotFound:
		c.JSON(http.StatusNotFound, apierror.WithCode(code, le.Msg))
	case service.KindInsufficientStock:
		c.JSON(http.StatusConflict, apierror.WithCode(code, le.Msg))
	case service.KindConflict:
		c.Header("Retry-After", "1")
		c.JSON(http.StatusConflict, apierror.WithCode(code, le.Msg))
	case service.KindIntegrity:
		log.Error().
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("path", c.FullPath()).
			Err(err).
			Msg("ledger integrity violation")
		c.JSON(http.StatusInternalServerError, apierror.WithCode(code, le.Msg))
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, apierror.New("internal server error"))
	}
}
