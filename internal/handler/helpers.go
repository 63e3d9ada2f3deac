package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"tablepos/internal/apierror"
	"tablepos/internal/cart"
	"tablepos/internal/dto"
	"tablepos/internal/kot"
	"tablepos/internal/middleware"
	"tablepos/internal/printing"
	"tablepos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
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

// bindQuery is bindAndValidate for query-string filters.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid query: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

func validateStruct(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// paramID parses a UUID path parameter, answering 400 when malformed.
func paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// session builds the caller from the JWT claims. The bridge flag comes from
// the header the mobile host app adds to every request.
func session(c *gin.Context) service.Session {
	claims := middleware.GetClaims(c)
	sess := service.Session{
		Username: claims.Username,
		Name:     claims.Name,
		Role:     claims.Role,
	}
	sess.RestaurantID, _ = uuid.Parse(claims.RestaurantID)
	sess.UserID, _ = uuid.Parse(claims.UserID)
	sess.Bridge, _ = strconv.ParseBool(c.GetHeader(middleware.PrintBridgeHeader))
	return sess
}

// windowOpener returns a page sink when the client can show the print page
// itself, i.e. it asked for HTML.
func windowOpener(c *gin.Context) printing.WindowOpener {
	if strings.Contains(c.GetHeader("Accept"), "text/html") {
		return &printing.PageOpener{}
	}
	return nil
}

// ── Error mapping ─────────────────────────────────────────────────────────────

var (
	notFound = []error{
		service.ErrStaffNotFound, service.ErrCategoryNotFound, service.ErrMenuItemNotFound,
		service.ErrTableNotFound, service.ErrBillNotFound, service.ErrItemNotInCart,
		service.ErrNoOpenBill, service.ErrCashEntryNotFound,
	}
	conflict = []error{
		service.ErrCategoryExists, service.ErrTableExists, service.ErrTableOccupied,
		service.ErrBillNotSaved, service.ErrNothingToPrint, kot.ErrNothingToCut,
	}
	badRequest = []error{
		service.ErrUnknownCategory, service.ErrMenuItemHidden, service.ErrNegativePrice,
		service.ErrEmptyCart, service.ErrDiscountTooLarge, service.ErrSelfDeactivate,
		service.ErrInvalidAmount, service.ErrInvalidDateRange,
		cart.ErrDiscountExceedsLine, cart.ErrInvalidSpice,
	}
)

func matches(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// respondError writes the status for a known domain error. Print failures,
// including having no reachable printer, are 502 and retryable. Anything
// else is attached to the context for ErrorHandler, which logs it and
// answers 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, apierror.New(service.ErrInvalidCredentials.Error()))
	case matches(err, notFound):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
	case matches(err, conflict):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case matches(err, badRequest):
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
	case errors.Is(err, printing.ErrDispatch), errors.Is(err, printing.ErrNoTarget):
		c.JSON(http.StatusBadGateway, apierror.NewRetryable(err.Error()))
	default:
		_ = c.Error(err)
	}
}

// printed answers a print request: the HTML page for window targets, the
// JSON summary otherwise.
func printed(c *gin.Context, res printing.Result, body interface{}) {
	if res.Target == printing.TargetWindow && len(res.Page) > 0 {
		c.Data(http.StatusOK, "text/html; charset=utf-8", res.Page)
		return
	}
	c.JSON(http.StatusOK, body)
}

// bindPrint reads an optional PrintRequest; an empty body means automatic
// target selection.
func bindPrint(c *gin.Context) (dto.PrintRequest, bool) {
	var req dto.PrintRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	return req, bindAndValidate(c, &req)
}
