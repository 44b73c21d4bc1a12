// Package validation checks candidate capacity records before they are
// persisted, whether they arrive through manual submission or bulk upload.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	e "github.com/gartstein/capacity/internal/capacity/errors"
	"github.com/gartstein/capacity/internal/capacity/models"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// RowValidator applies the record-level rules. It holds no state besides
// the cached validator and is safe for concurrent use.
type RowValidator struct {
	validate *validator.Validate
}

// NewRowValidator builds a RowValidator that reports fields by their JSON
// names and compares decimal fields exactly.
func NewRowValidator() *RowValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("dgt", compareDecimal(func(c int) bool { return c > 0 }))
	_ = v.RegisterValidation("dgte", compareDecimal(func(c int) bool { return c >= 0 }))

	return &RowValidator{validate: v}
}

// Validate returns nil for an acceptable record, otherwise a *errors.FieldError
// describing the first rule broken, in field order.
func (r *RowValidator) Validate(rec *models.CapacityRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: nil record", e.ErrInvalidInput)
	}
	err := r.validate.Struct(rec)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
	}
	return toFieldError(verrs[0])
}

// compareDecimal builds a rule comparing a decimal field with the tag
// parameter exactly, without a float conversion.
func compareDecimal(ok func(cmp int) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		d, isDecimal := fl.Field().Interface().(decimal.Decimal)
		if !isDecimal {
			return false
		}
		bound, err := decimal.NewFromString(fl.Param())
		if err != nil {
			return false
		}
		return ok(d.Cmp(bound))
	}
}

func toFieldError(fe validator.FieldError) *e.FieldError {
	switch fe.Tag() {
	case "notblank", "required":
		return e.NewMissingFieldError(fe.Field())
	case "gt", "dgt":
		return e.NewInvalidValueError(fe.Field(), "must be greater than "+fe.Param())
	case "gte", "dgte":
		return e.NewInvalidValueError(fe.Field(), "must not be less than "+fe.Param())
	case "lte":
		return e.NewInvalidValueError(fe.Field(), "must not be greater than "+fe.Param())
	default:
		return e.NewInvalidValueError(fe.Field(), "failed "+fe.Tag())
	}
}
