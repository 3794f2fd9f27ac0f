package service

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"salonledger/internal/domain"
	"salonledger/internal/store"
)

var ErrNotAuthenticated = errors.New("not authenticated")

// ValidationError reports rejected input. It matches store.ErrInvalidInput.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s %s", key, e.Fields[key]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return store.ErrInvalidInput
}

func invalidField(field string, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

// PartialReconciliationError means a sale flow changed product stock and then
// failed. Applied lists the stock changes that landed and need an operator.
type PartialReconciliationError struct {
	SaleID    string
	Operation string
	Step      string
	Applied   []domain.StockDelta
	Err       error
}

func (e *PartialReconciliationError) Error() string {
	id := e.SaleID
	if id == "" {
		id = "(new)"
	}
	return fmt.Sprintf("sale %s: %s stopped at %s after changing stock; manual reconciliation required: %v", id, e.Operation, e.Step, e.Err)
}

func (e *PartialReconciliationError) Unwrap() error {
	return e.Err
}

// Retryable reports whether err came from the document store being
// unreachable rather than from the request itself.
func Retryable(err error) bool {
	return errors.Is(err, store.ErrRemote)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		d, ok := field.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		f, _ := d.Float64()
		return f
	}, decimal.Decimal{})
	return v
}

func validateStruct(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}
	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields[fieldPath(fe)] = describe(fe)
	}
	return out
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "oneof":
		return "must be one of " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "lte", "max":
		return "must be at most " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "datetime":
		return "must match " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}
