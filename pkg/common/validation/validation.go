package validation

import (
	"reflect"
	"time"

	perrors "github.com/gnrllybttr/pacer/pkg/common/errors"
)

// Positive validates that an integer value is positive (> 0).
// Returns a ValidationError if the value is not positive.
func Positive(module, field string, value int) error {
	if value <= 0 {
		return perrors.NewValidationError(module, field, value, "must be positive").
			WithHint("value must be greater than 0")
	}
	return nil
}

// NonNegative validates that an integer value is non-negative (>= 0).
// Returns a ValidationError if the value is negative.
func NonNegative(module, field string, value int) error {
	if value < 0 {
		return perrors.NewValidationError(module, field, value, "cannot be negative").
			WithHint("use 0 or a positive value")
	}
	return nil
}

// PositiveDuration validates that a duration is positive (> 0).
// Returns a ValidationError if the duration is zero or negative.
func PositiveDuration(module, field string, value time.Duration) error {
	if value <= 0 {
		return perrors.NewValidationError(module, field, value, "must be positive").
			WithHint("provide a duration greater than 0")
	}
	return nil
}

// NonNegativeDuration validates that a duration is non-negative (>= 0).
// Returns a ValidationError if the duration is negative.
func NonNegativeDuration(module, field string, value time.Duration) error {
	if value < 0 {
		return perrors.NewValidationError(module, field, value, "cannot be negative").
			WithHint("use 0 to disable or a positive duration")
	}
	return nil
}

// NotNil validates that an interface value is not nil, including typed
// nils (a nil func, pointer, map, chan, slice, or interface boxed into
// the interface{} parameter).
// Returns a ValidationError if the value is nil.
func NotNil(module, field string, value interface{}) error {
	isNil := value == nil
	if !isNil {
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Func, reflect.Ptr, reflect.Map, reflect.Chan, reflect.Slice, reflect.Interface:
			isNil = rv.IsNil()
		}
	}
	if isNil {
		return perrors.NewValidationError(module, field, nil, "cannot be nil").
			WithHint("provide a valid " + field)
	}
	return nil
}
