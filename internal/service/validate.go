package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/Shivanand-hulikatti/canopy-calendar/internal/apperr"
	"github.com/Shivanand-hulikatti/canopy-calendar/internal/model"
	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON names so messages match the request body.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkStruct runs the struct tags of v and turns failures into a single
// validation error.
func checkStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.Invalid("%v", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return apperr.Invalid("%s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "email":
		return fe.Field() + " is not a valid email address"
	case "gtefield":
		return fe.Field() + " must not be before " + strings.ToLower(fe.Param())
	default:
		return fe.Field() + " failed " + fe.Tag() + " validation"
	}
}

// checkEvent validates an event about to be written.
func checkEvent(in model.EventInput) error {
	if err := checkStruct(in); err != nil {
		return err
	}
	if in.End.Before(in.Start) {
		return apperr.Invalid("end must not be before start")
	}
	if in.RecurrenceRule != nil && *in.RecurrenceRule != "" {
		if _, err := rrule.StrToRRule(strings.TrimPrefix(*in.RecurrenceRule, "RRULE:")); err != nil {
			return apperr.Invalid("recurrence_rule is not a valid RRULE: %v", err)
		}
	}
	return nil
}

func inputOf(e model.Event) model.EventInput {
	return model.EventInput{
		OwnerID:        e.OwnerID,
		Name:           e.Name,
		Location:       e.Location,
		Description:    e.Description,
		Start:          e.Start,
		End:            e.End,
		Color:          e.Color,
		RecurrenceRule: e.RecurrenceRule,
	}
}
