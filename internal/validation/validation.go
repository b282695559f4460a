// Package validation checks movie payloads before anything is written.  Tag
// rules live on the payload structs in package model; the release date
// horizon depends on the clock and is checked here.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/movie-catalog/internal/model"
)

// MaxFutureDays bounds how far ahead of today a release date may be.
const MaxFutureDays = 366

// Errors maps JSON field names to a human readable reason.
type Errors map[string]string

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// Validator validates create and patch payloads.
type Validator struct {
	v   *validator.Validate
	now func() time.Time
}

// New returns a Validator using the wall clock.
func New() *Validator {
	return NewWithClock(time.Now)
}

// NewWithClock returns a Validator that measures the date horizon from now().
func NewWithClock(now func() time.Time) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v, now: now}
}

// Create validates a normalized create payload.
func (v *Validator) Create(in *model.MovieInput) error {
	errs := v.check(in)
	if in.Date != nil {
		v.checkDate(errs, *in.Date)
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Patch validates only the fields present in a normalized patch payload.
func (v *Validator) Patch(p *model.MoviePatch) error {
	errs := v.check(p)
	if p.Date != nil {
		v.checkDate(errs, *p.Date)
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// LatestDate is the last release date accepted at the current time.
func (v *Validator) LatestDate() model.Date {
	today := model.NewDate(v.now().UTC())
	return model.Date(today.Time().AddDate(0, 0, MaxFutureDays))
}

func (v *Validator) checkDate(errs Errors, d model.Date) {
	if _, ok := errs["date"]; ok {
		return
	}
	if model.NewDate(d.Time()).Time().After(v.LatestDate().Time()) {
		errs["date"] = fmt.Sprintf("must not be more than %d days in the future", MaxFutureDays)
	}
}

func (v *Validator) check(payload any) Errors {
	errs := Errors{}
	err := v.v.Struct(payload)
	if err == nil {
		return errs
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs["_"] = err.Error()
		return errs
	}
	for _, fe := range verrs {
		field := fieldPath(fe)
		if _, ok := errs[field]; !ok {
			errs[field] = message(fe)
		}
	}
	return errs
}

// fieldPath drops the struct name from the namespace so "MovieInput.genres[1]"
// becomes "genres[1]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must not be empty"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	return "is invalid"
}
