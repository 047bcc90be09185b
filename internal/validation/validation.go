// Package validation registers the custom binding tags used by request
// structs.
package validation

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/SummerNgcobo/parakeet/internal/directory"
	"github.com/SummerNgcobo/parakeet/internal/models"
)

// Register adds leavetype, eventtype, role, jobreadiness and wellbeing to
// gin's validator engine.
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return RegisterOn(v)
}

func RegisterOn(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"leavetype":    oneOf(models.LeaveTypes),
		"eventtype":    oneOf(models.EventTypes),
		"jobreadiness": oneOf(models.JobReadinessLevels),
		"wellbeing":    oneOf(models.WellBeingLevels),
		"role": func(fl validator.FieldLevel) bool {
			return directory.IsRole(fl.Field().String())
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

func oneOf(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, candidate := range allowed {
			if value == candidate {
				return true
			}
		}
		return false
	}
}
