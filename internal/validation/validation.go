// Package validation registers the request binding rules shared by the API handlers.
package validation

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/statio/backend/internal/models"
	"github.com/statio/backend/pkg/utils"
)

var (
	once    sync.Once
	initErr error
)

// Register installs the custom tags on gin's default validator. It is safe to
// call more than once.
func Register() error {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			initErr = fmt.Errorf("validation: unexpected binding engine %T", binding.Validator.Engine())
			return
		}
		initErr = RegisterOn(v)
	})
	return initErr
}

// RegisterOn installs the custom tags on v.
func RegisterOn(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"slug":               validateSlug,
		"role":               enum(func(s string) bool { return models.Role(s).Valid() }),
		"service_status":     enum(func(s string) bool { return models.ServiceStatus(s).Valid() }),
		"incident_status":    enum(func(s string) bool { return models.IncidentStatus(s).Valid() }),
		"incident_type":      enum(func(s string) bool { return models.IncidentType(s).Valid() }),
		"maintenance_status": enum(func(s string) bool { return models.MaintenanceStatus(s).Valid() }),
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("validation: register %s: %w", tag, err)
		}
	}
	return nil
}

func enum(valid func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return valid(fl.Field().String())
	}
}

// validateSlug accepts values that normalize to a non-empty slug.
func validateSlug(fl validator.FieldLevel) bool {
	return utils.Slugify(fl.Field().String()) != ""
}
