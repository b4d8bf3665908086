package middleware

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/RoberAF/chatbot/internal/constants"
)

// RegisterValidations installs the custom binding validators used by request
// DTOs. Safe to call more than once.
func RegisterValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	// tier: any known subscription tier.
	_ = v.RegisterValidation("tier", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case constants.TierFree, constants.TierPro, constants.TierProPlus:
			return true
		}
		return false
	})

	// paid_tier: a tier that a trial can be started on.
	_ = v.RegisterValidation("paid_tier", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case constants.TierPro, constants.TierProPlus:
			return true
		}
		return false
	})
}
