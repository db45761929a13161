package handlers

import (
	"github.com/campusride/campusride-backend/internal/models"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators adds the custom binding tags used by request bodies.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("reviewtag", validateReviewTag); err != nil {
		return err
	}
	return v.RegisterValidation("reportreason", validateReportReason)
}

func validateReviewTag(fl validator.FieldLevel) bool {
	return models.ReviewTag(fl.Field().String()).Valid()
}

func validateReportReason(fl validator.FieldLevel) bool {
	return models.ReportReason(fl.Field().String()).Valid()
}
