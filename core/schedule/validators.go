package schedule

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/cronograma/core"
)

var (
	eventTypeTag  = "eventtype"
	eventTypeText = "type must be one of evaluado_entrega, reunion or teorica"

	weightTag  = "weight"
	weightText = "weight_percent must be a number between 0 and 100 (or empty)"

	dateRequiredTag  = "daterequired"
	dateRequiredText = "date is required"

	endBeforeStartTag  = "endbeforestart"
	endBeforeStartText = "end_date cannot be before date"
)

// InitValidators registers the event validations and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(eventTypeTag, func(fl validator.FieldLevel) bool {
		return EventType(fl.Field().String()).Valid()
	})
	_ = validate.RegisterValidation(weightTag, func(fl validator.FieldLevel) bool {
		w := fl.Field().Float()
		return w >= 0 && w <= 100
	})
	validate.RegisterStructValidation(eventDraftStructValidation, EventDraft{})

	core.RegisterCustomTranslation(validate, translator, eventTypeTag, eventTypeText)
	core.RegisterCustomTranslation(validate, translator, weightTag, weightText)
	core.RegisterCustomTranslation(validate, translator, dateRequiredTag, dateRequiredText)
	core.RegisterCustomTranslation(validate, translator, endBeforeStartTag, endBeforeStartText)
}

// eventDraftStructValidation checks the date range of an EventDraft; Clean must run first.
func eventDraftStructValidation(sl validator.StructLevel) {
	d := sl.Current().Interface().(EventDraft)
	if d.Date.IsZero() {
		sl.ReportError(d.Date, "date", "Date", dateRequiredTag, "")
		return
	}
	if !d.EndDate.IsZero() && d.EndDate.Before(d.Date) {
		sl.ReportError(d.EndDate, "end_date", "EndDate", endBeforeStartTag, "")
	}
}
