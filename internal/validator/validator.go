package validator

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/skillbadge/assessment-service/internal/models"
)

var (
	mobilePattern  = regexp.MustCompile(`^[0-9]{10}$`)
	pinCodePattern = regexp.MustCompile(`^[0-9]{6}$`)
)

// Validator combines struct tag validation with question bank checks
type Validator struct {
	structValidator   *validator.Validate
	questionValidator *QuestionValidator
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	registerCustomValidators(structValidator)

	return &Validator{
		structValidator:   structValidator,
		questionValidator: NewQuestionValidator(),
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Validate runs struct validation and converts field errors into ValidationErrors
func (v *Validator) Validate(s interface{}) error {
	if err := v.ValidateStruct(s); err != nil {
		if errs := ToValidationErrors(err); len(errs) > 0 {
			return errs
		}
		return err
	}
	return nil
}

func (v *Validator) Question() *QuestionValidator {
	return v.questionValidator
}

func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("mobile", validateMobile)
	validate.RegisterValidation("pin_code", validatePinCode)
	validate.RegisterValidation("skill", validateSkill)

	// Report json names so messages match the request body
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateMobile(fl validator.FieldLevel) bool {
	return mobilePattern.MatchString(fl.Field().String())
}

func validatePinCode(fl validator.FieldLevel) bool {
	return pinCodePattern.MatchString(fl.Field().String())
}

func validateSkill(fl validator.FieldLevel) bool {
	return models.IsKnownSkill(fl.Field().String())
}
