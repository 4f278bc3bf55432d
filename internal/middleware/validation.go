package middleware

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// DefaultValidator replaces gin's binding validator so that binding errors
// carry readable, JSON-field-named messages.
type DefaultValidator struct {
	once       sync.Once
	validate   *validator.Validate
	translator ut.Translator
}

var _ binding.StructValidator = &DefaultValidator{}

func (v *DefaultValidator) ValidateStruct(obj any) error {
	if kindOfData(obj) == reflect.Struct {
		v.lazyinit()
		if err := v.validate.Struct(obj); err != nil {
			return err
		}
	}
	return nil
}

func (v *DefaultValidator) Engine() any {
	v.lazyinit()
	return v.validate
}

func (v *DefaultValidator) Translator() ut.Translator {
	v.lazyinit()
	return v.translator
}

func (v *DefaultValidator) lazyinit() {
	v.once.Do(func() {
		v.validate = validator.New(validator.WithRequiredStructEnabled())
		v.validate.SetTagName("binding")

		// report json names (name, description) instead of Go field names
		v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		english := en.New()
		uni := ut.New(english, english)
		v.translator, _ = uni.GetTranslator("en")

		_ = en_translations.RegisterDefaultTranslations(v.validate, v.translator)
		v.registerCustomTranslations()
	})
}

func (v *DefaultValidator) registerCustomTranslations() {
	add := func(tag, text string, withParam bool) {
		_ = v.validate.RegisterTranslation(tag, v.translator, func(t ut.Translator) error {
			return t.Add(tag, text, true)
		}, func(t ut.Translator, fe validator.FieldError) string {
			var msg string
			if withParam {
				msg, _ = t.T(tag, fe.Field(), fe.Param())
			} else {
				msg, _ = t.T(tag, fe.Field())
			}
			return msg
		})
	}

	add("required", "{0} is required", false)
	add("max", "{0} must be at most {1} characters", true)
	add("min", "{0} must be at least {1} characters", true)
	add("email", "{0} must be a valid email address", false)
}

// TranslateValidationErrors returns one message per failed field.
func TranslateValidationErrors(err error) []string {
	var messages []string

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		if v, ok := binding.Validator.(*DefaultValidator); ok {
			trans := v.Translator()
			for _, e := range validationErrs {
				messages = append(messages, e.Translate(trans))
			}
		} else {
			for _, e := range validationErrs {
				messages = append(messages, e.Error())
			}
		}
	}

	return messages
}

func TranslateValidationError(err error) string {
	messages := TranslateValidationErrors(err)
	if len(messages) > 0 {
		return messages[0]
	}
	return err.Error()
}

func kindOfData(data any) reflect.Kind {
	value := reflect.ValueOf(data)
	valueType := value.Kind()

	if valueType == reflect.Pointer {
		valueType = value.Elem().Kind()
	}

	return valueType
}
