package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/interviewtracker/internal/model"
)

// bcryptMaxBytes はbcryptが扱えるパスワードの最大バイト長。
const bcryptMaxBytes = 72

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// エラーメッセージにはJSONのフィールド名を使う
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	v.RegisterValidation("bcrypt_max", validateBcryptMax)
	return v
}

// validateBcryptMax は文字列のバイト長がbcryptの上限以内かを検証する。
// max タグは文字数で数えるため、マルチバイト文字を含むパスワードを見逃す。
func validateBcryptMax(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= bcryptMaxBytes
}

// validateRequest はリクエストDTOを検証し、失敗時はVALIDATION_FAILEDのAPIErrorを返す。
func validateRequest(req any) *model.APIError {
	if err := validate.Struct(req); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) *model.APIError {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return model.NewValidationError(err.Error())
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		messages = append(messages, formatFieldError(fe))
	}
	return model.NewValidationError(strings.Join(messages, "; "))
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s は必須です", field)
	case "email":
		return fmt.Sprintf("%s はメールアドレスの形式で入力してください", field)
	case "min":
		return fmt.Sprintf("%s は%s文字以上で入力してください", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s は%s文字以内で入力してください", field, fe.Param())
	case "bcrypt_max":
		return fmt.Sprintf("%s は%dバイト以内で入力してください", field, bcryptMaxBytes)
	default:
		return fmt.Sprintf("%s が不正です", field)
	}
}
