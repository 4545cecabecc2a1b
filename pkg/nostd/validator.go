package nostd

import (
	"fmt"

	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zhTranslations "github.com/go-playground/validator/v10/translations/zh"
)

// CustomValidator echo请求参数校验器，错误信息翻译为中文
type CustomValidator struct {
	Validator *validator.Validate
	trans     ut.Translator
}

// TransInit 初始化中文翻译器
func (v *CustomValidator) TransInit() error {
	zhLocale := zh.New()
	uni := ut.New(zhLocale, zhLocale)
	trans, ok := uni.GetTranslator("zh")
	if !ok {
		return fmt.Errorf("failed to get zh translator")
	}
	if err := zhTranslations.RegisterDefaultTranslations(v.Validator, trans); err != nil {
		return fmt.Errorf("failed to register zh translations: %w", err)
	}
	v.trans = trans
	return nil
}

// Validate 实现 echo.Validator
func (v *CustomValidator) Validate(i interface{}) error {
	if err := v.Validator.Struct(i); err != nil {
		var errs validator.ValidationErrors
		if ok := asValidationErrors(err, &errs); ok && v.trans != nil {
			for _, e := range errs {
				return fmt.Errorf("%s", e.Translate(v.trans))
			}
		}
		return err
	}
	return nil
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	if errs, ok := err.(validator.ValidationErrors); ok {
		*target = errs
		return true
	}
	return false
}
