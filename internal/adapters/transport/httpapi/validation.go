package httpapi

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/bnema/zalo-accounts/internal/domain"
)

var registerOnce sync.Once

// registerValidators installs the zaloid tag on gin's validator and reports
// field names by their json tag.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			if name == "-" {
				return ""
			}
			return name
		})
		if err := v.RegisterValidation("zaloid", validateZaloID); err != nil {
			panic(fmt.Sprintf("register zaloid validator: %v", err))
		}
	})
}

// validateZaloID accepts a phone-like identifier or any non-empty id once
// whitespace is stripped.
func validateZaloID(fl validator.FieldLevel) bool {
	value := domain.SanitizeIdentifier(fl.Field().String())
	if value == "" {
		return false
	}
	if strings.ContainsAny(value, "/?#") {
		return false
	}
	return true
}

func bind(c *gin.Context, req any) error {
	var err error
	if c.Request.Method == "GET" {
		err = c.ShouldBindQuery(req)
	} else {
		err = c.ShouldBind(req)
	}
	if err == nil {
		return nil
	}

	if verrs, ok := err.(validator.ValidationErrors); ok {
		messages := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			messages = append(messages, fieldMessage(fe))
		}
		return fmt.Errorf("%w: %s", errBadRequest, strings.Join(messages, "; "))
	}
	return fmt.Errorf("%w: %v", errBadRequest, err)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "zaloid":
		return fmt.Sprintf("%s must be a phone number or user id", fe.Field())
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
	}
}
