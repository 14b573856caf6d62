package handlers

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/inventory_backend/models"
	"github.com/mmdatafocus/inventory_backend/utils"
)

var registerOnce sync.Once

// registerValidators adds the request tags used by the DTOs to gin's validator.
//
//	decimal       a non-empty decimal string ("12.5", "-3")
//	account_code  the AAA-BBB-CCC chart format
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("decimal", func(fl validator.FieldLevel) bool {
			_, err := utils.ParseDecimal(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("account_code", func(fl validator.FieldLevel) bool {
			_, err := models.ParseAccountCode(fl.Field().String())
			return err == nil
		})
	})
}
