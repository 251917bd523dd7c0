package validation

import (
	"reflect"

	"github.com/gin-gonic/gin/binding"
)

// GinValidator plugs the shared engine into gin's binding so request DTOs
// report json field names.
//
//	binding.Validator = validation.GinValidator{}
type GinValidator struct{}

var _ binding.StructValidator = GinValidator{}

// ValidateStruct validates structs, pointers to structs and slices of them.
func (GinValidator) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	v := reflect.ValueOf(obj)
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		return GinValidator{}.ValidateStruct(v.Elem().Interface())
	case reflect.Struct:
		return Engine().Struct(obj)
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := (GinValidator{}).ValidateStruct(v.Index(i).Interface()); err != nil {
				return err
			}
		}
	}
	return nil
}

// Engine returns the underlying validator.
func (GinValidator) Engine() any {
	return Engine()
}
