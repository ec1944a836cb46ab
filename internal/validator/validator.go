package validator

import (
	"fmt"
	"reflect"
)

// Validate checks constructor dependencies for nil or zero values. Used by
// every component constructor so a miswired process fails at startup instead
// of on the first delivery.
func Validate(name string, deps ...any) error {
	for _, dep := range deps {
		if dep == nil {
			return fmt.Errorf("missing required deps for component: %s", name)
		}

		v := reflect.ValueOf(dep)
		switch v.Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
			if v.IsNil() {
				return fmt.Errorf("missing required deps for component: %s", name)
			}
		default:
			if v.IsZero() {
				return fmt.Errorf("missing required deps for component: %s", name)
			}
		}
	}

	return nil
}
