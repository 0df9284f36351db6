package audit

import (
	"fmt"
	"math"
	"reflect"
	"sort"
)

// CheckFinite walks data and returns the path of every NaN or Infinity it holds
func CheckFinite(data interface{}) []string {
	var issues []string
	walk(reflect.ValueOf(data), "", &issues)
	return issues
}

func walk(v reflect.Value, path string, issues *[]string) {
	if !v.IsValid() {
		return
	}

	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsInf(f, 0) || math.IsNaN(f) {
			*issues = append(*issues, fmt.Sprintf("%s: %v", label(path), f))
		}
	case reflect.Ptr, reflect.Interface:
		if !v.IsNil() {
			walk(v.Elem(), path, issues)
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			if t.Field(i).PkgPath != "" {
				continue
			}
			name := t.Field(i).Name
			if t.Field(i).Anonymous {
				walk(v.Field(i), path, issues)
				continue
			}
			walk(v.Field(i), join(path, name), issues)
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			walk(v.Index(i), fmt.Sprintf("%s[%d]", path, i), issues)
		}
	case reflect.Map:
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		for _, k := range keys {
			walk(v.MapIndex(k), fmt.Sprintf("%s[%v]", path, k.Interface()), issues)
		}
	}
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func label(path string) string {
	if path == "" {
		return "value"
	}
	return path
}
