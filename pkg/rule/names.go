package rule

import (
	"reflect"
	"strings"
)

type reflectField = reflect.StructField

// fieldName 优先使用 json 标签中的名称，"-" 与空标签回退到字段名.
func fieldName(jsonTag, fallback string) string {
	name, _, _ := strings.Cut(jsonTag, ",")
	if name == "" || name == "-" {
		return fallback
	}

	return name
}
