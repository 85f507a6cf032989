// Package rule 封装 go-playground/validator，统一使用 rule 标签，并注册文件标识与 cron 表达式等自定义规则.
package rule

import (
	"errors"
	"strings"
	"sync"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// TagName 结构体校验使用的标签名.
const TagName = "rule"

// MaxFileIDLength 文件标识允许的最大长度.
const MaxFileIDLength = 512

var (
	inst *validator.Validate
	once sync.Once
)

// initValidator 复用 gin 的 validator 引擎，使请求绑定与配置校验共享同一套规则.
func initValidator() {
	if engine := binding.Validator.Engine(); engine != nil {
		if v, ok := engine.(*validator.Validate); ok {
			inst = v
		}
	}

	if inst == nil {
		inst = validator.New()
	}

	inst.SetTagName(TagName)
	inst.RegisterTagNameFunc(func(f reflectField) string { return fieldName(f.Tag.Get("json"), f.Name) })

	_ = inst.RegisterValidation("file_id", validateFileID)
	_ = inst.RegisterValidation("cron", validateCron)
	_ = inst.RegisterValidation("ratelimitkey", validateRateLimitKey)
}

func lazyInit() {
	once.Do(initValidator)
}

// Engine 返回全局 *validator.Validate.
func Engine() *validator.Validate {
	lazyInit()

	return inst
}

// RegisterValidation 注册自定义规则.
func RegisterValidation(tag string, fn validator.Func, opts ...bool) error {
	lazyInit()

	return inst.RegisterValidation(tag, fn, opts...)
}

// RegisterAlias 注册规则别名.
func RegisterAlias(alias, rules string) {
	lazyInit()

	inst.RegisterAlias(alias, rules)
}

// ValidateStruct 对结构体执行完整校验，返回原始 error（可用 Errors 解析）.
func ValidateStruct(s any) error {
	lazyInit()

	return inst.Struct(s)
}

// ValidateVar 按规则对单个变量校验，例如: ValidateVar("abc", "required,file_id").
func ValidateVar(field any, tag string) error {
	lazyInit()

	return inst.Var(field, tag)
}

// ValidationErrors 字段名到可读错误信息的映射.
type ValidationErrors map[string]string

// Errors 把 validator 的错误展开为 ValidationErrors；非校验错误返回 nil.
func Errors(err error) ValidationErrors {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}

	out := make(ValidationErrors, len(ve))
	for _, fe := range ve {
		msg := "failed on " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}

		out[fe.Field()] = msg
	}

	return out
}

// validateFileID 文件标识非空、不含空白与控制字符、长度有限.
func validateFileID(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	if id == "" || len(id) > MaxFileIDLength {
		return false
	}

	return strings.IndexFunc(id, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) < 0
}

// validateCron 标准五段 cron 表达式或 @every 等描述符.
func validateCron(fl validator.FieldLevel) bool {
	_, err := cron.ParseStandard(fl.Field().String())
	return err == nil
}

// validateRateLimitKey global、ip 或带非空请求头名的 header:Name.
func validateRateLimitKey(fl validator.FieldLevel) bool {
	key := strings.ToLower(strings.TrimSpace(fl.Field().String()))
	if key == "global" || key == "ip" {
		return true
	}

	h, ok := strings.CutPrefix(key, "header:")

	return ok && strings.TrimSpace(h) != ""
}
