package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation 表示输入格式或内容不合法
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized 表示没有有效会话
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound 表示目标不存在或不属于当前用户
	ErrNotFound = errors.New("not found")
	// ErrSecurity 表示对象 key 越出了当前用户的命名空间
	ErrSecurity = errors.New("security violation")
	// ErrUpstream 表示第三方接口（统计、存储）调用失败
	ErrUpstream = errors.New("upstream request failed")
	// ErrNotConfigured 表示统计服务未配置，前端据此展示配置引导而非错误
	ErrNotConfigured = errors.New("analytics not configured")
	// ErrAdminExists 在已有管理员时再次创建账号返回
	ErrAdminExists = fmt.Errorf("%w: admin account already exists", ErrValidation)
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFoundError(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

// Message 返回去掉分类前缀后的错误描述，供前端直接展示。
func Message(err error) string {
	if err == nil {
		return ""
	}
	for _, sentinel := range []error{ErrValidation, ErrUnauthorized, ErrNotFound, ErrSecurity, ErrUpstream, ErrNotConfigured} {
		prefix := sentinel.Error() + ": "
		msg := err.Error()
		if errors.Is(err, sentinel) && len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
			return msg[len(prefix):]
		}
	}
	return err.Error()
}
