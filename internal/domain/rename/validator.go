package rename

import (
	"fmt"
	"strings"
)

// ReservedChars 文件名中不允许出现的字符
const ReservedChars = `/\:*?"<>|`

// ValidationError 文件名不合法
type ValidationError struct {
	Name   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid filename %q: %s", e.Name, e.Reason)
}

// Validate 校验新文件名，不限制长度，没有扩展名也允许
func Validate(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Name: name, Reason: "filename is empty"}
	}
	if i := strings.IndexAny(name, ReservedChars); i >= 0 {
		return &ValidationError{
			Name:   name,
			Reason: fmt.Sprintf("filename contains reserved character %q", name[i]),
		}
	}
	return nil
}
