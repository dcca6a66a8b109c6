package rename

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// 说明文字模板支持的占位符
const (
	PlaceholderFilename = "{filename}"
	PlaceholderFilesize = "{filesize}"
	PlaceholderDuration = "{duration}"
)

// UnknownDuration 时长未知时的渲染结果
const UnknownDuration = "Unknown"

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// ReadableSize 以 1024 为进制格式化文件大小，保留两位小数
// 例如 0 -> "0B"，1536 -> "1.5 KB"，1048576 -> "1.0 MB"
func ReadableSize(size int64) string {
	if size <= 0 {
		return "0B"
	}

	value := float64(size)
	unit := 0
	for value >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}

	rounded := math.Round(value*100) / 100
	s := strconv.FormatFloat(rounded, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s + " " + sizeUnits[unit]
}

// FormatDuration 不足一小时为 MM:SS，否则为 HH:MM:SS
func FormatDuration(seconds int, known bool) string {
	if !known || seconds < 0 {
		return UnknownDuration
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// Resolve 渲染说明文字模板
// 单次替换，文件名里出现的占位符不会被再次展开；未识别的占位符原样保留
func Resolve(template, filename string, attrs FileAttributes) string {
	if strings.TrimSpace(template) == "" {
		return filename
	}

	replacer := strings.NewReplacer(
		PlaceholderFilename, filename,
		PlaceholderFilesize, ReadableSize(attrs.Size),
		PlaceholderDuration, FormatDuration(attrs.Duration, attrs.DurationKnown),
	)
	return replacer.Replace(template)
}
