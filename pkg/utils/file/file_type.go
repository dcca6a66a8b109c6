package fileutil

import "strings"

// DefaultVideoExtensions 作为视频重新上传的扩展名列表
var DefaultVideoExtensions = []string{
	"mp4", "avi", "mkv", "mov", "wmv", "flv", "webm",
}

// IsVideoFile 检查文件是否为视频文件
// filename: 文件名或完整路径
// videoExts: 可选的视频扩展名列表，如果为空则使用默认列表
func IsVideoFile(filename string, videoExts ...[]string) bool {
	ext := ExtractExtension(filename)
	if ext == "" {
		return false
	}

	exts := DefaultVideoExtensions
	if len(videoExts) > 0 && len(videoExts[0]) > 0 {
		exts = videoExts[0]
	}

	for _, videoExt := range exts {
		if strings.EqualFold(ext, strings.TrimPrefix(videoExt, ".")) {
			return true
		}
	}
	return false
}

// ExtractExtension 从文件名中提取扩展名（不带点号，小写）
// 例如：
//
//	"video.mp4" -> "mp4"
//	"movie.MKV" -> "mkv"
//	"README" -> ""
//	"archive." -> ""
func ExtractExtension(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx == -1 || idx == len(filename)-1 {
		return ""
	}
	// 路径分隔符之后才算扩展名
	if strings.ContainsAny(filename[idx+1:], `/\`) {
		return ""
	}
	return strings.ToLower(filename[idx+1:])
}
