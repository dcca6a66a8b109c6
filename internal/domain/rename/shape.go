package rename

import (
	fileutil "github.com/easayliu/tg-file-renamer/pkg/utils/file"
)

// SelectShape 决定以文档、视频还是音频重新上传
//
//	audio               -> Audio
//	video + document    -> Document
//	video + auto/video  -> Video
//	document + document -> Document
//	document + 其他     -> 新扩展名是视频时为 Video，否则 Document
func SelectShape(kind ArtifactKind, mode SendAsMode, newFilename string) Shape {
	switch kind {
	case KindAudio:
		return ShapeAudio
	case KindVideo:
		if mode == SendAsDocument {
			return ShapeDocument
		}
		return ShapeVideo
	default:
		if mode == SendAsDocument {
			return ShapeDocument
		}
		if fileutil.IsVideoFile(newFilename) {
			return ShapeVideo
		}
		return ShapeDocument
	}
}
