package entities

import "time"

// UserPreferences 用户的上传偏好和统计
type UserPreferences struct {
	UserID          int64     `json:"user_id"`
	SendAs          string    `json:"send_as"`                     // auto, document, video
	CaptionTemplate string    `json:"caption_template,omitempty"`  // 支持 {filename} {filesize} {duration}
	ThumbnailFileID string    `json:"thumbnail_file_id,omitempty"` // Telegram file_id
	RenameCount     int64     `json:"rename_count"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewUserPreferences 返回默认偏好
func NewUserPreferences(userID int64) *UserPreferences {
	return &UserPreferences{
		UserID: userID,
		SendAs: "auto",
	}
}

// Clone 返回副本
func (p *UserPreferences) Clone() *UserPreferences {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
