package fileutil

import "testing"

func TestIsVideoFile(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		exts     []string
		want     bool
	}{
		{"小写mp4", "clip.mp4", nil, true},
		{"大写MKV", "Movie.MKV", nil, true},
		{"webm", "a.b.webm", nil, true},
		{"音频", "song.mp3", nil, false},
		{"无扩展名", "README", nil, false},
		{"以点结尾", "video.", nil, false},
		{"默认列表外", "clip.m4v", nil, false},
		{"自定义列表", "clip.m4v", []string{".m4v"}, true},
		{"目录带点", "dir.mp4/file", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got bool
			if tt.exts != nil {
				got = IsVideoFile(tt.filename, tt.exts)
			} else {
				got = IsVideoFile(tt.filename)
			}
			if got != tt.want {
				t.Errorf("IsVideoFile(%q) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestExtractExtension(t *testing.T) {
	tests := map[string]string{
		"video.mp4":         "mp4",
		"movie.MKV":         "mkv",
		"/path/to/file.AVI": "avi",
		"noext":             "",
		"":                  "",
	}
	for in, want := range tests {
		if got := ExtractExtension(in); got != want {
			t.Errorf("ExtractExtension(%q) = %q, want %q", in, got, want)
		}
	}
}
