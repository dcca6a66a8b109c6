package renamer

import (
	"context"
	"fmt"
	"html"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/easayliu/tg-file-renamer/internal/application/contracts"
	"github.com/easayliu/tg-file-renamer/internal/domain/rename"
	"github.com/easayliu/tg-file-renamer/pkg/logger"
)

const progressBarWidth = 10

// stage 处理阶段
type stage string

const (
	stageDownload stage = "download"
	stageUpload   stage = "upload"
)

func (s stage) title() string {
	switch s {
	case stageDownload:
		return "📥 正在下载"
	case stageUpload:
		return "📤 正在上传"
	default:
		return "⏳ 处理中"
	}
}

// progressReporter 定期把传输进度编辑到状态消息中
// 进度数据由 progressbar 统计，渲染输出丢弃
type progressReporter struct {
	transport contracts.Transport
	ref       rename.MessageRef
	interval  time.Duration
	fileName  string

	mu       sync.Mutex
	bar      *progressbar.ProgressBar
	stage    stage
	lastText string

	stop chan struct{}
	done chan struct{}
}

func newProgressReporter(transport contracts.Transport, ref rename.MessageRef, fileName string, interval time.Duration) *progressReporter {
	return &progressReporter{
		transport: transport,
		ref:       ref,
		interval:  interval,
		fileName:  fileName,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// start 启动刷新循环，ctx 取消或 close 后退出
func (p *progressReporter) start(ctx context.Context) {
	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stop:
				return
			case <-ticker.C:
				p.flush(ctx)
			}
		}
	}()
}

// track 切换到新阶段，返回用于统计字节数的 Writer
func (p *progressReporter) track(s stage, total int64) io.Writer {
	limit := total
	if limit <= 0 {
		limit = -1
	}
	bar := progressbar.NewOptions64(limit,
		progressbar.OptionSetWriter(io.Discard),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetDescription(string(s)),
		progressbar.OptionThrottle(p.interval),
	)

	p.mu.Lock()
	p.bar = bar
	p.stage = s
	p.mu.Unlock()
	return bar
}

// writer 未开启进度时返回 nil
func (p *progressReporter) writer(s stage, total int64) io.Writer {
	if p == nil {
		return nil
	}
	return p.track(s, total)
}

func (p *progressReporter) flush(ctx context.Context) {
	p.mu.Lock()
	bar, s := p.bar, p.stage
	p.mu.Unlock()
	if bar == nil {
		return
	}

	text := renderProgress(s, p.fileName, bar.State())

	p.mu.Lock()
	if text == p.lastText {
		p.mu.Unlock()
		return
	}
	p.lastText = text
	p.mu.Unlock()

	// 编辑失败不影响主流程
	if err := p.transport.EditText(ctx, p.ref, text); err != nil {
		logger.Debug("Failed to update progress message", "error", err)
	}
}

// close 停止刷新并删除状态消息
func (p *progressReporter) close(ctx context.Context) {
	close(p.stop)
	<-p.done
	if err := p.transport.DeleteMessage(ctx, p.ref); err != nil {
		logger.Debug("Failed to delete progress message", "error", err)
	}
}

func renderProgress(s stage, fileName string, st progressbar.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n<code>%s</code>\n\n", s.title(), html.EscapeString(fileName))

	if st.Max > 0 {
		percent := float64(st.CurrentNum) / float64(st.Max)
		if percent > 1 {
			percent = 1
		}
		filled := int(percent * progressBarWidth)
		b.WriteString("[")
		b.WriteString(strings.Repeat("■", filled))
		b.WriteString(strings.Repeat("□", progressBarWidth-filled))
		fmt.Fprintf(&b, "] %.1f%%\n", percent*100)
		fmt.Fprintf(&b, "%s / %s\n", rename.ReadableSize(st.CurrentNum), rename.ReadableSize(st.Max))
	} else {
		fmt.Fprintf(&b, "已传输 %s\n", rename.ReadableSize(st.CurrentNum))
	}

	speed := int64(st.KBsPerSecond * 1024)
	if speed > 0 {
		fmt.Fprintf(&b, "速度: %s/s", rename.ReadableSize(speed))
		if st.Max > 0 && st.SecondsLeft > 0 {
			fmt.Fprintf(&b, "  剩余: %s", rename.FormatDuration(int(st.SecondsLeft), true))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
