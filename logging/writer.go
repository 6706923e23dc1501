package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/BaSui01/meetingflow/config"
	"github.com/BaSui01/meetingflow/meeting"
)

// 出力ファイル名
const (
	liveJSONLName = "meeting_live.jsonl"
	liveMDName    = "meeting_live.md"
	thoughtsName  = "thoughts.jsonl"
)

// Writer 把会议事件写入日志目录。实现 meeting.Sink。
type Writer struct {
	logger *zap.Logger
	dir    string

	mu       sync.Mutex
	jsonl    *os.File
	md       *os.File
	thoughts *os.File
	summary  *os.File
	phaseLog *os.File

	mdRound int // 直前に見出しを書いたラウンド
}

// NewWriter 打开输出目录并按配置创建各日志文件。
// OutDir 未指定时自动生成 logs/<日時_トピック>。
func NewWriter(cfg *config.MeetingConfig, logger *zap.Logger) (*Writer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dir := cfg.Log.OutDir
	if dir == "" {
		dir = filepath.Join("logs", time.Now().Format("20060102_150405")+"_"+topicSlug(cfg.Topic))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir %s: %w", dir, err)
	}

	w := &Writer{
		logger: logger.With(zap.String("component", "logwriter")),
		dir:    dir,
	}
	var err error
	if cfg.Log.JSONLEnabled {
		if w.jsonl, err = w.open(liveJSONLName); err != nil {
			return nil, err
		}
	}
	if cfg.Log.MarkdownEnabled {
		if w.md, err = w.open(liveMDName); err != nil {
			return nil, err
		}
	}
	if cfg.Think.Enabled && cfg.Think.Debug {
		if w.thoughts, err = w.open(thoughtsName); err != nil {
			return nil, err
		}
	}
	if cfg.SummaryProbe.LogEnabled && cfg.SummaryProbe.Filename != "" {
		if w.summary, err = w.open(cfg.SummaryProbe.Filename); err != nil {
			return nil, err
		}
	}
	if cfg.SummaryProbe.PhaseLogEnabled && cfg.SummaryProbe.PhaseFilename != "" {
		if w.phaseLog, err = w.open(cfg.SummaryProbe.PhaseFilename); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Dir 返回实际使用的日志目录。
func (w *Writer) Dir() string { return w.dir }

func (w *Writer) open(name string) (*os.File, error) {
	f, err := os.OpenFile(filepath.Join(w.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", name, err)
	}
	return f, nil
}

// Emit 实现 meeting.Sink。写入失败只记 warn。
func (w *Writer) Emit(e meeting.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.jsonl != nil {
		if data, err := json.Marshal(e); err == nil {
			w.writeLine(w.jsonl, string(data))
		} else {
			w.logger.Warn("event marshal failed", zap.String("kind", e.Kind), zap.Error(err))
		}
	}
	if w.md != nil {
		w.writeMarkdown(e)
	}
	if w.thoughts != nil && e.Kind == meeting.EventTurn && e.Turn != nil && e.Turn.Thought != "" {
		record := map[string]any{
			"turn":    e.Turn.Index,
			"round":   e.Turn.Round,
			"speaker": e.Turn.Speaker,
			"thought": e.Turn.Thought,
		}
		if data, err := json.Marshal(record); err == nil {
			w.writeLine(w.thoughts, string(data))
		}
	}
	if w.summary != nil && e.Kind == meeting.EventRoundSummary {
		w.writeLine(w.summary, fmt.Sprintf("[round %d]\n%s\n", e.Round, e.Summary))
	}
	if w.phaseLog != nil && e.Kind == meeting.EventPhase && e.Phase != nil {
		w.writeLine(w.phaseLog, fmt.Sprintf("[phase %d] kind=%s status=%s reason=%s turns=%d",
			e.Phase.ID, e.Phase.Kind, e.Phase.Status, e.Phase.CloseReason, e.Phase.TurnCount))
	}
}

// Close 关闭所有打开的文件。
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var first error
	for _, f := range []*os.File{w.jsonl, w.md, w.thoughts, w.summary, w.phaseLog} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	w.jsonl, w.md, w.thoughts, w.summary, w.phaseLog = nil, nil, nil, nil, nil
	return first
}

func (w *Writer) writeLine(f *os.File, line string) {
	if _, err := f.WriteString(line + "\n"); err != nil {
		w.logger.Warn("log write failed", zap.String("file", f.Name()), zap.Error(err))
	}
}

// writeMarkdown 把事件渲染为人間可読的会議録。
func (w *Writer) writeMarkdown(e meeting.Event) {
	switch e.Kind {
	case meeting.EventMeetingStarted:
		w.writeLine(w.md, "# "+e.Topic+"\n")
	case meeting.EventPhase:
		if e.Phase == nil {
			return
		}
		switch {
		case e.Phase.TurnCount == 0:
			w.writeLine(w.md, fmt.Sprintf("\n## Phase %d: %s\n\n> goal: %s", e.Phase.ID, e.Phase.Kind, e.Phase.Goal))
			w.mdRound = 0
		default:
			w.writeLine(w.md, fmt.Sprintf("\n_phase %d %s (%s, %d turns)_",
				e.Phase.ID, e.Phase.Status, e.Phase.CloseReason, e.Phase.TurnCount))
		}
	case meeting.EventTurn:
		if e.Turn == nil {
			return
		}
		if e.Turn.Round != w.mdRound {
			w.mdRound = e.Turn.Round
			w.writeLine(w.md, fmt.Sprintf("\n### Round %d\n", w.mdRound))
		}
		text := strings.ReplaceAll(e.Turn.Text, "\n", " ")
		if e.Turn.Degraded {
			w.writeLine(w.md, fmt.Sprintf("- **%s**: _%s_", e.Turn.Speaker, text))
		} else {
			w.writeLine(w.md, fmt.Sprintf("- **%s**: %s", e.Turn.Speaker, text))
		}
	case meeting.EventRoundSummary:
		for _, line := range strings.Split(e.Summary, "\n") {
			w.writeLine(w.md, "> "+line)
		}
	case meeting.EventKPI:
		if e.KPI == nil {
			return
		}
		w.writeLine(w.md, fmt.Sprintf("_kpi: diversity=%.2f decision=%.2f progress=%.2f coverage=%.2f_",
			e.KPI.Diversity, e.KPI.DecisionDensity, e.KPI.Progress, e.KPI.SpecCoverage))
	case meeting.EventControl:
		if e.Control == nil {
			return
		}
		w.writeLine(w.md, fmt.Sprintf("> ⚙ %s (%s)", e.Control.Action, strings.Join(e.Control.Triggers, ", ")))
	case meeting.EventMeetingFinished:
		if e.Result == nil {
			return
		}
		w.writeLine(w.md, "\n---\n\n## Outcome\n")
		w.writeLine(w.md, "state: "+string(e.Result.State)+"\n")
		if e.Result.Agreement != "" {
			w.writeLine(w.md, "**Agreed**\n\n"+e.Result.Agreement+"\n")
		}
		if len(e.Result.OpenIssues) > 0 {
			w.writeLine(w.md, "**Open issues**\n\n- "+strings.Join(e.Result.OpenIssues, "\n- ")+"\n")
		}
		if e.Result.NextActions != "" {
			w.writeLine(w.md, "**Next actions**\n\n"+e.Result.NextActions+"\n")
		}
	}
}

// topicSlug ディレクトリ名に使える形へトピックを潰す。
func topicSlug(topic string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(topic)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case b.Len() > 0 && !strings.HasSuffix(b.String(), "_"):
			b.WriteRune('_')
		}
	}
	slug := strings.Trim(b.String(), "_")
	if slug == "" {
		return "meeting"
	}
	runes := []rune(slug)
	if len(runes) > 32 {
		runes = runes[:32]
	}
	return string(runes)
}
