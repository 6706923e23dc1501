package deliberation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/BaSui01/meetingflow/internal/textsim"
)

// MemoryEntry 参会者保留的一条覚書。
type MemoryEntry struct {
	Text      string
	Category  string
	Priority  float64
	CreatedAt int64
}

// 覚書分类别名（中英日混合）
var memoryCategoryAliases = map[string]string{
	"決定":     "decision",
	"決定事項":   "decision",
	"合意事項":   "decision",
	"decision": "decision",
	"agreed":   "decision",
	"todo":     "todo",
	"to-do":    "todo",
	"次":       "todo",
	"アクション":  "todo",
	"対応":     "todo",
	"action":   "todo",
	"残課題":    "unresolved",
	"課題":     "unresolved",
	"未解決":    "unresolved",
	"issue":    "unresolved",
	"open":     "unresolved",
	"懸念":     "risk",
	"リスク":    "risk",
	"注意":     "risk",
	"警戒":     "risk",
	"risk":     "risk",
	"concern":  "risk",
	"進捗":     "progress",
	"progress": "progress",
	"情報":     "info",
	"info":     "info",
	"メモ":     "note",
	"memo":     "note",
	"note":     "note",
}

// 覚書分类的默认优先度
var memoryCategoryPriority = map[string]float64{
	"decision":   1.0,
	"unresolved": 0.9,
	"todo":       0.88,
	"risk":       0.85,
	"progress":   0.75,
	"info":       0.6,
	"note":       0.5,
}

var memoryLabelRe = regexp.MustCompile(`^[\[{(\s]*([^:：\]\)}]+)`)

// InferMemoryCategory 从覚書文本推断分类标签。
func InferMemoryCategory(text string) string {
	token := ""
	if m := memoryLabelRe.FindStringSubmatch(text); m != nil {
		token = m[1]
	}
	if token == "" {
		if name, _, ok := strings.Cut(text, ":"); ok {
			token = name
		} else if name, _, ok := strings.Cut(text, "："); ok {
			token = name
		}
	}
	normalized := strings.ToLower(strings.Trim(strings.TrimSpace(token), "[]{}()　 "))
	if normalized == "" {
		return "note"
	}
	if category, ok := memoryCategoryAliases[normalized]; ok {
		return category
	}
	return "note"
}

// ScoreMemoryPriority 计算覚書的优先度；含紧急关键词时小幅加分。
func ScoreMemoryPriority(category, text string) float64 {
	base, ok := memoryCategoryPriority[category]
	if !ok {
		base = memoryCategoryPriority["note"]
	}
	urgent := []string{"期限", "締切", "緊急", "critical", "重要", "deadline", "urgent"}
	lower := strings.ToLower(text)
	for _, kw := range urgent {
		if strings.Contains(lower, strings.ToLower(kw)) {
			base += 0.05
			break
		}
	}
	return textsim.Clamp(base, 0.0, 1.0)
}

// MemoryStore 管理所有参会者的覚書。
// limit 为单人上限（0 不限制），超限时按优先度淘汰（同分先淘汰旧条目）。
type MemoryStore struct {
	limit   int
	window  int
	entries map[string][]MemoryEntry
	seeds   map[string]string // 个性说明等常驻首行
	clock   int64
}

// NewMemoryStore 创建覚書存储。
func NewMemoryStore(limit, window int) *MemoryStore {
	return &MemoryStore{
		limit:   limit,
		window:  window,
		entries: make(map[string][]MemoryEntry),
		seeds:   make(map[string]string),
	}
}

// SetSeed 设置常驻首行（如个性说明），不占用淘汰额度。
func (s *MemoryStore) SetSeed(agent, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	s.seeds[agent] = text
}

// Add 追加一条覚書并按需要淘汰。
func (s *MemoryStore) Add(agent, text string) {
	normalized := strings.TrimSpace(text)
	if normalized == "" {
		return
	}
	category := InferMemoryCategory(normalized)
	s.clock++
	entry := MemoryEntry{
		Text:      normalized,
		Category:  category,
		Priority:  ScoreMemoryPriority(category, normalized),
		CreatedAt: s.clock,
	}

	entries := append(s.entries[agent], entry)
	if s.limit > 0 && len(entries) > s.limit {
		// 淘汰优先度最低的（同分先去旧的），保持其余条目的时间顺序
		evict := 0
		for i, e := range entries {
			if e.Priority < entries[evict].Priority ||
				(e.Priority == entries[evict].Priority && e.CreatedAt < entries[evict].CreatedAt) {
				evict = i
			}
		}
		entries = append(entries[:evict], entries[evict+1:]...)
	}
	s.entries[agent] = entries
}

// Snapshot 返回注入提示用的覚書列表：常驻首行 + 最近 window 条。
func (s *MemoryStore) Snapshot(agent string) []string {
	var out []string
	if seed, ok := s.seeds[agent]; ok {
		out = append(out, seed)
	}
	entries := s.entries[agent]
	if s.window > 0 && len(entries) > s.window {
		entries = entries[len(entries)-s.window:]
	}
	for _, e := range entries {
		out = append(out, e.Text)
	}
	return out
}

// Format 生成提示中的覚書区块；无内容时返回空串。
func (s *MemoryStore) Format(agent string) string {
	snapshot := s.Snapshot(agent)
	if len(snapshot) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("recent notes:")
	for _, item := range snapshot {
		b.WriteString("\n- ")
		b.WriteString(item)
	}
	return b.String()
}

// Categories 返回某参会者覚書的分类统计（测试与日志用）。
func (s *MemoryStore) Categories(agent string) map[string]int {
	out := make(map[string]int)
	for _, e := range s.entries[agent] {
		out[e.Category]++
	}
	return out
}

// Agents 返回有覚書记录的参会者（排序）。
func (s *MemoryStore) Agents() []string {
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FormatShared 把共享メモ（语义核心条目）整理成提示区块。
func FormatShared(categories []string, perCategory int, items map[string][]string) string {
	if perCategory <= 0 {
		return ""
	}
	var lines []string
	for _, category := range categories {
		picked := items[category]
		if len(picked) > perCategory {
			picked = picked[:perCategory]
		}
		for _, item := range picked {
			lines = append(lines, fmt.Sprintf("- [%s] %s", category, item))
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return "shared notes:\n" + strings.Join(lines, "\n")
}
