package control

import (
	"regexp"
	"sort"
	"strings"
)

// pendingKeys 判定“未解决项”的关键词（中英日混合，子串匹配）。
var pendingKeys = []string{
	"残課題", "課題", "リスク", "改善", "是正", "対策",
	"open issue", "issue", "risk", "follow-up", "todo", "mitigation", "concern",
}

var labelPrefixRe = regexp.MustCompile(`^[^:：]*[:：]\s*`)

// PendingTracker 从发言摘要中抽取未解决项并跟踪消化进度。
// initial 在首次读取时锁定，作为整场会议 progress 的分母。
type PendingTracker struct {
	items      map[string]struct{}
	initial    int
	initialSet bool
}

// NewPendingTracker 创建未解决项跟踪器。
func NewPendingTracker() *PendingTracker {
	return &PendingTracker{items: make(map[string]struct{})}
}

// AddFromText 逐行扫描文本，提取包含未解决关键词的行。
// 行首的列表记号与 "label:" 前缀会被剥掉。
func (p *PendingTracker) AddFromText(text string) {
	for _, line := range strings.Split(text, "\n") {
		s := strings.Trim(line, " ・-*\t")
		if s == "" {
			continue
		}
		if !containsAnyFold(s, pendingKeys) {
			continue
		}
		s = labelPrefixRe.ReplaceAllString(s, "")
		if s != "" {
			p.items[s] = struct{}{}
		}
	}
}

// ExtractItems 返回文本中命中的未解决项（不修改跟踪器状态）。
func ExtractItems(text string) map[string]struct{} {
	tmp := NewPendingTracker()
	tmp.AddFromText(text)
	return tmp.items
}

// Replace 用新的集合整体替换当前未解决项（消化阶段重新对账用）。
func (p *PendingTracker) Replace(items map[string]struct{}) {
	p.items = make(map[string]struct{}, len(items))
	for item := range items {
		p.items[item] = struct{}{}
	}
}

// Count 返回当前未解决项数量。
func (p *PendingTracker) Count() int { return len(p.items) }

// Initial 返回初始未解决项数量；首次调用时锁定当前数量。
func (p *PendingTracker) Initial() int {
	if !p.initialSet {
		p.initial = len(p.items)
		p.initialSet = true
	}
	return p.initial
}

// Items 返回排序后的未解决项列表。
func (p *PendingTracker) Items() []string {
	out := make([]string, 0, len(p.items))
	for item := range p.items {
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

// Has 判断某项是否仍未解决。
func (p *PendingTracker) Has(item string) bool {
	_, ok := p.items[item]
	return ok
}

// Clear 清空未解决项（initial 保持不变）。
func (p *PendingTracker) Clear() {
	p.items = make(map[string]struct{})
}

func containsAnyFold(s string, keys []string) bool {
	lower := strings.ToLower(s)
	for _, k := range keys {
		if strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
