package deliberation

import (
	"encoding/json"
	"math/rand"
	"regexp"
	"strings"

	"github.com/BaSui01/meetingflow/internal/textsim"
)

// ScoreRecord 审查者对单个参会者发言草案的评分。
type ScoreRecord struct {
	Flow      float64 `json:"flow"`
	Goal      float64 `json:"goal"`
	Quality   float64 `json:"quality"`
	Novelty   float64 `json:"novelty"`
	Action    float64 `json:"action"`
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

// Verdict 审查结果：逐人评分与指名的发言者。
type Verdict struct {
	Scores map[string]ScoreRecord
	Winner string
}

var jsonBlockRe = regexp.MustCompile(`\{[\s\S]*\}`)

type rawVerdict struct {
	Scores map[string]ScoreRecord `json:"scores"`
	Winner string                 `json:"winner"`
}

// ParseVerdict 解析审查者输出。提取最外层 JSON 块，按参会者名
// 大小写不敏感归并评分并截到 [0,1]；winner 无效时在最高分的
// 并列者中随机指名一个。
func ParseVerdict(raw string, agentNames []string, rng *rand.Rand) Verdict {
	payload := raw
	if block := jsonBlockRe.FindString(raw); block != "" {
		payload = block
	}

	var parsed rawVerdict
	_ = json.Unmarshal([]byte(payload), &parsed)

	canonical := make(map[string]string, len(agentNames))
	for _, name := range agentNames {
		canonical[strings.ToLower(name)] = name
	}

	scores := make(map[string]ScoreRecord, len(agentNames))
	for key, rec := range parsed.Scores {
		name, ok := canonical[strings.ToLower(strings.TrimSpace(key))]
		if !ok {
			continue
		}
		rationale := rec.Rationale
		if r := []rune(rationale); len(r) > 60 {
			rationale = string(r[:60])
		}
		scores[name] = ScoreRecord{
			Flow:      textsim.Clamp(rec.Flow, 0, 1),
			Goal:      textsim.Clamp(rec.Goal, 0, 1),
			Quality:   textsim.Clamp(rec.Quality, 0, 1),
			Novelty:   textsim.Clamp(rec.Novelty, 0, 1),
			Action:    textsim.Clamp(rec.Action, 0, 1),
			Score:     textsim.Clamp(rec.Score, 0, 1),
			Rationale: rationale,
		}
	}
	// 没提到的人记 0 分
	for _, name := range agentNames {
		if _, ok := scores[name]; !ok {
			scores[name] = ScoreRecord{}
		}
	}

	winner := ""
	if w, ok := canonical[strings.ToLower(strings.TrimSpace(parsed.Winner))]; ok {
		winner = w
	}
	if winner == "" {
		winner = pickTopScorer(scores, agentNames, rng)
	}
	return Verdict{Scores: scores, Winner: winner}
}

// ParseModeratorScores 解析司会者的均衡评分 JSON。
// 解析失败或缺名时一律补 0.5（均匀基准）。
func ParseModeratorScores(raw string, agentNames []string) map[string]float64 {
	payload := raw
	if block := jsonBlockRe.FindString(raw); block != "" {
		payload = block
	}
	var parsed struct {
		Scores map[string]float64 `json:"scores"`
	}
	_ = json.Unmarshal([]byte(payload), &parsed)

	canonical := make(map[string]string, len(agentNames))
	for _, name := range agentNames {
		canonical[strings.ToLower(name)] = name
	}
	out := make(map[string]float64, len(agentNames))
	for key, score := range parsed.Scores {
		if name, ok := canonical[strings.ToLower(strings.TrimSpace(key))]; ok {
			out[name] = textsim.Clamp(score, 0, 1)
		}
	}
	for _, name := range agentNames {
		if _, ok := out[name]; !ok {
			out[name] = 0.5
		}
	}
	return out
}

// pickTopScorer 在最高 Score 并列者中随机挑一个（按名册顺序收集并列者）。
func pickTopScorer(scores map[string]ScoreRecord, agentNames []string, rng *rand.Rand) string {
	if len(agentNames) == 0 {
		return ""
	}
	best := -1.0
	var ties []string
	for _, name := range agentNames {
		s := scores[name].Score
		switch {
		case s > best:
			best = s
			ties = ties[:0]
			ties = append(ties, name)
		case s == best:
			ties = append(ties, name)
		}
	}
	if len(ties) == 1 {
		return ties[0]
	}
	return ties[rng.Intn(len(ties))]
}
