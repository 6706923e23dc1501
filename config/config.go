// =============================================================================
// 📦 MeetingFlow 会议配置模型
// =============================================================================
// 会议全体の設定値とエージェント設定。派生値の補完（Finalize）、
// precision からの実行パラメータ導出（RuntimeParams）を提供する。
// =============================================================================
package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/BaSui01/meetingflow/types"
)

// AgentConfig 会議参加エージェントの設定
type AgentConfig struct {
	// 表示名（重複不可）
	Name string `yaml:"name" env:"NAME"`
	// システムプロンプト（人格・役割の定義）
	System string `yaml:"system" env:"SYSTEM"`
	// 口調などの任意スタイル指定
	Style string `yaml:"style" env:"STYLE"`
	// true だと思考ログも公開する（研修用）
	RevealThink bool `yaml:"reveal_think" env:"REVEAL_THINK"`
	// エージェント固有の覚書（初期メモ）
	Memory []string `yaml:"memory" env:"MEMORY"`
}

// Agent 转换为运行时的 types.Agent。
func (a AgentConfig) Agent() types.Agent {
	return types.Agent{
		Name:         a.Name,
		SystemPrompt: a.System,
		Style:        a.Style,
	}
}

// BackendConfig LLM 后端配置
type BackendConfig struct {
	// 后端类型: openai, ollama, deterministic
	Name string `yaml:"name" env:"NAME"`
	// OpenAI 模型名
	OpenAIModel string `yaml:"openai_model" env:"OPENAI_MODEL"`
	// OpenAI API Key
	OpenAIAPIKey string `yaml:"openai_api_key" env:"OPENAI_API_KEY"`
	// OpenAI 基础 URL（可选，代理用）
	OpenAIBaseURL string `yaml:"openai_base_url" env:"OPENAI_BASE_URL"`
	// Ollama 模型名
	OllamaModel string `yaml:"ollama_model" env:"OLLAMA_MODEL"`
	// Ollama 服务地址
	OllamaURL string `yaml:"ollama_url" env:"OLLAMA_URL"`
	// 单次补全的最大 token 数
	MaxTokens int `yaml:"max_tokens" env:"MAX_TOKENS"`
	// 每秒请求数限制（0 为不限）
	RateLimitRPS float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// 确定性后端的随机种子
	Seed int64 `yaml:"seed" env:"SEED"`
}

// ChatConfig 短文チャット制約
type ChatConfig struct {
	// 是否启用短文模式
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 每次发言最多句数
	MaxSentences int `yaml:"max_sentences" env:"MAX_SENTENCES"`
	// 每次发言最多字符数（按 rune 计）
	MaxChars int `yaml:"max_chars" env:"MAX_CHARS"`
	// 提示中展示的最近发言数
	Window int `yaml:"window" env:"WINDOW"`
	// 是否把会话摘要注入聊天上下文
	ContextSummary bool `yaml:"context_summary" env:"CONTEXT_SUMMARY"`
}

// SelectionConfig 发言者评分与抽选参数
type SelectionConfig struct {
	// 直近発言者への減点（0.0-1.0）
	Cooldown float64 `yaml:"cooldown" env:"COOLDOWN"`
	// クールダウンを適用する遡りターン数
	CooldownSpan int `yaml:"cooldown_span" env:"COOLDOWN_SPAN"`
	// 上位 K 名から抽選
	TopK int `yaml:"topk" env:"TOPK"`
	// ソフトマックス温度（小さいほど貪欲）
	SelectTemp float64 `yaml:"select_temp" env:"SELECT_TEMP"`
	// 類似度の参照ターン数
	SimWindow int `yaml:"sim_window" env:"SIM_WINDOW"`
	// 類似度ペナルティ係数（0.0-1.0）
	SimPenalty float64 `yaml:"sim_penalty" env:"SIM_PENALTY"`
}

// MonitorConfig フェーズ自動判定（監視）の閾値
type MonitorConfig struct {
	// 是否启用监视
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 直近 W 発言でまとまり度を判定
	PhaseWindow int `yaml:"phase_window" env:"PHASE_WINDOW"`
	// フェーズ確定に必要なまとまり度下限（0-1）
	CohesionMin float64 `yaml:"cohesion_min" env:"COHESION_MIN"`
	// 未解決が W 内でこの割合以上減ったら確定
	UnresolvedDrop float64 `yaml:"unresolved_drop" env:"UNRESOLVED_DROP"`
	// 高類似ループ K 回でフェーズ確定
	LoopThreshold int `yaml:"loop_threshold" env:"LOOP_THRESHOLD"`
}

// KPIConfig KPI フィードバック制御の閾値
type KPIConfig struct {
	// 直近 W 発言でミニ KPI を算出
	Window int `yaml:"window" env:"WINDOW"`
	// 閾値割れで隠しプロンプトを注入
	AutoPrompt bool `yaml:"auto_prompt" env:"AUTO_PROMPT"`
	// 閾値割れでパラメータ自動調整
	AutoTune bool `yaml:"auto_tune" env:"AUTO_TUNE"`
	// 多様性の下限（下回ると発散要求）
	DiversityMin float64 `yaml:"diversity_min" env:"DIVERSITY_MIN"`
	// 決定密度の下限（下回ると担当/期限を強制）
	DecisionMin float64 `yaml:"decision_min" env:"DECISION_MIN"`
	// 未解決が W 中ずっと横ばい/悪化なら収束促進
	ProgressStall int `yaml:"progress_stall" env:"PROGRESS_STALL"`
	// spec_coverage 判定に使う必須キーワード（部分一致・大小文字無視）
	CoverageTerms []string `yaml:"coverage_terms" env:"COVERAGE_TERMS"`
}

// ThinkConfig 思考→審査→発言パイプラインの設定
type ThinkConfig struct {
	// 全員が非公開の思考を出してから発言者を決める
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// thoughts.jsonl に全思考・採点を保存する
	Debug bool `yaml:"debug" env:"DEBUG"`
	// 審査プロンプトにトピックを含める
	JudgeIncludeTopic bool `yaml:"judge_include_topic" env:"JUDGE_INCLUDE_TOPIC"`
	// 審査プロンプトに直近発言の抜粋を含める
	JudgeIncludeRecent bool `yaml:"judge_include_recent" env:"JUDGE_INCLUDE_RECENT"`
	// 審査プロンプトに直近要約を含める
	JudgeIncludeRecentSummary bool `yaml:"judge_include_recent_summary" env:"JUDGE_INCLUDE_RECENT_SUMMARY"`
	// 審査プロンプトに流れ要約を含める
	JudgeIncludeFlowSummary bool `yaml:"judge_include_flow_summary" env:"JUDGE_INCLUDE_FLOW_SUMMARY"`
}

// SummaryProbeConfig 要約プローブ設定
type SummaryProbeConfig struct {
	// 是否启用摘要探针
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 探针结果是否落盘
	LogEnabled bool `yaml:"log_enabled" env:"LOG_ENABLED"`
	// 输出文件名
	Filename string `yaml:"filename" env:"FILENAME"`
	// フェーズ要約ログを保存する
	PhaseLogEnabled bool `yaml:"phase_log_enabled" env:"PHASE_LOG_ENABLED"`
	// フェーズ要約の出力ファイル名
	PhaseFilename string `yaml:"phase_filename" env:"PHASE_FILENAME"`
	// 探针调用的 LLM 温度
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
	// 探针调用的最大 token 数
	MaxTokens int `yaml:"max_tokens" env:"MAX_TOKENS"`
}

// MemoryConfig エージェント覚書と共有メモの設定
type MemoryConfig struct {
	// 各エージェントが保持できる覚書の上限（0 で無制限）
	AgentLimit int `yaml:"agent_limit" env:"AGENT_LIMIT"`
	// プロンプトに注入する直近覚書の件数
	AgentWindow int `yaml:"agent_window" env:"AGENT_WINDOW"`
	// 共有メモをプロンプトへ注入する
	SharedPromptEnabled bool `yaml:"shared_prompt_enabled" env:"SHARED_PROMPT_ENABLED"`
	// 共有メモとして提示するカテゴリの優先順
	SharedCategories []string `yaml:"shared_categories" env:"SHARED_CATEGORIES"`
	// カテゴリごとに注入する件数（0 で無効化）
	SharedPerCategory int `yaml:"shared_per_category" env:"SHARED_PER_CATEGORY"`
	// 候補として考慮する最新更新件数（0 で全件）
	SharedWindow int `yaml:"shared_window" env:"SHARED_WINDOW"`
	// 注入する最小重要度
	SharedWeightMin float64 `yaml:"shared_weight_min" env:"SHARED_WEIGHT_MIN"`
}

// LogConfig 日志输出配置
type LogConfig struct {
	// zap 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// meeting_live.md を生成する
	MarkdownEnabled bool `yaml:"markdown_enabled" env:"MARKDOWN_ENABLED"`
	// meeting_live.jsonl を生成する
	JSONLEnabled bool `yaml:"jsonl_enabled" env:"JSONL_ENABLED"`
	// ログ出力先。未指定なら logs/<日時_トピック> を自動生成
	OutDir string `yaml:"outdir" env:"OUTDIR"`
}

// PersistenceConfig 会議結果の永続化設定
type PersistenceConfig struct {
	// 是否把会议结果写入 SQLite
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// SQLite 文件路径
	Path string `yaml:"path" env:"PATH"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	// 是否注册并暴露指标
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// /metrics 监听地址（空则不启动 HTTP 服务）
	Addr string `yaml:"addr" env:"ADDR"`
}

// MeetingConfig 会議全体に関する設定値
type MeetingConfig struct {
	// 会議テーマ（1文、必須）
	Topic string `yaml:"topic" env:"TOPIC"`
	// 精密性（1=発散, 10=厳密）
	Precision int `yaml:"precision" env:"PRECISION"`
	// 全体で許容するフェーズ数の上限（0 で制限なし）
	MaxPhases int `yaml:"max_phases" env:"MAX_PHASES"`
	// 各フェーズのターン数上限（0 なら自動導出）
	PhaseTurnLimit int `yaml:"phase_turn_limit" env:"PHASE_TURN_LIMIT"`
	// フェーズ種別ごとのターン数上限（設定時はこちらを優先）
	PhaseTurnLimits map[string]int `yaml:"phase_turn_limits"`
	// フェーズ共通の目的テキスト
	PhaseGoal string `yaml:"phase_goal" env:"PHASE_GOAL"`
	// フェーズ種別ごとの目的テキスト
	PhaseGoals map[string]string `yaml:"phase_goals"`
	// 参加エージェント
	Agents []AgentConfig `yaml:"agents"`
	// 最後に残課題消化フェーズを自動挿入する
	ResolvePhase bool `yaml:"resolve_phase" env:"RESOLVE_PHASE"`
	// ショック注入モード: off, random, explore, exploit
	Shock string `yaml:"shock" env:"SHOCK"`
	// ショックを維持するターン数
	ShockTTL int `yaml:"shock_ttl" env:"SHOCK_TTL"`
	// 個性テンプレート抽選のシード（0 で時刻依存）
	PersonalitySeed int64 `yaml:"personality_seed" env:"PERSONALITY_SEED"`

	Backend      BackendConfig      `yaml:"backend" env:"BACKEND"`
	Chat         ChatConfig         `yaml:"chat" env:"CHAT"`
	Selection    SelectionConfig    `yaml:"selection" env:"SELECTION"`
	Monitor      MonitorConfig      `yaml:"monitor" env:"MONITOR"`
	KPI          KPIConfig          `yaml:"kpi" env:"KPI"`
	Think        ThinkConfig        `yaml:"think" env:"THINK"`
	SummaryProbe SummaryProbeConfig `yaml:"summary_probe" env:"SUMMARY_PROBE"`
	Memory       MemoryConfig       `yaml:"memory" env:"MEMORY"`
	Log          LogConfig          `yaml:"log" env:"LOG"`
	Persistence  PersistenceConfig  `yaml:"persistence" env:"PERSISTENCE"`
	Metrics      MetricsConfig      `yaml:"metrics" env:"METRICS"`
}

// RuntimeParams precision から導出される実行パラメータ
type RuntimeParams struct {
	// 生成温度（p↑で温度↓）
	Temperature float64
	// クリティーク回数（0〜2）
	CritiquePasses int
}

// DerivePhaseTurnLimit 根据参加人数和监视窗口自动导出每阶段轮数上限。
// 「各参加者が最低2回ずつ話せること」と監視ウィンドウ幅の両方を満たす。
func DerivePhaseTurnLimit(agentCount, phaseWindow int) int {
	baseline := agentCount * 2
	minimum := 6
	if phaseWindow > minimum {
		minimum = phaseWindow
	}
	if baseline > minimum {
		return baseline
	}
	return minimum
}

// Finalize 补全派生值。加载完成后、Validate 之前调用。
func (c *MeetingConfig) Finalize() {
	if c.PhaseTurnLimit <= 0 && len(c.PhaseTurnLimits) == 0 && len(c.Agents) > 0 {
		c.PhaseTurnLimit = DerivePhaseTurnLimit(len(c.Agents), c.Monitor.PhaseWindow)
	}
	// 负数或零的种别上限视为未设置
	for kind, limit := range c.PhaseTurnLimits {
		if limit <= 0 {
			delete(c.PhaseTurnLimits, kind)
		}
	}
}

// PhaseTurnLimitFor フェーズ種別に応じたターン上限。0 は上限なし。
func (c *MeetingConfig) PhaseTurnLimitFor(kind types.PhaseKind) int {
	if len(c.PhaseTurnLimits) > 0 {
		for _, key := range []string{string(kind), "default", string(types.PhaseDiscussion)} {
			if v, ok := c.PhaseTurnLimits[key]; ok && v > 0 {
				return v
			}
		}
	}
	if c.PhaseTurnLimit > 0 {
		return c.PhaseTurnLimit
	}
	return len(c.Agents)
}

// PhaseGoalFor フェーズ種別に紐づく目標テキスト。
func (c *MeetingConfig) PhaseGoalFor(kind types.PhaseKind) string {
	if len(c.PhaseGoals) > 0 {
		for _, key := range []string{string(kind), "default", string(types.PhaseDiscussion)} {
			if v, ok := c.PhaseGoals[key]; ok && v != "" {
				return v
			}
		}
	}
	return c.PhaseGoal
}

// Runtime precision に応じた温度とクリティーク回数を算出する。
func (c *MeetingConfig) Runtime() RuntimeParams {
	p := float64(c.Precision)
	temperature := math.Max(0.2, math.Min(1.0, 1.1-(p/10)*0.8))
	passes := int(math.Round(p / 10 * 2))
	if passes < 0 {
		passes = 0
	}
	if passes > 2 {
		passes = 2
	}
	return RuntimeParams{Temperature: temperature, CritiquePasses: passes}
}

// Validate 快速失败校验。返回 INVALID_CONFIG 错误。
func (c *MeetingConfig) Validate() error {
	var errs []string

	if strings.TrimSpace(c.Topic) == "" {
		errs = append(errs, "topic must not be empty")
	}
	if c.Precision < 1 || c.Precision > 10 {
		errs = append(errs, "precision must be between 1 and 10")
	}
	if len(c.Agents) == 0 {
		errs = append(errs, "at least one agent is required")
	}
	seen := make(map[string]struct{}, len(c.Agents))
	for _, a := range c.Agents {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			errs = append(errs, "agent name must not be empty")
			continue
		}
		if _, dup := seen[name]; dup {
			errs = append(errs, fmt.Sprintf("duplicate agent name: %s", name))
		}
		seen[name] = struct{}{}
	}

	switch c.Backend.Name {
	case "openai":
		if c.Backend.OpenAIModel == "" {
			errs = append(errs, "backend.openai_model is required for the openai backend")
		}
	case "ollama":
		if c.Backend.OllamaModel == "" {
			errs = append(errs, "backend.ollama_model is required for the ollama backend")
		}
	case "deterministic":
		// 测试后端无需模型名
	default:
		errs = append(errs, fmt.Sprintf("unknown backend: %s", c.Backend.Name))
	}

	switch c.Shock {
	case "off", "random", "explore", "exploit":
	default:
		errs = append(errs, fmt.Sprintf("unknown shock mode: %s", c.Shock))
	}

	if c.Chat.Enabled && (c.Chat.MaxSentences <= 0 || c.Chat.MaxChars <= 0) {
		errs = append(errs, "chat limits must be positive when chat mode is enabled")
	}
	if c.Selection.TopK <= 0 {
		errs = append(errs, "selection.topk must be positive")
	}
	if c.Selection.SelectTemp <= 0 {
		errs = append(errs, "selection.select_temp must be positive")
	}
	if c.Monitor.Enabled && c.Monitor.PhaseWindow < 3 {
		errs = append(errs, "monitor.phase_window must be at least 3")
	}
	if c.KPI.Window <= 0 {
		errs = append(errs, "kpi.window must be positive")
	}

	if len(errs) > 0 {
		return types.NewError(types.ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// AgentNames 参加者名リスト（設定順）。
func (c *MeetingConfig) AgentNames() []string {
	names := make([]string, 0, len(c.Agents))
	for _, a := range c.Agents {
		names = append(names, a.Name)
	}
	return names
}
