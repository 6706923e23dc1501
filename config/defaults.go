// =============================================================================
// 📦 MeetingFlow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

// DefaultConfig 返回默认会议配置（topic 和 agents 需调用方补充）
func DefaultConfig() *MeetingConfig {
	return &MeetingConfig{
		Precision:    5,
		ResolvePhase: true,
		Shock:        "off",
		ShockTTL:     2,
		Backend:      DefaultBackendConfig(),
		Chat:         DefaultChatConfig(),
		Selection:    DefaultSelectionConfig(),
		Monitor:      DefaultMonitorConfig(),
		KPI:          DefaultKPIConfig(),
		Think:        DefaultThinkConfig(),
		SummaryProbe: DefaultSummaryProbeConfig(),
		Memory:       DefaultMemoryConfig(),
		Log:          DefaultLogConfig(),
		Persistence:  PersistenceConfig{},
		Metrics:      MetricsConfig{},
	}
}

// DefaultBackendConfig 返回默认后端配置
func DefaultBackendConfig() BackendConfig {
	return BackendConfig{
		Name:      "ollama",
		OllamaURL: "http://localhost:11434",
		MaxTokens: 800,
	}
}

// DefaultChatConfig 返回默认短文聊天配置
func DefaultChatConfig() ChatConfig {
	return ChatConfig{
		Enabled:        true,
		MaxSentences:   2,
		MaxChars:       120,
		Window:         2,
		ContextSummary: true,
	}
}

// DefaultSelectionConfig 返回默认发言者抽选配置
func DefaultSelectionConfig() SelectionConfig {
	return SelectionConfig{
		Cooldown:     0.10,
		CooldownSpan: 1,
		TopK:         3,
		SelectTemp:   0.7,
		SimWindow:    6,
		SimPenalty:   0.25,
	}
}

// DefaultMonitorConfig 返回默认监视配置
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Enabled:        true,
		PhaseWindow:    8,
		CohesionMin:    0.70,
		UnresolvedDrop: 0.25,
		LoopThreshold:  3,
	}
}

// DefaultKPIConfig 返回默认 KPI 反馈配置
func DefaultKPIConfig() KPIConfig {
	return KPIConfig{
		Window:        6,
		AutoPrompt:    true,
		AutoTune:      true,
		DiversityMin:  0.55,
		DecisionMin:   0.40,
		ProgressStall: 3,
		CoverageTerms: []string{"goal", "risk", "owner", "deadline", "safety", "steps", "kpi"},
	}
}

// DefaultThinkConfig 返回默认思考管线配置
func DefaultThinkConfig() ThinkConfig {
	return ThinkConfig{
		Enabled:                   true,
		Debug:                     true,
		JudgeIncludeTopic:         true,
		JudgeIncludeRecent:        true,
		JudgeIncludeRecentSummary: true,
		JudgeIncludeFlowSummary:   true,
	}
}

// DefaultSummaryProbeConfig 返回默认摘要探针配置
func DefaultSummaryProbeConfig() SummaryProbeConfig {
	return SummaryProbeConfig{
		Filename:      "summary_probe.json",
		PhaseFilename: "summary_probe_phase.jsonl",
		Temperature:   0.4,
		MaxTokens:     300,
	}
}

// DefaultMemoryConfig 返回默认覚書/共有メモ配置
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		AgentLimit:          24,
		AgentWindow:         6,
		SharedPromptEnabled: true,
		SharedCategories:    []string{"key_points", "open_issues"},
		SharedPerCategory:   2,
		SharedWindow:        6,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:           "info",
		MarkdownEnabled: true,
		JSONLEnabled:    true,
	}
}
