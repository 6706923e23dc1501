// Package config 提供 MeetingFlow 的配置管理功能。
//
// 包含会议配置模型、默认值、YAML 文件加载与环境变量覆盖。
// 配置在加载后通过 Finalize 补全派生值（如 phase_turn_limit），
// 再通过 Validate 做快速失败校验。
package config
