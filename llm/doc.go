// Package llm 定义统一的 LLM Provider 抽象与消息类型。
//
// 会议引擎只依赖 Provider 接口；具体后端（openai、ollama、
// deterministic）在 llm/providers 下实现。错误统一映射为
// types.Error，携带错误码、HTTP 状态与可重试标记。
package llm
