// Command meetingflow 从配置文件驱动一场多智能体会议。
//
// 会议全程输出结构化日志（zap）、会议录（Markdown/JSONL）、Prometheus
// 指标，并可选地把结果写入 SQLite。Ctrl-C 触发有序收尾：当前发言
// 完成后直接进入最终纪要。
package main
