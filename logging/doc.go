// Package logging 提供两类输出：zap 结构化日志的构建，以及会议事件的
// 落盘写入（meeting_live.jsonl / meeting_live.md / thoughts.jsonl /
// 摘要探针文件）。Writer 实现 meeting.Sink，写入失败只记 warn，
// 绝不反过来影响会议进行。
package logging
