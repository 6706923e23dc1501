// Package metrics 暴露会议运行的 Prometheus 指标：转数、退化发言、
// 控制介入、阶段跃迁与实时 KPI。Collector 实现 meeting.Sink，
// 另带一个后台资源采样器和可选的 /metrics HTTP 端点。
package metrics
