// Package meeting 是会议编排器：驱动 回合循环 → 发言生成 → KPI 评估 →
// 阶段跃迁 → 反馈控制 的完整生命周期，并在结束时汇总 MeetingResult。
//
// 编排循环是单线程的：每一轮发言都依赖完整的先前转录，轮与轮之间
// 严格串行。多场会议可以并行运行，各自持有独立的转录、KPI 履历与
// 阶段状态，互不共享可变状态。日志与指标通过 Sink 接口旁路发射，
// 它们的失败不会中断会议。
package meeting
