// Package control 实现会议的幕后控制回路：
//
//   - Monitor 监视近期发言的凝聚度与循环征兆，驱动阶段边界的
//     candidate → confirmed → closed 状态机；
//   - KPIFeedback 在滑动窗口上计算迷你 KPI 并给出提示/调参指令；
//   - ShockEngine 按模式（explore/exploit/random）生成参数扰动，
//     ShockState 负责基线捕获、边界裁剪与 TTL 恢复；
//   - PendingTracker 从发言中抽取未解决项并跟踪其消化情况。
//
// 这些组件都不直接调用 LLM，只观察转录与未解决项历史。
package control
