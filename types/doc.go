// Copyright (c) MeetingFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 MeetingFlow 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 config、llm、meeting、
logging 等上层模块提供统一的类型契约。所有跨包共享的结构体、枚举和
错误码均定义于此，以避免循环依赖。

# 核心类型

  - Agent              — 会议参与者身份（名称、系统提示词、风格、角色标签）
  - Turn / Transcript  — 单次发言与只追加的会议记录
  - Phase / PhaseKind  — 会议阶段及其封闭枚举（discussion / resolution / wrapup）
  - KPISnapshot        — 滑动窗口 KPI 快照（progress / diversity / decision / coverage）
  - ControlEvent       — KPI 反馈控制器的干预记录
  - MeetingResult      — 会议终态快照（记录、结论、KPI、阶段时间线）
  - Error / ErrorCode  — 结构化错误体系，含 Retryable 与 Provider 标记

# 不变式

  - Transcript 只追加：任一时刻的记录都是后续时刻记录的严格前缀。
  - Turn 创建后不可变，KPI 重算的确定性依赖该不变式。
  - 同一时刻恰有一个 Phase 处于 active 状态。
*/
package types
