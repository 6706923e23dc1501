// Package deliberation 负责每一轮发言的生成管线：
//
//	思考（私密）→ 审查（中立评分选出发言者）→ 发言（短文聊天约束）
//
// 以及自检改写、回合摘要、最终纪要等所有面向 LLM 的提示构造。
// 发言者裁决会叠加冷却、相似度惩罚与 KPI 修正，非思考模式下用
// top-K softmax 抽选。所有随机性都来自注入的 RNG，测试模式下
// 整场会议逐字可复现。
package deliberation
