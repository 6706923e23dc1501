// Package persistence 把会议结果写入 SQLite（纯 Go 驱动，无 CGO）。
// Store 既可以直接 Save/Load，也可以作为 meeting.Sink 挂在编排器上，
// 在 meeting_finished 事件到达时自动落库。
package persistence
