package meeting

import (
	"time"

	"github.com/BaSui01/meetingflow/meeting/control"
	"github.com/BaSui01/meetingflow/types"
)

// 事件种类
const (
	EventMeetingStarted  = "meeting_started"
	EventTurn            = "turn"
	EventRoundSummary    = "round_summary"
	EventKPI             = "kpi"
	EventControl         = "control"
	EventPhase           = "phase"
	EventMeetingFinished = "meeting_finished"
)

// Event 是编排器向外发射的结构化事件。
// 写入端只负责格式化落盘，核心不关心文件格式。
type Event struct {
	Kind      string               `json:"kind"`
	Timestamp time.Time            `json:"timestamp"`
	MeetingID string               `json:"meeting_id"`
	Topic     string               `json:"topic,omitempty"`
	Round     int                  `json:"round,omitempty"`
	Turn      *types.Turn          `json:"turn,omitempty"`
	Summary   string               `json:"summary,omitempty"`
	Phase     *types.Phase         `json:"phase,omitempty"`
	PhaseNote *control.PhaseEvent  `json:"phase_note,omitempty"`
	Control   *types.ControlEvent  `json:"control,omitempty"`
	KPI       *types.KPISnapshot   `json:"kpi,omitempty"`
	Result    *types.MeetingResult `json:"result,omitempty"`
}

// Sink 接收编排器事件。实现必须快速返回：
// 落盘失败等问题自行吞掉，绝不能反过来中断会议。
type Sink interface {
	Emit(Event)
}

// MultiSink 把事件广播给多个 Sink。
type MultiSink []Sink

func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}
