package persistence

import "time"

// MeetingRecord 会议一行。子表通过 MeetingID 关联。
type MeetingRecord struct {
	ID          string `gorm:"primaryKey;size:36"`
	Topic       string `gorm:"size:500"`
	State       string `gorm:"size:20;index"`
	Agreement   string
	NextActions string
	OpenIssues  string // JSON 配列
	Agents      string // JSON 配列
	FinalKPI    string // JSON
	StartedAt   time.Time
	FinishedAt  time.Time
	CreatedAt   time.Time
}

// TurnRecord 转录一行。
type TurnRecord struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	MeetingID string `gorm:"size:36;index"`
	TurnID    string `gorm:"size:36"`
	Idx       int    `gorm:"column:idx"`
	Round     int
	PhaseID   int
	Speaker   string `gorm:"size:100"`
	Text      string
	Thought   string
	Degraded  bool
	Timestamp time.Time
}

// PhaseRecord 阶段一行。
type PhaseRecord struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	MeetingID   string `gorm:"size:36;index"`
	PhaseID     int
	Kind        string `gorm:"size:20"`
	Goal        string
	TurnBudget  int
	StartTurn   int
	TurnCount   int
	Cohesion    float64
	CloseReason string `gorm:"size:50"`
	Status      string `gorm:"size:20"`
}

// ControlRecord 控制介入一行。
type ControlRecord struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	MeetingID   string `gorm:"size:36;index"`
	ControlID   string `gorm:"size:36"`
	Turn        int
	Round       int
	Action      string `gorm:"size:40"`
	Triggers    string // JSON 配列
	Thresholds  string // JSON
	Hint        string
	Adjustments string // JSON
	Timestamp   time.Time
}
