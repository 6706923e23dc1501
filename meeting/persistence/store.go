package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BaSui01/meetingflow/config"
	"github.com/BaSui01/meetingflow/meeting"
	"github.com/BaSui01/meetingflow/types"
)

// Store 会议结果的 SQLite 仓库。
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open 打开（或创建）SQLite 数据库并迁移表结构。
// path 传 ":memory:" 时得到内存库，测试用。
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.AutoMigrate(
		&MeetingRecord{},
		&TurnRecord{},
		&PhaseRecord{},
		&ControlRecord{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	logger.Info("meeting store opened", zap.String("path", path))
	return &Store{
		db:     db,
		logger: logger.With(zap.String("component", "store")),
	}, nil
}

// FromConfig 按持久化配置打开仓库。未启用时返回 (nil, nil)。
func FromConfig(cfg config.PersistenceConfig, logger *zap.Logger) (*Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	path := cfg.Path
	if path == "" {
		path = "meetingflow.db"
	}
	return Open(path, logger)
}

// Save 把会议结果整体落库。同一 ID 重复保存时覆盖旧数据。
func (s *Store) Save(ctx context.Context, result *types.MeetingResult) error {
	record, turns, phases, controls, err := flatten(result)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&TurnRecord{}, &PhaseRecord{}, &ControlRecord{}} {
			if err := tx.Where("meeting_id = ?", result.ID).Delete(model).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("id = ?", result.ID).Delete(&MeetingRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		if len(turns) > 0 {
			if err := tx.Create(&turns).Error; err != nil {
				return err
			}
		}
		if len(phases) > 0 {
			if err := tx.Create(&phases).Error; err != nil {
				return err
			}
		}
		if len(controls) > 0 {
			if err := tx.Create(&controls).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Load 按 ID 取回完整会议结果。
func (s *Store) Load(ctx context.Context, id string) (*types.MeetingResult, error) {
	var record MeetingRecord
	if err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("load meeting %s: %w", id, err)
	}

	var turns []TurnRecord
	if err := s.db.WithContext(ctx).
		Where("meeting_id = ?", id).Order("idx ASC").Find(&turns).Error; err != nil {
		return nil, err
	}
	var phases []PhaseRecord
	if err := s.db.WithContext(ctx).
		Where("meeting_id = ?", id).Order("phase_id ASC").Find(&phases).Error; err != nil {
		return nil, err
	}
	var controls []ControlRecord
	if err := s.db.WithContext(ctx).
		Where("meeting_id = ?", id).Order("turn ASC").Find(&controls).Error; err != nil {
		return nil, err
	}

	return rebuild(record, turns, phases, controls)
}

// List 返回最近 limit 件会议的概要行（新しい順）。
func (s *Store) List(ctx context.Context, limit int) ([]MeetingRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []MeetingRecord
	err := s.db.WithContext(ctx).
		Order("finished_at DESC").Limit(limit).Find(&records).Error
	return records, err
}

// Emit 实现 meeting.Sink：meeting_finished 事件到达时落库。
// 失败只记 warn，不影响会议。
func (s *Store) Emit(e meeting.Event) {
	if e.Kind != meeting.EventMeetingFinished || e.Result == nil {
		return
	}
	if err := s.Save(context.Background(), e.Result); err != nil {
		s.logger.Warn("meeting result save failed",
			zap.String("meeting_id", e.Result.ID), zap.Error(err))
		return
	}
	s.logger.Info("meeting result saved",
		zap.String("meeting_id", e.Result.ID),
		zap.Int("turns", len(e.Result.Turns)))
}

// Close 释放底层连接。
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ---------------------------------------------------------------------------
// 変換
// ---------------------------------------------------------------------------

func flatten(r *types.MeetingResult) (*MeetingRecord, []TurnRecord, []PhaseRecord, []ControlRecord, error) {
	openIssues, err := json.Marshal(r.OpenIssues)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	agents, err := json.Marshal(r.Agents)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	kpi, err := json.Marshal(r.FinalKPI)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	record := &MeetingRecord{
		ID:          r.ID,
		Topic:       r.Topic,
		State:       string(r.State),
		Agreement:   r.Agreement,
		NextActions: r.NextActions,
		OpenIssues:  string(openIssues),
		Agents:      string(agents),
		FinalKPI:    string(kpi),
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
	}

	turns := make([]TurnRecord, 0, len(r.Turns))
	for _, t := range r.Turns {
		turns = append(turns, TurnRecord{
			MeetingID: r.ID,
			TurnID:    t.ID,
			Idx:       t.Index,
			Round:     t.Round,
			PhaseID:   t.PhaseID,
			Speaker:   t.Speaker,
			Text:      t.Text,
			Thought:   t.Thought,
			Degraded:  t.Degraded,
			Timestamp: t.Timestamp,
		})
	}

	phases := make([]PhaseRecord, 0, len(r.Phases))
	for _, p := range r.Phases {
		phases = append(phases, PhaseRecord{
			MeetingID:   r.ID,
			PhaseID:     p.ID,
			Kind:        string(p.Kind),
			Goal:        p.Goal,
			TurnBudget:  p.TurnBudget,
			StartTurn:   p.StartTurn,
			TurnCount:   p.TurnCount,
			Cohesion:    p.Cohesion,
			CloseReason: p.CloseReason,
			Status:      string(p.Status),
		})
	}

	controls := make([]ControlRecord, 0, len(r.Controls))
	for _, c := range r.Controls {
		triggers, err := json.Marshal(c.Triggers)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		thresholds, err := json.Marshal(c.Thresholds)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		adjustments, err := json.Marshal(c.Adjustments)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		controls = append(controls, ControlRecord{
			MeetingID:   r.ID,
			ControlID:   c.ID,
			Turn:        c.Turn,
			Round:       c.Round,
			Action:      string(c.Action),
			Triggers:    string(triggers),
			Thresholds:  string(thresholds),
			Hint:        c.Hint,
			Adjustments: string(adjustments),
			Timestamp:   c.Timestamp,
		})
	}

	return record, turns, phases, controls, nil
}

func rebuild(record MeetingRecord, turns []TurnRecord, phases []PhaseRecord, controls []ControlRecord) (*types.MeetingResult, error) {
	result := &types.MeetingResult{
		ID:          record.ID,
		Topic:       record.Topic,
		State:       types.MeetingState(record.State),
		Agreement:   record.Agreement,
		NextActions: record.NextActions,
		StartedAt:   record.StartedAt,
		FinishedAt:  record.FinishedAt,
	}
	if record.OpenIssues != "" {
		if err := json.Unmarshal([]byte(record.OpenIssues), &result.OpenIssues); err != nil {
			return nil, fmt.Errorf("decode open issues: %w", err)
		}
	}
	if record.Agents != "" {
		if err := json.Unmarshal([]byte(record.Agents), &result.Agents); err != nil {
			return nil, fmt.Errorf("decode agents: %w", err)
		}
	}
	if record.FinalKPI != "" {
		if err := json.Unmarshal([]byte(record.FinalKPI), &result.FinalKPI); err != nil {
			return nil, fmt.Errorf("decode final kpi: %w", err)
		}
	}

	for _, t := range turns {
		result.Turns = append(result.Turns, types.Turn{
			ID:        t.TurnID,
			Index:     t.Idx,
			Round:     t.Round,
			PhaseID:   t.PhaseID,
			Speaker:   t.Speaker,
			Text:      t.Text,
			Thought:   t.Thought,
			Degraded:  t.Degraded,
			Timestamp: t.Timestamp,
		})
	}
	for _, p := range phases {
		result.Phases = append(result.Phases, types.Phase{
			ID:          p.PhaseID,
			Kind:        types.PhaseKind(p.Kind),
			Goal:        p.Goal,
			TurnBudget:  p.TurnBudget,
			StartTurn:   p.StartTurn,
			TurnCount:   p.TurnCount,
			Cohesion:    p.Cohesion,
			CloseReason: p.CloseReason,
			Status:      types.PhaseStatus(p.Status),
		})
	}
	for _, c := range controls {
		ctrl := types.ControlEvent{
			ID:        c.ControlID,
			Turn:      c.Turn,
			Round:     c.Round,
			Action:    types.ControlAction(c.Action),
			Hint:      c.Hint,
			Timestamp: c.Timestamp,
		}
		if c.Triggers != "" {
			if err := json.Unmarshal([]byte(c.Triggers), &ctrl.Triggers); err != nil {
				return nil, fmt.Errorf("decode control triggers: %w", err)
			}
		}
		if c.Thresholds != "" {
			if err := json.Unmarshal([]byte(c.Thresholds), &ctrl.Thresholds); err != nil {
				return nil, fmt.Errorf("decode control thresholds: %w", err)
			}
		}
		if c.Adjustments != "" {
			if err := json.Unmarshal([]byte(c.Adjustments), &ctrl.Adjustments); err != nil {
				return nil, fmt.Errorf("decode control adjustments: %w", err)
			}
		}
		result.Controls = append(result.Controls, ctrl)
	}
	return result, nil
}
