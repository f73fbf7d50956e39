package monitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"trade-governor/internal/store"
)

const maxListLimit = 500

// Service 负责持久化审计事件。
type Service struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewService 初始化审计服务，创建所需表结构。
func NewService(store *store.Store, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("monitor: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		db:     store.DB(),
		logger: logger,
	}

	if err := s.initSchema(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) initSchema() error {
	stmt := `
CREATE TABLE IF NOT EXISTS monitor_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_monitor_events_type ON monitor_events(event_type);
`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("monitor: 初始化表失败: %w", err)
	}
	return nil
}

// Record 写入单个事件。
func (s *Service) Record(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("monitor: 序列化事件失败: %w", err)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO monitor_events (event_type, payload, created_at) VALUES (?, ?, ?)`,
		string(event.Type), string(payload), event.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("monitor: 写入事件失败: %w", err)
	}

	return nil
}

// RecordValidation 记录交易前校验。
func (s *Service) RecordValidation(ctx context.Context, payload ValidationPayload) {
	s.record(ctx, EventValidation, payload, "记录校验事件失败")
}

// RecordExecution 记录成功下单。
func (s *Service) RecordExecution(ctx context.Context, payload ExecutionPayload) {
	s.record(ctx, EventExecution, payload, "记录执行事件失败")
}

// RecordExecutionFailure 记录下单失败。
func (s *Service) RecordExecutionFailure(ctx context.Context, payload ExecutionPayload) {
	s.record(ctx, EventExecutionFailure, payload, "记录执行失败事件失败")
}

// RecordSync 记录余额同步结果，带告警时归类为 sync_warning。
func (s *Service) RecordSync(ctx context.Context, payload SyncPayload) {
	eventType := EventSync
	if payload.Warning != "" {
		eventType = EventSyncWarning
	}
	s.record(ctx, eventType, payload, "记录同步事件失败")
}

// RecordRollover 记录交易日切换。
func (s *Service) RecordRollover(ctx context.Context, payload RolloverPayload) {
	s.record(ctx, EventRollover, payload, "记录交易日切换事件失败")
}

// RecordLock 记录账户锁定变化。
func (s *Service) RecordLock(ctx context.Context, payload LockPayload) {
	s.record(ctx, EventLock, payload, "记录锁定事件失败")
}

// RecordJournal 记录日记分析。
func (s *Service) RecordJournal(ctx context.Context, payload JournalPayload) {
	s.record(ctx, EventJournal, payload, "记录日记事件失败")
}

func (s *Service) record(ctx context.Context, eventType EventType, payload interface{}, failMsg string) {
	if s == nil {
		return
	}
	if err := s.Record(ctx, Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}); err != nil {
		s.logger.Warn(failMsg, zap.Error(err), zap.String("event_type", string(eventType)))
	}
}

// RecordError 记录异常。
func (s *Service) RecordError(ctx context.Context, msg string, err error, ctxMap map[string]interface{}) {
	if err == nil {
		return
	}
	s.record(ctx, EventError, ErrorPayload{
		Message: msg,
		Error:   err.Error(),
		Context: ctxMap,
	}, "记录异常事件失败")
}

// ListEvents 按类型检索最近事件。
func (s *Service) ListEvents(ctx context.Context, eventType EventType, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := `SELECT event_type, payload, created_at FROM monitor_events`
	args := make([]interface{}, 0, 2)
	if eventType != "" {
		query += ` WHERE event_type = ?`
		args = append(args, string(eventType))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("monitor: 查询事件失败: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		var (
			typ     string
			payload string
			created string
		)
		if scanErr := rows.Scan(&typ, &payload, &created); scanErr != nil {
			return nil, fmt.Errorf("monitor: 解析事件失败: %w", scanErr)
		}

		ts, parseErr := time.Parse(time.RFC3339Nano, created)
		if parseErr != nil {
			ts = time.Now().UTC()
		}

		events = append(events, Event{
			Type:      EventType(typ),
			Timestamp: ts,
			Payload:   json.RawMessage(payload),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monitor: 读取事件失败: %w", err)
	}

	return events, nil
}
