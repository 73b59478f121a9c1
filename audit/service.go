// Package audit records gold and experience payouts and dungeon outcomes.
// Entries are written asynchronously in batches so a slow audit table never
// holds up a game action.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/duskhollow/server/model"
	"github.com/duskhollow/server/store"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	ActionReward          = "reward"
	ActionDungeonComplete = "dungeon_complete"
	ActionDungeonFailed   = "dungeon_failed"
	ActionDungeonForfeit  = "dungeon_forfeit"
	ActionLaborPaid       = "labor_paid"
	ActionHeal            = "heal"
	ActionItemSold        = "item_sold"
	ActionRoleChanged     = "role_changed"
	ActionUserBanned      = "user_banned"
)

const (
	batchSize     = 100
	flushInterval = 2 * time.Second
)

// Entry holds one audit event to be logged.
type Entry struct {
	TraceID     string
	UserID      string
	CharacterID string
	Action      string
	Detail      interface{}
	Error       string
}

// Logger is what game services depend on.
type Logger interface {
	Log(Entry)
}

// Service logs audit entries asynchronously in batches.
type Service struct {
	st       store.Audit
	ch       chan *model.AuditLog
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	logger   *zap.Logger
}

// New creates a new audit Service and starts its background worker.
func New(st store.Audit, logger *zap.Logger) *Service {
	svc := &Service{
		st:     st,
		ch:     make(chan *model.AuditLog, 1024),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// Log enqueues an audit entry for async DB write.
func (svc *Service) Log(entry Entry) {
	detail := datatypes.JSON("{}")
	if entry.Detail != nil {
		b, err := json.Marshal(entry.Detail)
		if err != nil {
			svc.logger.Warn("audit detail not serializable",
				zap.String("action", entry.Action), zap.Error(err))
		} else {
			detail = datatypes.JSON(b)
		}
	}
	record := &model.AuditLog{
		ID:          model.NewID(),
		TraceID:     entry.TraceID,
		UserID:      entry.UserID,
		CharacterID: entry.CharacterID,
		Action:      entry.Action,
		Detail:      detail,
		Error:       entry.Error,
		CreatedAt:   time.Now(),
	}
	select {
	case svc.ch <- record:
	default:
		svc.logger.Warn("audit channel full, dropping entry",
			zap.String("action", entry.Action))
	}
}

// Stop flushes remaining entries and shuts down the worker.
// It blocks until the worker goroutine has finished.
func (svc *Service) Stop(_ context.Context) {
	svc.stopOnce.Do(func() { close(svc.stopCh) })
	svc.wg.Wait()
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]*model.AuditLog, 0, batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := svc.st.InsertAuditLogs(ctx, batch); err != nil {
			svc.logger.Error("audit batch write failed",
				zap.Int("entries", len(batch)), zap.Error(err))
		}
		batch = make([]*model.AuditLog, 0, batchSize)
	}

	for {
		select {
		case entry := <-svc.ch:
			batch = append(batch, entry)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			for {
				select {
				case entry := <-svc.ch:
					batch = append(batch, entry)
					if len(batch) >= batchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// Nop discards entries. Useful in tests that don't inspect the audit trail.
type Nop struct{}

func (Nop) Log(Entry) {}
