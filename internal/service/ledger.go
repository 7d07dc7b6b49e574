package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"scheduled-payments/internal/schedule"
)

// DeliveryLedger remembers which schedules were already notified on a given day,
// so repeated or overlapping due checks send each reminder once.
type DeliveryLedger interface {
	// MarkSent records the delivery and reports whether this call was the first.
	MarkSent(ctx context.Context, scheduleID uint, day time.Time) (bool, error)
	// Forget drops a record so a failed delivery can be retried.
	Forget(ctx context.Context, scheduleID uint, day time.Time) error
}

// ledgerRetention covers the notified day plus timezone slack.
const ledgerRetention = 48 * time.Hour

func ledgerKey(scheduleID uint, day time.Time) string {
	return fmt.Sprintf("schedule:sent:%d:%s", scheduleID, day.Format(schedule.DateLayout))
}

// KeyValueSetter is the subset of the redis client used by RedisLedger.
type KeyValueSetter interface {
	SetOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
}

// RedisLedger shares delivery state between processes.
type RedisLedger struct {
	kv KeyValueSetter
}

func NewRedisLedger(kv KeyValueSetter) *RedisLedger {
	return &RedisLedger{kv: kv}
}

func (l *RedisLedger) MarkSent(ctx context.Context, scheduleID uint, day time.Time) (bool, error) {
	return l.kv.SetOnce(ctx, ledgerKey(scheduleID, day), ledgerRetention)
}

func (l *RedisLedger) Forget(ctx context.Context, scheduleID uint, day time.Time) error {
	return l.kv.Del(ctx, ledgerKey(scheduleID, day))
}

// MemoryLedger keeps delivery state in process.
type MemoryLedger struct {
	mu   sync.Mutex
	sent map[string]time.Time
	now  func() time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{sent: make(map[string]time.Time), now: time.Now}
}

func (l *MemoryLedger) MarkSent(_ context.Context, scheduleID uint, day time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.pruneLocked(now)

	key := ledgerKey(scheduleID, day)
	if _, ok := l.sent[key]; ok {
		return false, nil
	}
	l.sent[key] = now
	return true, nil
}

func (l *MemoryLedger) Forget(_ context.Context, scheduleID uint, day time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.sent, ledgerKey(scheduleID, day))
	return nil
}

func (l *MemoryLedger) pruneLocked(now time.Time) {
	for key, at := range l.sent {
		if now.Sub(at) > ledgerRetention {
			delete(l.sent, key)
		}
	}
}
