package scanner

import (
	"context"
	"sync"

	"fundarb/internal/models"
)

// SnapshotQueue - конфлирующая очередь снапшотов между адаптерами и движком.
//
// Семантика:
//   - FIFO по ключам (symbol, venue)
//   - Publish для уже стоящего в очереди ключа замещает снапшот на месте:
//     новый снапшот полностью вытесняет старый, позиция в очереди сохраняется.
//     Это даёт политику "drop-oldest per key" без роста очереди при
//     медленном потребителе.
//   - Потребитель один (движок); продюсеров много (адаптеры).
//
// Готовность сигнализируется через notify-канал ёмкости 1: движок слушает
// Ready() в select'е вместе с результатами скоринга и дренирует очередь
// неблокирующим TryPop.
type SnapshotQueue struct {
	mu      sync.Mutex
	pending map[models.TableKey]*models.Snapshot
	order   []models.TableKey
	notify  chan struct{}
}

// NewSnapshotQueue создаёт пустую очередь
func NewSnapshotQueue() *SnapshotQueue {
	return &SnapshotQueue{
		pending: make(map[models.TableKey]*models.Snapshot),
		notify:  make(chan struct{}, 1),
	}
}

// Publish ставит снапшот в очередь или замещает уже стоящий для того же ключа
func (q *SnapshotQueue) Publish(s *models.Snapshot) {
	if s == nil {
		return
	}

	key := s.Key()

	q.mu.Lock()
	if _, queued := q.pending[key]; queued {
		SnapshotsConflated.Inc()
	} else {
		q.order = append(q.order, key)
	}
	q.pending[key] = s
	q.mu.Unlock()

	// Неблокирующее уведомление: одного сигнала достаточно,
	// потребитель дренирует очередь целиком
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Ready возвращает канал готовности для select'а потребителя
func (q *SnapshotQueue) Ready() <-chan struct{} {
	return q.notify
}

// TryPop неблокирующе извлекает самый старый снапшот.
// Возвращает nil, false если очередь пуста.
func (q *SnapshotQueue) TryPop() (*models.Snapshot, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.order) == 0 {
		return nil, false
	}

	key := q.order[0]
	q.order = q.order[1:]
	s := q.pending[key]
	delete(q.pending, key)

	return s, true
}

// Pop блокирующе извлекает снапшот, уважая отмену контекста
func (q *SnapshotQueue) Pop(ctx context.Context) (*models.Snapshot, error) {
	for {
		if s, ok := q.TryPop(); ok {
			return s, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.notify:
		}
	}
}

// Len возвращает текущую глубину очереди
func (q *SnapshotQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}
