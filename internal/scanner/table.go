package scanner

import (
	"sort"
	"sync"

	"fundarb/internal/models"
)

// OpportunityTable - таблица живых возможностей.
//
// Писатель один - движок; читатели - дашборд и HTTP API. Мутации одного
// скоринг-прохода (upsert + удаления по символу) выполняются под одним
// захватом лока, поэтому читатели видят либо состояние до прохода, либо
// после - никогда частичное.
type OpportunityTable struct {
	mu   sync.RWMutex
	opps map[models.PairKey]models.Opportunity
}

// NewOpportunityTable создаёт пустую таблицу
func NewOpportunityTable() *OpportunityTable {
	return &OpportunityTable{
		opps: make(map[models.PairKey]models.Opportunity),
	}
}

// ApplyPass применяет результат скоринг-прохода для символа:
// upsert всех найденных возможностей и удаление пар символа,
// не вернувшихся из прохода. Пустой результат очищает символ целиком.
func (t *OpportunityTable) ApplyPass(symbol string, opps []models.Opportunity) {
	t.mu.Lock()
	defer t.mu.Unlock()

	found := make(map[models.PairKey]struct{}, len(opps))
	for i := range opps {
		key := opps[i].Key()
		t.opps[key] = opps[i]
		found[key] = struct{}{}
	}

	for key := range t.opps {
		if key.Symbol != symbol {
			continue
		}
		if _, ok := found[key]; !ok {
			delete(t.opps, key)
		}
	}

	ActiveOpportunities.Set(float64(len(t.opps)))
}

// SweepExpired глобально удаляет возможности, чья ближайшая граница
// фандинга уже наступила. Возвращает число удалённых.
func (t *OpportunityTable) SweepExpired(nowMs int64) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for key, opp := range t.opps {
		if opp.EarliestTS <= nowMs {
			delete(t.opps, key)
			removed++
		}
	}

	if removed > 0 {
		OpportunitiesExpired.Add(float64(removed))
		ActiveOpportunities.Set(float64(len(t.opps)))
	}

	return removed
}

// SnapshotSorted возвращает копию таблицы, отсортированную по убыванию
// итогового счёта (tie-break по каноническому ключу для детерминизма)
func (t *OpportunityTable) SnapshotSorted() []models.Opportunity {
	t.mu.RLock()
	out := make([]models.Opportunity, 0, len(t.opps))
	for _, opp := range t.opps {
		out = append(out, opp)
	}
	t.mu.RUnlock()

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].FinalScore != out[b].FinalScore {
			return out[a].FinalScore > out[b].FinalScore
		}
		return out[a].Key().String() < out[b].Key().String()
	})

	return out
}

// SymbolKeys возвращает ключи таблицы для символа (для тестов и API)
func (t *OpportunityTable) SymbolKeys(symbol string) []models.PairKey {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var keys []models.PairKey
	for key := range t.opps {
		if key.Symbol == symbol {
			keys = append(keys, key)
		}
	}
	return keys
}

// Get возвращает возможность по ключу
func (t *OpportunityTable) Get(key models.PairKey) (models.Opportunity, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	opp, ok := t.opps[key]
	return opp, ok
}

// Len возвращает текущий размер таблицы
func (t *OpportunityTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.opps)
}
