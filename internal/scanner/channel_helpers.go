package scanner

import "fundarb/internal/models"

// tryEnqueueSignal неблокирующе ставит сигнал в исходящую очередь.
// Полный буфер означает отставшего потребителя: сигнал отбрасывается,
// приём рыночных данных важнее доставки каждого сигнала.
func tryEnqueueSignal(ch chan<- *models.TradeSignal, sig *models.TradeSignal) bool {
	select {
	case ch <- sig:
		SignalsEmitted.Inc()
		return true
	default:
		RecordBufferOverflow()
		return false
	}
}
