package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"fundarb/internal/models"
	"fundarb/internal/scanner"
)

// OpportunityHandler - read-only доступ к таблице живых возможностей
type OpportunityHandler struct {
	table *scanner.OpportunityTable
}

// NewOpportunityHandler создает новый handler
func NewOpportunityHandler(table *scanner.OpportunityTable) *OpportunityHandler {
	return &OpportunityHandler{table: table}
}

// opportunityList - формат ответа списков возможностей
type opportunityList struct {
	Count         int                  `json:"count"`
	Opportunities []models.Opportunity `json:"opportunities"`
}

// GetOpportunities возвращает все живые возможности по убыванию счёта.
// Параметры: ?limit=N (обрезка), ?min_score=X (фильтр по счёту).
func (h *OpportunityHandler) GetOpportunities(w http.ResponseWriter, r *http.Request) {
	opps := h.table.SnapshotSorted()

	if raw := r.URL.Query().Get("min_score"); raw != "" {
		minScore, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid min_score")
			return
		}
		filtered := opps[:0]
		for _, opp := range opps {
			if opp.FinalScore >= minScore {
				filtered = append(filtered, opp)
			}
		}
		opps = filtered
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if limit < len(opps) {
			opps = opps[:limit]
		}
	}

	if opps == nil {
		opps = []models.Opportunity{}
	}

	writeJSON(w, http.StatusOK, opportunityList{Count: len(opps), Opportunities: opps})
}

// GetOpportunitiesBySymbol возвращает возможности одного символа
func (h *OpportunityHandler) GetOpportunitiesBySymbol(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	opps := []models.Opportunity{}
	for _, opp := range h.table.SnapshotSorted() {
		if opp.Symbol == symbol {
			opps = append(opps, opp)
		}
	}

	writeJSON(w, http.StatusOK, opportunityList{Count: len(opps), Opportunities: opps})
}
