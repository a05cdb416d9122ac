package http

import (
	"net/http"
	"strings"

	"bilancio/internal/core"
)

type meterRequest struct {
	Name  string `json:"name"`
	Owner string `json:"owner"`
	Kind  string `json:"kind"`
}

type meterResponse struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Owner  string `json:"owner"`
	Kind   string `json:"kind"`
	Active bool   `json:"active"`
}

func (s *Server) handleCreateMeter(w http.ResponseWriter, r *http.Request) {
	var req meterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	meter, err := s.utilities.CreateMeter(r.Context(), core.UtilityMeter{
		Name:   strings.TrimSpace(req.Name),
		Owner:  core.MeterOwner(strings.ToLower(strings.TrimSpace(req.Owner))),
		Kind:   core.UtilityKind(strings.ToLower(strings.TrimSpace(req.Kind))),
		Active: true,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, meterResponse{
		ID:     meter.ID,
		Name:   meter.Name,
		Owner:  string(meter.Owner),
		Kind:   string(meter.Kind),
		Active: meter.Active,
	})
}

func (s *Server) handleListMeters(w http.ResponseWriter, r *http.Request) {
	meters, err := s.utilities.ListMeters(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]meterResponse, 0, len(meters))
	for _, m := range meters {
		out = append(out, meterResponse{
			ID:     m.ID,
			Name:   m.Name,
			Owner:  string(m.Owner),
			Kind:   string(m.Kind),
			Active: m.Active,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type tariffRequest struct {
	Tiers []tierRequest `json:"tiers"`
}

type tierRequest struct {
	Limit int64  `json:"limit"`
	Price string `json:"price"`
}

func (s *Server) handleSetTariff(w http.ResponseWriter, r *http.Request) {
	var req tariffRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	tiers := make([]core.ElectricityTier, 0, len(req.Tiers))
	for i, t := range req.Tiers {
		price, err := parseAmount(t.Price)
		if err != nil {
			writeError(w, r, err)
			return
		}
		tiers = append(tiers, core.ElectricityTier{
			Position: i + 1,
			Limit:    t.Limit,
			Price:    price,
		})
	}

	if err := s.utilities.SetTariff(r.Context(), tiers); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type billRequest struct {
	PrevReading int64  `json:"prev_reading"`
	CurrReading int64  `json:"curr_reading"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
}

type billResponse struct {
	ID          int64  `json:"id,omitempty"`
	MeterID     int64  `json:"meter_id"`
	Kind        string `json:"kind"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	PrevReading int64  `json:"prev_reading"`
	CurrReading int64  `json:"curr_reading"`
	Usage       int64  `json:"usage"`
	BaseCents   int64  `json:"base_cents"`
	VATCents    int64  `json:"vat_cents,omitempty"`
	TotalCents  int64  `json:"total_cents"`
	IncludesVAT bool   `json:"includes_vat,omitempty"`
}

func toBillResponse(b core.UtilityBill) billResponse {
	return billResponse{
		ID:          b.ID,
		MeterID:     b.MeterID,
		Kind:        string(b.Kind),
		PeriodStart: formatDate(b.PeriodStart),
		PeriodEnd:   formatDate(b.PeriodEnd),
		PrevReading: b.PrevReading,
		CurrReading: b.CurrReading,
		Usage:       b.Usage,
		BaseCents:   b.Base.Cents,
		VATCents:    b.VAT.Cents,
		TotalCents:  b.Total.Cents,
		IncludesVAT: b.IncludesVAT,
	}
}

func (s *Server) billFromRequest(w http.ResponseWriter, r *http.Request, store bool) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req billRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	start, err := parseDate(req.PeriodStart)
	if err != nil {
		writeError(w, r, err)
		return
	}
	end, err := parseDate(req.PeriodEnd)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var bill core.UtilityBill
	if store {
		bill, err = s.utilities.CreateBill(r.Context(), id, req.PrevReading, req.CurrReading, start, end)
	} else {
		bill, err = s.utilities.PreviewBill(r.Context(), id, req.PrevReading, req.CurrReading, start, end)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if store {
		status = http.StatusCreated
	}
	writeJSON(w, status, toBillResponse(bill))
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	s.billFromRequest(w, r, true)
}

func (s *Server) handlePreviewBill(w http.ResponseWriter, r *http.Request) {
	s.billFromRequest(w, r, false)
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	bills, err := s.utilities.BillsForMeter(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]billResponse, 0, len(bills))
	for _, b := range bills {
		out = append(out, toBillResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}
