package handler

import "remitpool/internal/compliance"

// StatusResponse is the HTTP response for GET /compliance/accounts/{account}.
type StatusResponse struct {
	Account        string `json:"account"`
	Allowlisted    bool   `json:"allowlisted"`
	Blocklisted    bool   `json:"blocklisted"`
	EffectiveLimit uint64 `json:"effective_daily_limit"`
	UsedToday      uint64 `json:"used_today"`
	RemainingToday uint64 `json:"remaining_today"`
}

// FromStatus converts a domain status tuple to an HTTP response.
func FromStatus(s compliance.Status) *StatusResponse {
	resp := &StatusResponse{
		Account:        s.Account.String(),
		Allowlisted:    s.Allowlisted,
		Blocklisted:    s.Blocklisted,
		EffectiveLimit: s.EffectiveLimit,
		UsedToday:      s.UsedToday,
	}
	if s.UsedToday < s.EffectiveLimit {
		resp.RemainingToday = s.EffectiveLimit - s.UsedToday
	}
	return resp
}

// BatchResponse reports how many batch entries were applied.
type BatchResponse struct {
	Added int `json:"added"`
}
