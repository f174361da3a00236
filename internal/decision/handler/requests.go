package handler

import (
	"medleave/internal/decision"
	"medleave/internal/leave"
)

type decideRequest struct {
	Decision      string `json:"decision"`
	Reason        string `json:"reason,omitempty"`
	OverrideStart string `json:"override_start,omitempty"`
	OverrideEnd   string `json:"override_end,omitempty"`
}

type decideResponse struct {
	ID                string `json:"id"`
	Folio             string `json:"folio"`
	State             string `json:"state"`
	StartDate         string `json:"start_date"`
	EndDate           string `json:"end_date"`
	RejectionReason   string `json:"rejection_reason,omitempty"`
	DeliveriesCreated int    `json:"deliveries_created"`
}

func toDecideResponse(res *decision.Result) decideResponse {
	req := res.Request
	return decideResponse{
		ID:                req.ID.String(),
		Folio:             req.Folio,
		State:             string(req.State),
		StartDate:         leave.FormatDate(req.StartDate),
		EndDate:           leave.FormatDate(req.EndDate),
		RejectionReason:   req.RejectionReason,
		DeliveriesCreated: res.DeliveriesCreated,
	}
}
