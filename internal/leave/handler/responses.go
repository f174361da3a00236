package handler

import (
	"time"

	"medleave/internal/leave"
	"medleave/internal/leave/service"
)

type requestResponse struct {
	ID              string    `json:"id"`
	StudentID       string    `json:"student_id"`
	Folio           string    `json:"folio"`
	IssueDate       time.Time `json:"issue_date"`
	StartDate       string    `json:"start_date"`
	EndDate         string    `json:"end_date"`
	State           string    `json:"state"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type evidenceResponse struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	MimeType   string    `json:"mime_type"`
	SHA256     string    `json:"sha256"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type deliveryResponse struct {
	CourseID  string    `json:"course_id"`
	CreatedAt time.Time `json:"created_at"`
}

type snapshotResponse struct {
	Request    requestResponse    `json:"request"`
	Evidence   []evidenceResponse `json:"evidence"`
	Deliveries []deliveryResponse `json:"deliveries"`
}

func toRequestResponse(req *leave.LeaveRequest) requestResponse {
	return requestResponse{
		ID:              req.ID.String(),
		StudentID:       req.StudentID.String(),
		Folio:           req.Folio,
		IssueDate:       req.IssueDate,
		StartDate:       leave.FormatDate(req.StartDate),
		EndDate:         leave.FormatDate(req.EndDate),
		State:           string(req.State),
		RejectionReason: req.RejectionReason,
		CreatedAt:       req.CreatedAt,
	}
}

func toSnapshotResponse(snap *service.Snapshot) snapshotResponse {
	out := snapshotResponse{
		Request:    toRequestResponse(snap.Request),
		Evidence:   make([]evidenceResponse, 0, len(snap.Evidence)),
		Deliveries: make([]deliveryResponse, 0, len(snap.Deliveries)),
	}
	for _, ev := range snap.Evidence {
		out.Evidence = append(out.Evidence, evidenceResponse{
			ID:         ev.ID.String(),
			URL:        ev.URL,
			MimeType:   ev.MimeType,
			SHA256:     ev.SHA256,
			SizeBytes:  ev.SizeBytes,
			UploadedAt: ev.UploadedAt,
		})
	}
	for _, d := range snap.Deliveries {
		out.Deliveries = append(out.Deliveries, deliveryResponse{
			CourseID:  d.CourseID.String(),
			CreatedAt: d.CreatedAt,
		})
	}
	return out
}
