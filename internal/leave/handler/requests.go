package handler

// submitRequest is the submission body. Evidence arrives base64-encoded per
// the standard JSON byte-slice encoding.
type submitRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Evidence  []byte `json:"evidence"`
	MimeType  string `json:"mime_type"`
}
