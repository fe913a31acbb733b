package sheetdto

// GenerateRequest is the wire form of one worksheet request.
type GenerateRequest struct {
	Theme     string `json:"theme"`
	MinRating int    `json:"min_rating"`
	MaxRating int    `json:"max_rating"`
	Count     int    `json:"count"`
}

// GenerateSummary reports what a generation run produced; returned in
// response headers alongside the PDF body.
type GenerateSummary struct {
	RequestID string   `json:"request_id"`
	Requested int      `json:"requested"`
	Generated int      `json:"generated"`
	Partial   bool     `json:"partial"`
	DroppedID []string `json:"dropped_ids,omitempty"`
}

// ThemeInfo is one selectable puzzle theme.
type ThemeInfo struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// WorksheetInfo is one persisted generation trace.
type WorksheetInfo struct {
	ID        int64    `json:"id"`
	RequestID string   `json:"request_id"`
	Theme     string   `json:"theme"`
	MinRating int      `json:"min_rating"`
	MaxRating int      `json:"max_rating"`
	Requested int      `json:"requested"`
	Generated int      `json:"generated"`
	PuzzleIDs []string `json:"puzzle_ids"`
	CreatedAt string   `json:"created_at"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
