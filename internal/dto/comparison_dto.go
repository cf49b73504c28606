package dto

// UploadComparisonRequest carries the multipart form fields for
// POST /comparison/upload-multiple; the files themselves come from
// ctx.MultipartForm().File["files"].
type UploadComparisonRequest struct {
	DocType       string `form:"docType" json:"docType"`
	AnalysisLevel string `form:"analysisLevel" json:"analysisLevel" validate:"omitempty,oneof=basic comprehensive"`
	ForceRebuild  bool   `form:"forceRebuild" json:"forceRebuild"`
}

// UploadComparisonResponse is returned immediately; the caller polls
// GET /comparison/{comparisonId} for the differential matrix.
type UploadComparisonResponse struct {
	ComparisonID string `json:"comparisonId"`
	Status       string `json:"status"`
}
