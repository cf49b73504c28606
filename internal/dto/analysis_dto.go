package dto

// UploadAnalysisRequest carries the multipart form fields alongside the
// uploaded file for POST /analysis/upload.
type UploadAnalysisRequest struct {
	DocType       string `form:"docType" json:"docType"`
	AnalysisLevel string `form:"analysisLevel" json:"analysisLevel" validate:"omitempty,oneof=basic comprehensive"`
	Provider      string `form:"provider" json:"provider"`
	ForceRebuild  bool   `form:"forceRebuild" json:"forceRebuild"`
}

// UploadAnalysisResponse is returned immediately, before the pipeline
// finishes; the caller polls GET /analysis/{docId} for the result.
type UploadAnalysisResponse struct {
	RunID  string `json:"runId"`
	DocID  string `json:"docId"`
	Status string `json:"status"`
}

// AnalysisStatusResponse is returned by GET /analysis/{docId} while the
// run is still in flight.
type AnalysisStatusResponse struct {
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
}
