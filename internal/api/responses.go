package api

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
	Field string `json:"field,omitempty" example:"stock"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// UpgradeRequiredResponse is returned when a free allocation is used up.
type UpgradeRequiredResponse struct {
	Error      string `json:"error" example:"You have reached your usage limit for Stock Analyzer. Please upgrade to continue."`
	Feature    string `json:"feature" example:"stock_analyzer"`
	UpgradeURL string `json:"upgrade_url" example:"/pricing"`
}
