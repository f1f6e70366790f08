package model

// DashboardPanel is an embeddable Grafana panel shown on a role dashboard.
type DashboardPanel struct {
    ID          string `json:"id"`
    Title       string `json:"title"`
    Description string `json:"description"`
    IframeURL   string `json:"iframeUrl"`
    Width       int    `json:"width"`
    Height      int    `json:"height"`
    Category    string `json:"category"` // metrics | missions | users | system
}

// RefreshOption is one entry of the dashboard auto-refresh selector.
type RefreshOption struct {
    Label string `json:"label"`
    Value string `json:"value"`
}

// ErrorResponse is the error body returned by the remote API.
type ErrorResponse struct {
    Code    string       `json:"code"`
    Message string       `json:"message"`
    Status  int          `json:"status"`
    Error   string       `json:"error,omitempty"`
    Path    string       `json:"path,omitempty"`
    Errors  []FieldError `json:"errors,omitempty"`
}

// FieldError is a single field failure inside a validation ErrorResponse.
type FieldError struct {
    Field   string `json:"field"`
    Message string `json:"message"`
}
