package profile

// ProxyStatus is the verification state of a session's proxy
type ProxyStatus string

const (
	ProxyStatusNone      ProxyStatus = "none"
	ProxyStatusChecking  ProxyStatus = "checking"
	ProxyStatusConnected ProxyStatus = "connected"
	ProxyStatusError     ProxyStatus = "error"
)

// ProxyReport is delivered on every status transition of a verification run
type ProxyReport struct {
	Status  ProxyStatus `json:"status"`
	Attempt int         `json:"attempt"`
	IP      string      `json:"ip,omitempty"`
}

// ProxyResult is the outcome of a complete verification run
type ProxyResult struct {
	Status   ProxyStatus
	IP       string
	Attempts int
}
