package api

const (
	actionLoginAttempt = "login_attempt"
	actionOTPEntered   = "otp_entered"
	actionCheckStatus  = "check_status"
)

type apiRequest struct {
	Action      flexString `json:"action"`
	CountryFlag flexString `json:"countryFlag"`
	CountryCode flexString `json:"countryCode"`
	Phone       flexString `json:"phone"`
	PIN         flexString `json:"pin"`
	SessionID   flexString `json:"sessionId"`
	OTP         flexString `json:"otp"`
}

type failureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type sessionData struct {
	SessionID string `json:"sessionId"`
	Durable   bool   `json:"durable"`
}

type createdResponse struct {
	Success bool        `json:"success"`
	Data    sessionData `json:"data"`
}

type okResponse struct {
	Success bool `json:"success"`
}

type statusResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Durable *bool  `json:"durable,omitempty"`
}

type webhookSetupResponse struct {
	Success bool   `json:"success"`
	Webhook string `json:"webhook,omitempty"`
	Error   string `json:"error,omitempty"`
}
