package domain

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type InvitationMailData struct {
	FullName     string `json:"fullName"`
	InviterName  string `json:"inviterName"`
	ScheduleName string `json:"scheduleName"`
	RoleName     string `json:"roleName"`
}

type ResetPasswordMailData struct {
	FullName   string `json:"fullName"`
	OTP        string `json:"otp"`
	Expiration int    `json:"expiration"`
}
