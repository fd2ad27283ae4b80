package config

import "time"

// MailConfig carries the credentials for the transactional email API used to
// deliver registration OTP codes.  The endpoint speaks the EmailJS REST
// protocol: a JSON body with service, template and public key identifiers.
type MailConfig struct {
	Endpoint   string
	ServiceID  string
	TemplateID string
	PublicKey  string
	PrivateKey string
	Timeout    time.Duration
}

// OTPConfig controls the lifetime of registration codes.
type OTPConfig struct {
	TTL            time.Duration
	ResendInterval time.Duration
	Prefix         string
}

// LoadMailConfig reads MAIL_* variables.  Missing identifiers leave the
// mailer unconfigured; sending then fails with a descriptive error.
func LoadMailConfig() MailConfig {
	return MailConfig{
		Endpoint:   envStr("MAIL_API_ENDPOINT", "https://api.emailjs.com/api/v1.0/email/send"),
		ServiceID:  envStr("MAIL_SERVICE_ID", ""),
		TemplateID: envStr("MAIL_TEMPLATE_ID", ""),
		PublicKey:  envStr("MAIL_PUBLIC_KEY", ""),
		PrivateKey: envStr("MAIL_PRIVATE_KEY", ""),
		Timeout:    envDur("MAIL_TIMEOUT", 10*time.Second),
	}
}

// LoadOTPConfig reads OTP_* variables with the defaults used by the sign-up
// form: codes live ten minutes and may be resent once a minute.
func LoadOTPConfig() OTPConfig {
	cfg := OTPConfig{
		TTL:            envDur("OTP_TTL", 10*time.Minute),
		ResendInterval: envDur("OTP_RESEND_INTERVAL", time.Minute),
		Prefix:         envStr("OTP_PREFIX", "otp"),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	return cfg
}
