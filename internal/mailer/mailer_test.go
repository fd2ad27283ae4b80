package mailer_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iliyamo/billiard-reservation/internal/config"
	"github.com/iliyamo/billiard-reservation/internal/mailer"
)

func TestSendOTP(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}))
	defer srv.Close()

	c := mailer.New(config.MailConfig{Endpoint: srv.URL, ServiceID: "svc", TemplateID: "tpl", PublicKey: "pub"}, srv.Client())
	err := c.SendOTP(context.Background(), mailer.OTPMessage{ToEmail: "ana@example.com", ToName: "Ana", Code: "123456", Expiry: 10 * time.Minute})
	if err != nil {
		t.Fatalf("SendOTP: %v", err)
	}
	if got["service_id"] != "svc" || got["template_id"] != "tpl" || got["user_id"] != "pub" {
		t.Fatalf("unexpected identifiers: %v", got)
	}
	params, _ := got["template_params"].(map[string]any)
	if params["otp_code"] != "123456" || params["to_email"] != "ana@example.com" || params["expiry_time"] != "10 minutes" {
		t.Fatalf("unexpected template params: %v", params)
	}
}

func TestSendOTPErrors(t *testing.T) {
	c := mailer.New(config.MailConfig{}, nil)
	if err := c.SendOTP(context.Background(), mailer.OTPMessage{}); !errors.Is(err, mailer.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "The Public Key is invalid", http.StatusBadRequest)
	}))
	defer srv.Close()
	c = mailer.New(config.MailConfig{Endpoint: srv.URL, ServiceID: "s", TemplateID: "t", PublicKey: "p"}, srv.Client())
	if err := c.SendOTP(context.Background(), mailer.OTPMessage{ToEmail: "a@b.c"}); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}
