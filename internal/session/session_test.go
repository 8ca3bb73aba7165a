package session

import (
	"testing"

	"imapcopy/internal/config"
)

func TestTLSConfigForVerification(t *testing.T) {
	verified := tlsConfigFor(config.Endpoint{Host: "imap.example.com", VerifyTLS: true})
	if verified.InsecureSkipVerify {
		t.Error("expected InsecureSkipVerify=false when VerifyTLS is true")
	}

	unverified := tlsConfigFor(config.Endpoint{Host: "imap.example.com", VerifyTLS: false})
	if !unverified.InsecureSkipVerify {
		t.Error("expected InsecureSkipVerify=true when VerifyTLS is false")
	}
}

func TestUnencrypted(t *testing.T) {
	tests := []struct {
		enc  config.Encryption
		want bool
	}{
		{config.EncryptionNone, true},
		{config.EncryptionSSL, false},
		{config.EncryptionTLS, false},
		{config.EncryptionStartTLS, false},
	}

	for _, tt := range tests {
		s := &Session{encryption: tt.enc}
		if got := s.Unencrypted(); got != tt.want {
			t.Errorf("Unencrypted() for %q = %v, want %v", tt.enc, got, tt.want)
		}
	}
}

func TestLoginOnNilSession(t *testing.T) {
	var s *Session
	if err := s.Login(); err == nil {
		t.Error("expected error logging in on a nil session")
	}
}

func TestDelimiterCached(t *testing.T) {
	s := &Session{delimiter: ".", delimiterSet: true}
	got, err := s.Delimiter()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "." {
		t.Errorf("Delimiter() = %q, want %q", got, ".")
	}
}

func TestLabel(t *testing.T) {
	s := &Session{label: "source"}
	if got := s.Label(); got != "source" {
		t.Errorf("Label() = %q, want %q", got, "source")
	}
}
