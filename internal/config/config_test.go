package config

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		wantErr     bool
		errContains string
	}{
		{
			name: "valid config",
			config: Config{
				Source:      Endpoint{Host: "imap.source.com", User: "user@source.com", Pass: "password"},
				Destination: Endpoint{Host: "imap.dest.com", User: "user@dest.com", Pass: "password"},
			},
			wantErr: false,
		},
		{
			name: "missing source server",
			config: Config{
				Source:      Endpoint{Host: "", User: "user@source.com", Pass: "password"},
				Destination: Endpoint{Host: "imap.dest.com", User: "user@dest.com", Pass: "password"},
			},
			wantErr:     true,
			errContains: "source server is required",
		},
		{
			name: "missing source user",
			config: Config{
				Source:      Endpoint{Host: "imap.source.com", User: "", Pass: "password"},
				Destination: Endpoint{Host: "imap.dest.com", User: "user@dest.com", Pass: "password"},
			},
			wantErr:     true,
			errContains: "source user is required",
		},
		{
			name: "missing destination password",
			config: Config{
				Source:      Endpoint{Host: "imap.source.com", User: "user@source.com", Pass: "password"},
				Destination: Endpoint{Host: "imap.dest.com", User: "user@dest.com", Pass: ""},
			},
			wantErr:     true,
			errContains: "destination password is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.validate()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("expected error to contain %q, got %q", tt.errContains, err.Error())
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseEncryption(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    Encryption
		wantErr bool
	}{
		{name: "ssl", value: "ssl", want: EncryptionSSL},
		{name: "tls uppercase", value: "TLS", want: EncryptionTLS},
		{name: "starttls", value: "starttls", want: EncryptionStartTLS},
		{name: "none", value: "none", want: EncryptionNone},
		{name: "unknown", value: "plain", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEncryption(tt.value)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseEncryption(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestDefaultPort(t *testing.T) {
	tests := []struct {
		enc  Encryption
		want int
	}{
		{EncryptionSSL, 993},
		{EncryptionTLS, 993},
		{EncryptionStartTLS, 143},
		{EncryptionNone, 143},
	}

	for _, tt := range tests {
		if got := DefaultPort(tt.enc); got != tt.want {
			t.Errorf("DefaultPort(%q) = %d, want %d", tt.enc, got, tt.want)
		}
	}
}

func TestParseRedirection(t *testing.T) {
	tests := []struct {
		name    string
		rule    string
		want    Redirection
		wantErr bool
	}{
		{
			name: "literal",
			rule: "Inbox.Archive:Archive",
			want: Redirection{Source: "Inbox.Archive", Destination: "Archive"},
		},
		{
			name: "wildcard",
			rule: "Lists/*:Lists",
			want: Redirection{Source: "Lists/*", Destination: "Lists"},
		},
		{
			name:    "missing colon",
			rule:    "InboxArchive",
			wantErr: true,
		},
		{
			name:    "empty destination",
			rule:    "Inbox:",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRedirection(tt.rule)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseRedirection(%q) = %+v, want %+v", tt.rule, got, tt.want)
			}
		})
	}
}

func TestEffectiveDeniedFlags(t *testing.T) {
	opts := Options{DeniedFlags: []string{"Seen", "recent"}}
	set := opts.EffectiveDeniedFlags()

	for _, want := range []string{`\recent`, `\seen`} {
		if !set[want] {
			t.Errorf("expected %q in effective denied flags, got %v", want, set)
		}
	}
	if len(set) != 2 {
		t.Errorf("expected 2 entries (recent is deduped), got %d: %v", len(set), set)
	}
}
