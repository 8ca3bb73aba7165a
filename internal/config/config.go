// Package config resolves CLI flags and an optional file into a validated
// Config for a single replication run.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// Encryption names the transport security mode for an endpoint connection.
type Encryption string

const (
	EncryptionSSL      Encryption = "ssl"
	EncryptionTLS      Encryption = "tls"
	EncryptionStartTLS Encryption = "starttls"
	EncryptionNone     Encryption = "none"

	defaultBufferSize    = 50
	defaultIdleBatchSize = 10000
)

// ParseEncryption validates and normalizes an encryption flag value.
func ParseEncryption(value string) (Encryption, error) {
	switch Encryption(strings.ToLower(value)) {
	case EncryptionSSL:
		return EncryptionSSL, nil
	case EncryptionTLS:
		return EncryptionTLS, nil
	case EncryptionStartTLS:
		return EncryptionStartTLS, nil
	case EncryptionNone:
		return EncryptionNone, nil
	default:
		return "", fmt.Errorf("%q is an unknown encryption; use ssl, tls, starttls or none", value)
	}
}

// DefaultPort returns the conventional IMAP port for the given encryption mode.
func DefaultPort(enc Encryption) int {
	switch enc {
	case EncryptionStartTLS, EncryptionNone:
		return 143
	default:
		return 993
	}
}

// Endpoint describes one side (source or destination) of the replication.
type Endpoint struct {
	Host       string     `json:"host"       yaml:"host"`
	Port       int        `json:"port"       yaml:"port"`
	Encryption Encryption `json:"encryption" yaml:"encryption"`
	VerifyTLS  bool       `json:"verify_tls" yaml:"verify_tls"`
	User       string     `json:"user"       yaml:"user"`
	Pass       string     `json:"pass"       yaml:"pass"`
	Root       string     `json:"root"       yaml:"root"`

	// Source-only.
	Mailboxes []string `json:"mailboxes,omitempty" yaml:"mailboxes,omitempty"`

	// Destination-only.
	RootMerge   bool `json:"root_merge,omitempty"   yaml:"root_merge,omitempty"`
	NoSubscribe bool `json:"no_subscribe,omitempty" yaml:"no_subscribe,omitempty"`
}

// Redirection is a user-supplied override of the automatic folder mapping.
// A Source ending in "*" is a prefix wildcard (see internal/foldermap).
type Redirection struct {
	Source      string
	Destination string
}

// ParseRedirection splits a "SRC:DST" rule. Fixes the original tool's
// undefined-variable bug on malformed input: any rule lacking a colon (or
// an empty side) is a clean configuration error.
func ParseRedirection(rule string) (Redirection, error) {
	parts := strings.SplitN(rule, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Redirection{}, fmt.Errorf("could not parse redirection %q: expected SRC:DST", rule)
	}
	return Redirection{Source: parts[0], Destination: parts[1]}, nil
}

// Options holds the run-mode switches that aren't tied to a single endpoint.
type Options struct {
	DryRun            bool
	ListOnly          bool
	Incremental       bool
	AbortOnError      bool
	BufferSize        int
	DeniedFlags       []string
	Redirections      []Redirection
	IgnoreQuota       bool
	IgnoreFolderFlags bool
	MaxLineLength     int // 0 means unlimited
	MaxMailSize       int // 0 means unlimited
	NoColors          bool
	SkipEmptyFolders  bool
	IdleRefreshEvery  int // rows processed between idle-keeper refreshes
}

// Config is the fully resolved, validated configuration for one run.
type Config struct {
	Source      Endpoint
	Destination Endpoint
	Options     Options
}

// fileDefaults is the shape accepted by an optional --config JSON/YAML file.
// CLI flags always take precedence over values loaded here. A verify_tls
// value in the file has no effect: certificates are verified unless
// --ssl-no-verify is passed.
type fileDefaults struct {
	Source      Endpoint `json:"source" yaml:"source"`
	Destination Endpoint `json:"destination" yaml:"destination"`
}

func loadFileDefaults(path string) (*fileDefaults, error) {
	if path == "" {
		return &fileDefaults{}, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path %q: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return &fileDefaults{}, nil
		}
		return nil, fmt.Errorf("read config file %q: %w", abs, err)
	}

	var fd fileDefaults
	switch ext := strings.ToLower(filepath.Ext(abs)); ext {
	case ".json":
		if err := json.Unmarshal(data, &fd); err != nil {
			return nil, fmt.Errorf("invalid JSON in config file %q: %w", abs, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fd); err != nil {
			return nil, fmt.Errorf("invalid YAML in config file %q: %w", abs, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format %q; supported: .json, .yaml, .yml", ext)
	}
	return &fd, nil
}

// flagNames names the CLI flags backing one endpoint's shared fields.
type flagNames struct {
	user, pass, server, encryption, port, root string
}

var sourceFlags = flagNames{
	user: "source-user", pass: "source-pass", server: "source-server",
	encryption: "source-encryption", port: "source-port", root: "source-root",
}

var destinationFlags = flagNames{
	user: "destination-user", pass: "destination-pass", server: "destination-server",
	encryption: "destination-encryption", port: "destination-port", root: "destination-root",
}

// New resolves a Config from CLI flags, falling back to an optional
// --config file for endpoint defaults.
func New(c *cli.Context) (*Config, error) {
	fd, err := loadFileDefaults(c.String("config"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Source:      fd.Source,
		Destination: fd.Destination,
	}
	cfg.Source.VerifyTLS = !c.Bool("ssl-no-verify")
	cfg.Destination.VerifyTLS = !c.Bool("ssl-no-verify")

	if err := applyEndpointFlags(c, &cfg.Source, sourceFlags); err != nil {
		return nil, err
	}
	if err := applyEndpointFlags(c, &cfg.Destination, destinationFlags); err != nil {
		return nil, err
	}

	if mailboxes := c.StringSlice("source-mailbox"); len(mailboxes) > 0 {
		cfg.Source.Mailboxes = mailboxes
	}
	cfg.Destination.RootMerge = cfg.Destination.RootMerge || c.Bool("destination-root-merge")
	cfg.Destination.NoSubscribe = cfg.Destination.NoSubscribe || c.Bool("destination-no-subscribe")

	opts, err := resolveOptions(c)
	if err != nil {
		return nil, err
	}
	cfg.Options = opts

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEndpointFlags(c *cli.Context, ep *Endpoint, fs flagNames) error {
	if v := c.String(fs.user); v != "" {
		ep.User = v
	}
	if v := c.String(fs.pass); v != "" {
		ep.Pass = v
	}
	if v := c.String(fs.server); v != "" {
		ep.Host = v
	}
	if v := c.String(fs.root); v != "" {
		ep.Root = v
	}

	encValue := string(ep.Encryption)
	if c.IsSet(fs.encryption) {
		encValue = c.String(fs.encryption)
	}
	if encValue == "" {
		encValue = string(EncryptionSSL)
	}
	enc, err := ParseEncryption(encValue)
	if err != nil {
		return err
	}
	ep.Encryption = enc

	// Default the port only when the user did not pass one explicitly.
	if c.IsSet(fs.port) {
		ep.Port = c.Int(fs.port)
	} else if ep.Port == 0 {
		ep.Port = DefaultPort(enc)
	}

	return nil
}

func resolveOptions(c *cli.Context) (Options, error) {
	opts := Options{
		DryRun:            c.Bool("dry-run"),
		ListOnly:          c.Bool("list"),
		Incremental:       c.Bool("incremental"),
		AbortOnError:      c.Bool("abort-on-error"),
		BufferSize:        c.Int("buffer-size"),
		IgnoreQuota:       c.Bool("ignore-quota"),
		IgnoreFolderFlags: c.Bool("ignore-folder-flags"),
		MaxLineLength:     c.Int("max-line-length"),
		MaxMailSize:       c.Int("max-mail-size"),
		NoColors:          c.Bool("no-colors"),
		SkipEmptyFolders:  c.Bool("skip-empty-folders"),
		IdleRefreshEvery:  defaultIdleBatchSize,
	}

	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultBufferSize
	}

	if raw := c.String("denied-flags"); raw != "" {
		for _, tok := range strings.Split(raw, ",") {
			tok = strings.TrimSpace(strings.ToLower(tok))
			if tok != "" {
				opts.DeniedFlags = append(opts.DeniedFlags, tok)
			}
		}
	}

	for _, rule := range c.StringSlice("redirect") {
		r, err := ParseRedirection(rule)
		if err != nil {
			return Options{}, err
		}
		opts.Redirections = append(opts.Redirections, r)
	}

	return opts, nil
}

func (c *Config) validate() error {
	if c.Source.Host == "" {
		return fmt.Errorf("source server is required")
	}
	if c.Source.User == "" {
		return fmt.Errorf("source user is required")
	}
	if c.Source.Pass == "" {
		return fmt.Errorf("source password is required")
	}
	if c.Destination.Host == "" {
		return fmt.Errorf("destination server is required")
	}
	if c.Destination.User == "" {
		return fmt.Errorf("destination user is required")
	}
	if c.Destination.Pass == "" {
		return fmt.Errorf("destination password is required")
	}
	return nil
}

// EffectiveDeniedFlags returns the full suppressed-flag set: \Recent plus
// each user-supplied token lowercased and prefixed with a backslash.
func (o Options) EffectiveDeniedFlags() map[string]bool {
	set := map[string]bool{`\recent`: true}
	for _, tok := range o.DeniedFlags {
		set[`\`+strings.ToLower(tok)] = true
	}
	return set
}
