// Package session opens and authenticates IMAP connections and wraps the
// handful of commands the enumerator, transfer driver and idle keeper need.
package session

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/commands"

	"imapcopy/internal/config"
)

const mailboxChanBuffer = 16

// Logger receives human-readable status lines. Optional on a Session.
type Logger interface {
	Log(format string, args ...any)
}

// Session is a live, authenticated IMAP connection plus its cached
// hierarchy delimiter. The delimiter is an invariant of the session once
// observed: it is read once, on first use, and never re-queried.
type Session struct {
	*client.Client

	label      string
	encryption config.Encryption
	username   string
	password   string

	delimiter    string
	delimiterSet bool

	log Logger
}

// Dial opens a TCP/TLS connection under one of the four encryption modes
// and returns an unauthenticated Session. It never logs in: login is a
// separate, failable step (Login) so that a caller can distinguish
// transport/TLS failures from authentication failures.
func Dial(label string, ep config.Endpoint) (*Session, error) {
	addr := net.JoinHostPort(ep.Host, fmt.Sprintf("%d", ep.Port))

	var (
		c   *client.Client
		err error
	)

	switch ep.Encryption {
	case config.EncryptionSSL, config.EncryptionTLS:
		c, err = client.DialTLS(addr, tlsConfigFor(ep))
	case config.EncryptionStartTLS:
		c, err = client.Dial(addr)
		if err == nil {
			err = c.StartTLS(tlsConfigFor(ep))
		}
	case config.EncryptionNone:
		c, err = client.Dial(addr)
	default:
		return nil, fmt.Errorf("%s: unsupported encryption %q", label, ep.Encryption)
	}

	if err != nil {
		return nil, fmt.Errorf("%s: connect to %s (%s): %w", label, addr, ep.Encryption, err)
	}

	return &Session{
		Client:     c,
		label:      label,
		encryption: ep.Encryption,
		username:   ep.User,
		password:   ep.Pass,
	}, nil
}

// tlsConfigFor builds the TLS context for an endpoint. When verification is
// disabled, it accepts any certificate and skips the hostname check.
func tlsConfigFor(ep config.Endpoint) *tls.Config {
	return &tls.Config{
		ServerName:         ep.Host,
		InsecureSkipVerify: !ep.VerifyTLS,
	}
}

// Login authenticates on a dialed session. Invoked on a nil Session it
// fails cleanly instead of panicking.
func (s *Session) Login() error {
	if s == nil || s.Client == nil {
		return fmt.Errorf("login: no connection established")
	}
	if err := s.Client.Login(s.username, s.password); err != nil {
		return fmt.Errorf("%s: login failed: %w", s.label, err)
	}
	return nil
}

// Unencrypted reports whether this session is carrying plaintext traffic,
// for the connection factory's user-visible status reporting.
func (s *Session) Unencrypted() bool {
	return s.encryption == config.EncryptionNone
}

// SetLogger attaches a status sink used by the slower operations below.
func (s *Session) SetLogger(l Logger) {
	s.log = l
}

func (s *Session) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Log(format, args...)
	}
}

// Label returns the human-readable side name ("source" or "destination")
// this session was dialed for.
func (s *Session) Label() string {
	return s.label
}

// Delimiter returns the server's hierarchy delimiter, discovered from the
// first LIST response and cached from then on (§3 invariant: the delimiter
// is fixed for the lifetime of the session).
func (s *Session) Delimiter() (string, error) {
	if s.delimiterSet {
		return s.delimiter, nil
	}

	mailboxes := make(chan *imap.MailboxInfo, 1)
	done := make(chan error, 1)
	go func() { done <- s.List("", "", mailboxes) }()

	delimiter := "/"
	for mbox := range mailboxes {
		if mbox.Delimiter != "" {
			delimiter = mbox.Delimiter
		}
		break
	}
	for range mailboxes {
	}

	if err := <-done; err != nil {
		return "", fmt.Errorf("%s: discover delimiter: %w", s.label, err)
	}

	s.delimiter = delimiter
	s.delimiterSet = true
	return delimiter, nil
}

// Mailbox describes one LIST response: its server-exact name, flags and
// (now-known) delimiter.
type Mailbox struct {
	Name      string
	Delimiter string
	Flags     []string
}

// ListFolders lists every mailbox under root (empty root lists the whole
// tree) and caches the delimiter from the first response if not already
// known.
func (s *Session) ListFolders(root string) ([]Mailbox, error) {
	pattern := "*"
	if root != "" {
		pattern = root + "*"
	}

	mailboxes := make(chan *imap.MailboxInfo, mailboxChanBuffer)
	done := make(chan error, 1)
	go func() { done <- s.List("", pattern, mailboxes) }()

	var result []Mailbox
	for m := range mailboxes {
		if !s.delimiterSet && m.Delimiter != "" {
			s.delimiter = m.Delimiter
			s.delimiterSet = true
		}
		result = append(result, Mailbox{Name: m.Name, Delimiter: m.Delimiter, Flags: m.Attributes})
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("%s: list folders: %w", s.label, err)
	}
	return result, nil
}

// SelectReadOnly selects a mailbox without acquiring a write lock, the mode
// the enumerator always uses.
func (s *Session) SelectReadOnly(name string) (*imap.MailboxStatus, error) {
	mbox, err := s.Select(name, true)
	if err != nil {
		return nil, fmt.Errorf("%s: select %q: %w", s.label, name, err)
	}
	return mbox, nil
}

// SearchAll returns every UID in the currently selected mailbox.
func (s *Session) SearchAll() ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithFlags = nil
	ids, err := s.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("%s: search all: %w", s.label, err)
	}
	return ids, nil
}

// FetchMetadata fetches RFC822.SIZE and, optionally, ENVELOPE for the given
// UIDs and streams the results. The caller drains the channel to
// completion before inspecting the returned error.
func (s *Session) FetchMetadata(uids []uint32, withEnvelope bool) (<-chan *imap.Message, <-chan error) {
	items := []imap.FetchItem{imap.FetchUid, imap.FetchRFC822Size}
	if withEnvelope {
		items = append(items, imap.FetchEnvelope)
	}
	return s.fetchUIDs(uids, items)
}

// FetchBuffer fetches FLAGS, INTERNALDATE and the full RFC-822 payload for
// a buffer of UIDs, the shape the transfer driver APPENDs from.
func (s *Session) FetchBuffer(uids []uint32) (<-chan *imap.Message, <-chan error) {
	items := []imap.FetchItem{imap.FetchUid, imap.FetchFlags, imap.FetchInternalDate, imap.FetchRFC822}
	return s.fetchUIDs(uids, items)
}

func (s *Session) fetchUIDs(uids []uint32, items []imap.FetchItem) (<-chan *imap.Message, <-chan error) {
	seqset := new(imap.SeqSet)
	for _, uid := range uids {
		seqset.AddNum(uid)
	}

	messages := make(chan *imap.Message, mailboxChanBuffer)
	done := make(chan error, 1)
	go func() { done <- s.UidFetch(seqset, items, messages) }()
	return messages, done
}

// MailboxExists reports whether name already exists on this session.
func (s *Session) MailboxExists(name string) (bool, error) {
	mailboxes := make(chan *imap.MailboxInfo, 1)
	done := make(chan error, 1)
	go func() { done <- s.List("", name, mailboxes) }()

	exists := false
	for range mailboxes {
		exists = true
	}
	if err := <-done; err != nil {
		return false, fmt.Errorf("%s: check mailbox %q: %w", s.label, name, err)
	}
	return exists, nil
}

// CreateFolder issues CREATE, creating any missing parent levels first
// (IMAP servers generally require parents to exist before children).
func (s *Session) CreateFolder(name string) error {
	delimiter, err := s.Delimiter()
	if err != nil {
		return err
	}

	if delimiter != "" && strings.Contains(name, delimiter) {
		if err := s.createParents(name, delimiter); err != nil {
			return err
		}
	}

	if err := s.Create(name); err != nil {
		return fmt.Errorf("%s: create %q: %w", s.label, name, err)
	}
	return nil
}

func (s *Session) createParents(name, delimiter string) error {
	parts := strings.Split(name, delimiter)
	for i := 1; i < len(parts); i++ {
		parent := strings.Join(parts[:i], delimiter)
		exists, err := s.MailboxExists(parent)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		s.logf("%s: creating parent folder %s", s.label, parent)
		if err := s.Create(parent); err != nil && !strings.Contains(strings.ToLower(err.Error()), "alreadyexists") {
			return fmt.Errorf("%s: create parent %q: %w", s.label, parent, err)
		}
	}
	return nil
}

// SubscribeFolder issues SUBSCRIBE; a failure here is logged by the caller
// but never treated as fatal to the folder (the message is still copied).
func (s *Session) SubscribeFolder(name string) error {
	if err := s.Subscribe(name); err != nil {
		return fmt.Errorf("%s: subscribe %q: %w", s.label, name, err)
	}
	return nil
}

// AppendMessage writes one RFC-822 payload to folder with the given flags
// and internal date. It returns the tagged status response's info text
// alongside the error so the caller can apply its own success predicate
// (§4.F.5.f) instead of trusting go-imap's OK/NO classification alone.
// This bypasses the client's own Append wrapper, which discards that text,
// and issues the APPEND command directly via Execute.
func (s *Session) AppendMessage(folder string, flags []string, when time.Time, body []byte) (string, error) {
	cmd := &commands.Append{
		Mailbox: folder,
		Flags:   flags,
		Date:    when,
		Message: bytes.NewReader(body),
	}

	status, err := s.Execute(cmd, nil)
	if err != nil {
		return "", fmt.Errorf("%s: append to %q: %w", s.label, folder, err)
	}
	if err := status.Err(); err != nil {
		return "", fmt.Errorf("%s: append to %q: %w", s.label, folder, err)
	}
	return status.Info, nil
}

// Logout closes the session. Per the lifecycle rules, logout errors are
// reported by the caller but never fatal.
func (s *Session) Logout() error {
	if s == nil || s.Client == nil {
		return nil
	}
	return s.Client.Logout()
}
