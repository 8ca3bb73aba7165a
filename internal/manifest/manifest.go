// Package manifest holds the per-folder enumeration records the transfer
// driver reads from: buffers of UIDs and the metadata pre-fetched for each.
package manifest

import (
	"mime"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-message/charset"
)

const noSubject = "(no subject)"

var subjectDecoder = &mime.WordDecoder{CharsetReader: charset.Reader}

// MessageMeta is the pre-fetched (size, subject, message-id) for one UID,
// gathered during enumeration and read during transfer.
type MessageMeta struct {
	Size      uint32
	Subject   string
	MessageID string
}

// Folder is one enumerated folder: its server-exact name, special-use
// flags, the buffer partitioning of its UIDs, and the per-UID metadata
// collected while fetching those buffers.
type Folder struct {
	Name      string
	Flags     []string
	Buffers   [][]uint32
	Meta      map[uint32]MessageMeta
	TotalSize uint64

	// NoEnvelope counts UIDs whose FETCH response lacked an ENVELOPE and so
	// were omitted from Meta (§3 invariant 2).
	NoEnvelope int
}

// NewFolder starts an empty manifest for a named folder.
func NewFolder(name string, flags []string) *Folder {
	return &Folder{
		Name:  name,
		Flags: flags,
		Meta:  make(map[uint32]MessageMeta),
	}
}

// HasFlag reports whether the folder carries the given IMAP flag
// (case-sensitive; IMAP special-use flags are always backslash-prefixed
// and capitalized, e.g. "\Sent").
func (f *Folder) HasFlag(flag string) bool {
	for _, fl := range f.Flags {
		if fl == flag {
			return true
		}
	}
	return false
}

// Partition splits a sorted UID list into contiguous buffers of size B.
func Partition(uids []uint32, size int) [][]uint32 {
	if size <= 0 {
		size = 1
	}
	var buffers [][]uint32
	for i := 0; i < len(uids); i += size {
		end := i + size
		if end > len(uids) {
			end = len(uids)
		}
		buffers = append(buffers, uids[i:end])
	}
	return buffers
}

// DecodeSubject MIME-decodes an envelope subject. An empty or blank subject
// becomes the "(no subject)" placeholder; when decoding fails or yields only
// whitespace, the raw subject is returned unchanged.
func DecodeSubject(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return noSubject
	}
	decoded, err := subjectDecoder.DecodeHeader(raw)
	if err != nil || strings.TrimSpace(decoded) == "" {
		return raw
	}
	return decoded
}

// MessageID extracts and trims the angle brackets from an envelope's
// Message-Id, used as the dedup key in incremental mode.
func MessageID(raw string) string {
	return strings.Trim(raw, "<>")
}

// RecordEnvelope folds one FETCH response carrying ENVELOPE + RFC822.SIZE
// into the manifest, or increments NoEnvelope when the envelope is absent.
func (f *Folder) RecordEnvelope(msg *imap.Message) {
	if msg.Envelope == nil {
		f.NoEnvelope++
		return
	}
	meta := MessageMeta{
		Size:      msg.Size,
		Subject:   DecodeSubject(msg.Envelope.Subject),
		MessageID: MessageID(msg.Envelope.MessageId),
	}
	f.Meta[msg.Uid] = meta
	f.TotalSize += uint64(meta.Size)
}

// RecordSize folds a FETCH response carrying only RFC822.SIZE (the
// destination side, non-incremental) into the manifest.
func (f *Folder) RecordSize(msg *imap.Message) {
	meta := f.Meta[msg.Uid]
	meta.Size = msg.Size
	f.Meta[msg.Uid] = meta
	f.TotalSize += uint64(msg.Size)
}

// MessageIDs returns the set of Message-IDs known to this folder's
// manifest, used for incremental-mode deduplication against the source.
func (f *Folder) MessageIDs() map[string]bool {
	ids := make(map[string]bool, len(f.Meta))
	for _, m := range f.Meta {
		if m.MessageID != "" {
			ids[m.MessageID] = true
		}
	}
	return ids
}
