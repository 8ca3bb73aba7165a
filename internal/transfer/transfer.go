// Package transfer implements the transfer driver (SPEC_FULL.md §4.F): for
// each mapped folder, create the destination if missing, then copy
// messages buffer by buffer through the skip ladder and APPEND.
package transfer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/emersion/go-imap"

	"imapcopy/internal/config"
	"imapcopy/internal/foldermap"
	"imapcopy/internal/manifest"
	"imapcopy/internal/session"
	"imapcopy/internal/stats"
)

// successTokens are the substrings (matched case-insensitively) that the
// server's tagged APPEND response must contain to be recognized as
// success. Isolated behind one predicate per SPEC_FULL.md §9's design
// note, and left open for extension.
var successTokens = []string{"append completed", "(success)"}

// IsAppendSuccess reports whether the text of an APPEND status response
// indicates a completed append. A non-OK status is already an error from
// session.AppendMessage; this predicate is applied to the info text of an
// OK response, and a text without any success token is treated as failure.
func IsAppendSuccess(response string) bool {
	lower := strings.ToLower(response)
	for _, tok := range successTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// Driver copies mapped folders from source to destination.
type Driver struct {
	Source      *session.Session
	Destination *session.Session
	Mapper      *foldermap.Mapper
	Options     config.Options
	NoSubscribe bool
	Counters    *stats.Counters

	// DestinationFolders indexes the destination side's enumerated
	// manifests by folder name, used for existence checks and
	// incremental-mode dedup.
	DestinationFolders map[string]*manifest.Folder
}

// TransferFolder runs the per-folder state machine described in §4.F for
// one enumerated source folder.
func (d *Driver) TransferFolder(source *manifest.Folder) error {
	destName := d.Mapper.Map(source)

	existing, alreadyExists := d.DestinationFolders[destName]

	if !alreadyExists {
		if d.Options.DryRun {
			// no-op: dry-run makes no CREATE call.
		} else if d.Options.SkipEmptyFolders && len(source.Buffers) == 0 {
			d.Counters.SkipFolderEmpty()
			return nil
		} else {
			if err := d.Destination.CreateFolder(destName); err != nil {
				if strings.Contains(strings.ToLower(err.Error()), "alreadyexists") {
					d.Counters.SkipFolderAlreadyExists()
				} else {
					d.Counters.RecordError(stats.ErrorRecord{Folder: destName, Err: err.Error()})
					if d.Options.AbortOnError {
						return err
					}
					return nil
				}
			} else {
				if !d.NoSubscribe {
					if err := d.Destination.SubscribeFolder(destName); err != nil {
						d.Counters.RecordError(stats.ErrorRecord{Folder: destName, Err: err.Error()})
					}
				}
				d.Counters.IncCopiedFolders()
			}
		}
	} else {
		d.Counters.SkipFolderAlreadyExists()
	}

	if d.Options.DryRun {
		return nil
	}

	if _, err := d.Source.SelectReadOnly(source.Name); err != nil {
		return err
	}

	var destIDs map[string]bool
	if d.Options.Incremental && existing != nil {
		destIDs = existing.MessageIDs()
	}

	deniedFlags := d.Options.EffectiveDeniedFlags()

	for _, buffer := range source.Buffers {
		if err := d.transferBuffer(source, destName, buffer, destIDs, deniedFlags); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) transferBuffer(source *manifest.Folder, destName string, buffer []uint32, destIDs map[string]bool, deniedFlags map[string]bool) error {
	messages, done := d.Source.FetchBuffer(buffer)

	var transferErr error
	for msg := range messages {
		if transferErr != nil {
			continue
		}
		if err := d.transferMessage(source, destName, msg, destIDs, deniedFlags); err != nil {
			transferErr = err
		}
	}
	if err := <-done; err != nil {
		return fmt.Errorf("%s: fetch buffer from %q: %w", d.Source.Label(), source.Name, err)
	}
	return transferErr
}

func (d *Driver) transferMessage(source *manifest.Folder, destName string, msg *imap.Message, destIDs map[string]bool, deniedFlags map[string]bool) error {
	defer d.Counters.IncProcessed()

	meta, ok := source.Meta[msg.Uid]
	if !ok {
		d.Counters.RecordError(stats.ErrorRecord{
			Folder:    destName,
			Subject:   stats.Unknown,
			MessageID: stats.Unknown,
			Date:      stats.Unknown,
			Err:       "no manifest metadata for UID",
		})
		return nil
	}

	if meta.Size == 0 {
		d.Counters.SkipMailZeroSize()
		return nil
	}

	if d.Options.MaxMailSize > 0 && int(meta.Size) > d.Options.MaxMailSize {
		d.Counters.SkipMailMaxSize()
		return nil
	}

	if d.Options.Incremental && destIDs != nil && destIDs[meta.MessageID] {
		d.Counters.SkipMailAlreadyExists()
		return nil
	}

	body := msg.GetBody(&imap.BodySectionName{})
	if body == nil {
		d.Counters.RecordError(stats.ErrorRecord{
			Folder: destName, Subject: meta.Subject, MessageID: meta.MessageID, Err: "message has no body",
		})
		return nil
	}
	raw := new(bytes.Buffer)
	if _, err := raw.ReadFrom(body); err != nil {
		d.Counters.RecordError(stats.ErrorRecord{
			Folder: destName, Subject: meta.Subject, MessageID: meta.MessageID, Err: err.Error(),
		})
		return nil
	}
	payload := raw.Bytes()

	if d.Options.MaxLineLength > 0 && longestLine(payload) > d.Options.MaxLineLength {
		d.Counters.SkipMailMaxLineLength()
		return nil
	}

	flags := filterFlags(msg.Flags, deniedFlags)

	response, err := d.Destination.AppendMessage(destName, flags, msg.InternalDate, payload)
	if err != nil {
		d.Counters.RecordError(stats.ErrorRecord{
			Folder: destName, Subject: meta.Subject, MessageID: meta.MessageID,
			Size: meta.Size, Err: err.Error(),
		})
		if d.Options.AbortOnError {
			return err
		}
		return nil
	}

	if !IsAppendSuccess(response) {
		err := fmt.Errorf("unknown success message: %s", response)
		d.Counters.RecordError(stats.ErrorRecord{
			Folder: destName, Subject: meta.Subject, MessageID: meta.MessageID,
			Size: meta.Size, Err: err.Error(),
		})
		if d.Options.AbortOnError {
			return err
		}
		return nil
	}

	d.Counters.IncCopiedMails()
	return nil
}

func filterFlags(flags []string, denied map[string]bool) []string {
	var out []string
	for _, f := range flags {
		if denied[strings.ToLower(f)] {
			continue
		}
		out = append(out, f)
	}
	return out
}

func longestLine(payload []byte) int {
	longest := 0
	for _, line := range bytes.Split(payload, []byte{'\n'}) {
		if len(line) > longest {
			longest = len(line)
		}
	}
	return longest
}
