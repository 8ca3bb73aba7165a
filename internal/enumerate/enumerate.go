// Package enumerate implements the folder enumerator (SPEC_FULL.md §4.C):
// for one side, LIST under an optional root, SELECT and SEARCH each
// folder, and FETCH the per-message manifest in buffers.
package enumerate

import (
	"fmt"
	"sort"
	"strings"

	"imapcopy/internal/idle"
	"imapcopy/internal/manifest"
	"imapcopy/internal/session"
	"imapcopy/internal/stats"
)

const idleRefreshRows = 10000

// Side distinguishes the enumeration's role, controlling whether ENVELOPE
// is always fetched (source) or only under incremental mode (destination).
type Side int

const (
	Source Side = iota
	Destination
)

// Options configures one enumeration pass.
type Options struct {
	Root             string
	BufferSize       int
	SkipEmptyFolders bool
	MailboxFilter    map[string]bool // nil means no filter
	FetchEnvelope    bool            // destination side: true only when incremental
	IdleRefreshEvery int
}

// Enumerate lists and fetches manifests for every folder on sess, parking
// opposite in IDLE between refresh batches (the cooperative two-session
// discipline of §4.D/§5).
func Enumerate(sess *session.Session, opposite *idle.Keeper, side Side, opts Options, counters *stats.Counters) ([]*manifest.Folder, error) {
	mailboxes, err := sess.ListFolders(opts.Root)
	if err != nil {
		return nil, err
	}

	refreshEvery := opts.IdleRefreshEvery
	if refreshEvery <= 0 {
		refreshEvery = idleRefreshRows
	}

	var folders []*manifest.Folder
	rowsSinceRefresh := 0

	for _, mbox := range mailboxes {
		if opts.MailboxFilter != nil && !opts.MailboxFilter[mbox.Name] {
			if side == Source {
				counters.SkipFolderByMailbox()
			}
			continue
		}

		if _, err := sess.SelectReadOnly(mbox.Name); err != nil {
			return nil, err
		}

		uids, err := sess.SearchAll()
		if err != nil {
			return nil, err
		}

		if len(uids) == 0 && opts.SkipEmptyFolders {
			counters.SkipFolderEmpty()
			continue
		}

		sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })

		folder := manifest.NewFolder(mbox.Name, mbox.Flags)
		folder.Buffers = manifest.Partition(uids, opts.BufferSize)

		wantEnvelope := side == Source || opts.FetchEnvelope

		for _, buffer := range folder.Buffers {
			messages, done := sess.FetchMetadata(buffer, wantEnvelope)
			for msg := range messages {
				if wantEnvelope {
					folder.RecordEnvelope(msg)
				} else {
					folder.RecordSize(msg)
				}

				if side == Source {
					counters.IncSourceMails()
				} else {
					counters.IncDestinationMails()
				}

				rowsSinceRefresh++
				if opposite != nil && rowsSinceRefresh >= refreshEvery {
					if err := opposite.Refresh(); err != nil {
						return nil, err
					}
					rowsSinceRefresh = 0
				}
			}
			if err := <-done; err != nil {
				return nil, fmt.Errorf("%s: fetch metadata for %q: %w", sess.Label(), mbox.Name, err)
			}
		}

		if folder.NoEnvelope > 0 && side == Source {
			counters.SkipMailNoEnvelope(folder.NoEnvelope)
		}

		folders = append(folders, folder)
	}

	return folders, nil
}

// SortKey is the stable, case-insensitive sort key the transfer driver
// orders folders by (§4.C's ordering rule).
func SortKey(name string) string {
	return strings.ToLower(name)
}
