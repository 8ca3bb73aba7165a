// Package quota inspects the optional IMAP QUOTA capability on both
// endpoints and compares projected usage before any transfer begins.
package quota

import (
	"fmt"

	imapquota "github.com/emersion/go-imap-quota"
	"github.com/emersion/go-imap/client"
)

// Info is one side's root quota, in kilobytes as IMAP reports them.
type Info struct {
	UsageKB uint32
	LimitKB uint32
}

// Inspect reads the root quota for the mailbox "INBOX" (the IMAP QUOTA
// extension is keyed by quota root, not username; INBOX's root is the
// account's root on every server we've seen this tool run against). It
// returns ok=false (no error) when the server does not advertise QUOTA,
// per §4.B's "skipped with a notice" behavior.
func Inspect(c *client.Client) (info Info, ok bool, err error) {
	qc := imapquota.NewClient(c)

	supported, err := qc.SupportQuota()
	if err != nil {
		return Info{}, false, fmt.Errorf("check QUOTA capability: %w", err)
	}
	if !supported {
		return Info{}, false, nil
	}

	roots, err := qc.GetQuotaRoot("INBOX")
	if err != nil {
		return Info{}, false, fmt.Errorf("get quota root: %w", err)
	}

	for _, status := range roots {
		if res, ok := status.Resources["STORAGE"]; ok {
			return Info{UsageKB: res.Usage, LimitKB: res.Limit}, true, nil
		}
	}
	return Info{}, false, nil
}

// Check compares source usage against destination free space, both in
// kilobytes. It returns an error (fatal, before any transfer) when the
// destination cannot hold the projected source usage.
func Check(source, destination Info) error {
	free := int64(destination.LimitKB) - int64(destination.UsageKB)
	if free < int64(source.UsageKB) {
		return fmt.Errorf("insufficient destination quota: free=%dKB, source usage=%dKB", free, source.UsageKB)
	}
	return nil
}
