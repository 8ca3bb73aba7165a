// Package idle keeps one IMAP session parked in IDLE while the other is
// issuing commands, the cooperative two-session discipline described in
// SPEC_FULL.md §4.D/§5. IDLE requires a selected mailbox, so Start selects
// the first folder returned by LIST before entering it.
package idle

import (
	"fmt"
	"time"

	"github.com/emersion/go-imap/client"

	"imapcopy/internal/session"
)

const defaultLogoutTimeout = 29 * time.Minute

// Keeper drives a single session's IDLE lifecycle.
type Keeper struct {
	sess *session.Session
	stop chan struct{}
	done chan error
}

// NewKeeper wraps a session for idle management.
func NewKeeper(sess *session.Session) *Keeper {
	return &Keeper{sess: sess}
}

// Start selects an arbitrary read-only folder and enters IDLE in the
// background. It is a no-op (returns nil) if the server does not support
// IDLE.
func (k *Keeper) Start() error {
	supported, err := k.sess.Support("IDLE")
	if err != nil {
		return fmt.Errorf("%s: check IDLE support: %w", k.sess.Label(), err)
	}
	if !supported {
		return nil
	}

	folders, err := k.sess.ListFolders("")
	if err != nil {
		return fmt.Errorf("%s: list folders for idle select: %w", k.sess.Label(), err)
	}
	if len(folders) == 0 {
		return nil
	}
	if _, err := k.sess.SelectReadOnly(folders[0].Name); err != nil {
		return fmt.Errorf("%s: select folder for idle: %w", k.sess.Label(), err)
	}

	k.stop = make(chan struct{})
	k.done = make(chan error, 1)

	go func() {
		k.done <- k.sess.Idle(k.stop, &client.IdleOptions{
			LogoutTimeout: defaultLogoutTimeout,
		})
	}()
	return nil
}

// Stop ends IDLE and waits for the background goroutine to return.
func (k *Keeper) Stop() error {
	if k.stop == nil {
		return nil
	}
	close(k.stop)
	err := <-k.done
	k.stop, k.done = nil, nil
	if err != nil {
		return fmt.Errorf("%s: idle: %w", k.sess.Label(), err)
	}
	return nil
}

// Refresh stops and restarts IDLE, the keepalive the enumerator invokes
// every N metadata rows (§4.D, §5's idle refresh cadence).
func (k *Keeper) Refresh() error {
	if err := k.Stop(); err != nil {
		return err
	}
	return k.Start()
}
