package stats

import (
	"sync"
	"testing"
	"time"
)

func TestCountersIncrement(t *testing.T) {
	c := New(time.Now())

	c.IncSourceMails()
	c.IncSourceMails()
	c.IncCopiedMails()
	c.SkipMailZeroSize()
	c.SkipFolderEmpty()

	if c.SourceMails != 2 {
		t.Errorf("SourceMails = %d, want 2", c.SourceMails)
	}
	if c.CopiedMails != 1 {
		t.Errorf("CopiedMails = %d, want 1", c.CopiedMails)
	}
	if c.SkippedMails.ZeroSize != 1 {
		t.Errorf("SkippedMails.ZeroSize = %d, want 1", c.SkippedMails.ZeroSize)
	}
	if c.SkippedFolders.Empty != 1 {
		t.Errorf("SkippedFolders.Empty = %d, want 1", c.SkippedFolders.Empty)
	}
}

func TestCountersConcurrentIncrement(t *testing.T) {
	c := New(time.Now())

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncProcessed()
		}()
	}
	wg.Wait()

	if c.Processed != 100 {
		t.Errorf("Processed = %d, want 100", c.Processed)
	}
}

func TestRecordError(t *testing.T) {
	c := New(time.Now())
	c.RecordError(ErrorRecord{Folder: "INBOX", Err: "append failed"})

	if len(c.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(c.Errors))
	}
	if c.Errors[0].Folder != "INBOX" {
		t.Errorf("Errors[0].Folder = %q, want %q", c.Errors[0].Folder, "INBOX")
	}
}

func TestElapsed(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(start)
	later := start.Add(5 * time.Second)

	if got := c.Elapsed(later); got != 5*time.Second {
		t.Errorf("Elapsed() = %v, want %v", got, 5*time.Second)
	}
}
