// Package commands wires the replication engine's components together
// behind a single CLI action.
package commands

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/urfave/cli/v2"

	"imapcopy/internal/config"
	"imapcopy/internal/enumerate"
	"imapcopy/internal/foldermap"
	"imapcopy/internal/idle"
	"imapcopy/internal/manifest"
	"imapcopy/internal/quota"
	"imapcopy/internal/report"
	"imapcopy/internal/session"
	"imapcopy/internal/stats"
	"imapcopy/internal/stdout"
	"imapcopy/internal/transfer"
	"imapcopy/internal/utils"
)

// Replicate is the single entry point: connect both sides, check quota,
// enumerate, map folders, transfer, and report.
func Replicate(c *cli.Context) error {
	cfg, err := config.New(c)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	spin := stdout.New(c.Bool("quiet"), c.Bool("verbose"))
	defer spin.Stop()

	spin.Update(fmt.Sprintf("[source] connecting to %s:%d (%s)", cfg.Source.Host, cfg.Source.Port, cfg.Source.Encryption))
	src, err := session.Dial("source", cfg.Source)
	if err != nil {
		spin.Error(err.Error())
		return err
	}
	defer func() {
		if err := src.Logout(); err != nil {
			fmt.Fprintf(os.Stderr, "[source] logout: %v\n", err)
		}
	}()
	if err := src.Login(); err != nil {
		spin.Error(err.Error())
		return err
	}

	spin.Update(fmt.Sprintf("[destination] connecting to %s:%d (%s)", cfg.Destination.Host, cfg.Destination.Port, cfg.Destination.Encryption))
	dst, err := session.Dial("destination", cfg.Destination)
	if err != nil {
		spin.Error(err.Error())
		return err
	}
	defer func() {
		if err := dst.Logout(); err != nil {
			fmt.Fprintf(os.Stderr, "[destination] logout: %v\n", err)
		}
	}()
	if err := dst.Login(); err != nil {
		spin.Error(err.Error())
		return err
	}

	if src.Unencrypted() {
		spin.Print("[source] connection is unencrypted")
	}
	if dst.Unencrypted() {
		spin.Print("[destination] connection is unencrypted")
	}
	if (src.Unencrypted() || dst.Unencrypted()) && !c.Bool("yes") {
		spin.Stop()
		confirmed, err := utils.AskConfirm(context.Background(), "Proceed over an unencrypted connection?")
		if err != nil {
			return err
		}
		if !confirmed {
			return fmt.Errorf("aborted: unencrypted connection not confirmed")
		}
		spin.Restart()
	}

	if cfg.Options.ListOnly {
		return listFolders(spin, src, dst, cfg)
	}

	if !cfg.Options.IgnoreQuota {
		if err := checkQuota(spin, src, dst); err != nil {
			spin.Error(err.Error())
			return err
		}
	}

	counters := stats.New(now())

	srcIdle := idle.NewKeeper(dst)
	dstIdle := idle.NewKeeper(src)

	var mailboxFilter map[string]bool
	if len(cfg.Source.Mailboxes) > 0 {
		mailboxFilter = make(map[string]bool, len(cfg.Source.Mailboxes))
		for _, m := range cfg.Source.Mailboxes {
			mailboxFilter[m] = true
		}
	}

	spin.Update("[source] enumerating folders")
	if err := srcIdle.Start(); err != nil {
		return err
	}
	sourceFolders, err := enumerate.Enumerate(src, srcIdle, enumerate.Source, enumerate.Options{
		Root:             cfg.Source.Root,
		BufferSize:       cfg.Options.BufferSize,
		SkipEmptyFolders: cfg.Options.SkipEmptyFolders,
		MailboxFilter:    mailboxFilter,
		IdleRefreshEvery: cfg.Options.IdleRefreshEvery,
	}, counters)
	if stopErr := srcIdle.Stop(); stopErr != nil && err == nil {
		err = stopErr
	}
	if err != nil {
		spin.Error(err.Error())
		return err
	}

	spin.Update("[destination] enumerating folders")
	if err := dstIdle.Start(); err != nil {
		return err
	}
	destinationFolders, err := enumerate.Enumerate(dst, dstIdle, enumerate.Destination, enumerate.Options{
		Root:             cfg.Destination.Root,
		BufferSize:       cfg.Options.BufferSize,
		FetchEnvelope:    cfg.Options.Incremental,
		IdleRefreshEvery: cfg.Options.IdleRefreshEvery,
	}, counters)
	if stopErr := dstIdle.Stop(); stopErr != nil && err == nil {
		err = stopErr
	}
	if err != nil {
		spin.Error(err.Error())
		return err
	}

	sourceDelimiter, err := src.Delimiter()
	if err != nil {
		return err
	}
	destinationDelimiter, err := dst.Delimiter()
	if err != nil {
		return err
	}

	sourceNames := make([]string, len(sourceFolders))
	for i, f := range sourceFolders {
		sourceNames[i] = f.Name
	}

	mapper := foldermap.New(sourceDelimiter, destinationDelimiter, destinationFolders, sourceNames, cfg.Options, cfg.Destination.Root, cfg.Destination.RootMerge)

	destByName := make(map[string]*manifest.Folder, len(destinationFolders))
	for _, f := range destinationFolders {
		destByName[f.Name] = f
	}

	sort.Slice(sourceFolders, func(i, j int) bool {
		return enumerate.SortKey(sourceFolders[i].Name) < enumerate.SortKey(sourceFolders[j].Name)
	})

	// Pre-resolve every mapping so wildcard redirections are marked used
	// before validation runs (§4.E.4: abort before transfer on an
	// unresolved rule).
	mapped := make(map[string]string, len(sourceFolders))
	for _, f := range sourceFolders {
		mapped[f.Name] = mapper.Map(f)
	}
	if err := mapper.Validate(); err != nil {
		spin.Error(err.Error())
		return err
	}

	driver := &transfer.Driver{
		Source:             src,
		Destination:        dst,
		Mapper:             mapper,
		Options:            cfg.Options,
		NoSubscribe:        cfg.Destination.NoSubscribe,
		Counters:           counters,
		DestinationFolders: destByName,
	}

	for _, folder := range sourceFolders {
		spin.Update(fmt.Sprintf("[transfer] %s -> %s", folder.Name, mapped[folder.Name]))
		if err := driver.TransferFolder(folder); err != nil {
			spin.Error(err.Error())
			if cfg.Options.AbortOnError {
				break
			}
		}
	}

	spin.Stop()
	report.Print(os.Stdout, counters, now(), cfg.Options.NoColors)
	return nil
}

// now returns the wall-clock time used for the run's start and for the
// elapsed time in the final report.
func now() time.Time { return time.Now() }

// checkQuota implements the fatal-before-transfer quota gate (§4.B, §8 S6).
func checkQuota(spin *stdout.Spinner, src, dst *session.Session) error {
	spin.Update("[quota] checking source and destination")

	sourceInfo, sourceOK, err := quota.Inspect(src.Client)
	if err != nil {
		return err
	}
	destInfo, destOK, err := quota.Inspect(dst.Client)
	if err != nil {
		return err
	}
	if !sourceOK || !destOK {
		spin.Print("[quota] QUOTA not advertised on one or both sides, skipping check")
		return nil
	}
	return quota.Check(sourceInfo, destInfo)
}

// listFolders implements --list: print both sides' folder names and exit
// before any quota check or transfer.
func listFolders(spin *stdout.Spinner, src, dst *session.Session, cfg *config.Config) error {
	spin.Update("[source] listing folders")
	sourceFolders, err := src.ListFolders(cfg.Source.Root)
	if err != nil {
		return err
	}
	spin.Update("[destination] listing folders")
	destinationFolders, err := dst.ListFolders(cfg.Destination.Root)
	if err != nil {
		return err
	}
	spin.Stop()

	fmt.Println("source:")
	for _, f := range sourceFolders {
		fmt.Printf("  %s\n", f.Name)
	}
	fmt.Println("destination:")
	for _, f := range destinationFolders {
		fmt.Printf("  %s\n", f.Name)
	}
	return nil
}
