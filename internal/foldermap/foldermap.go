// Package foldermap computes the source-to-destination folder name
// mapping: delimiter rewriting, destination-root prefixing, special-use
// flag linking, and user redirections.
package foldermap

import (
	"fmt"
	"strings"

	"imapcopy/internal/config"
	"imapcopy/internal/manifest"
)

// specialUseFlags is the set of IMAP special-use flags that trigger
// automatic linking between a source and destination folder (§3, §4.E.3).
var specialUseFlags = []string{`\Archive`, `\Junk`, `\Drafts`, `\Trash`, `\Sent`}

// Mapper produces destination names for every enumerated source folder.
type Mapper struct {
	sourceDelimiter      string
	destinationDelimiter string
	destinationRoot      string
	rootMerge            bool
	ignoreFolderFlags    bool
	redirections         []config.Redirection

	// destinationByFlag indexes existing destination folders by the
	// special-use flag they carry, built once from the destination
	// enumeration.
	destinationByFlag map[string]string

	// sourceNames is the full set of source folder names, used to
	// validate literal (non-wildcard) redirection rules.
	sourceNames map[string]bool

	usedWildcard map[string]bool
}

// New builds a Mapper. destinationFolders is the destination side's
// enumerated folder list (for special-use flag linking); sourceNames is
// every folder name the source enumerator returned (for redirection
// validation).
func New(sourceDelimiter, destinationDelimiter string, destinationFolders []*manifest.Folder, sourceNames []string, opts config.Options, destinationRoot string, rootMerge bool) *Mapper {
	m := &Mapper{
		sourceDelimiter:      sourceDelimiter,
		destinationDelimiter: destinationDelimiter,
		destinationRoot:      destinationRoot,
		rootMerge:            rootMerge,
		ignoreFolderFlags:    opts.IgnoreFolderFlags,
		redirections:         opts.Redirections,
		destinationByFlag:    make(map[string]string),
		sourceNames:          make(map[string]bool, len(sourceNames)),
		usedWildcard:         make(map[string]bool),
	}

	for _, name := range sourceNames {
		m.sourceNames[name] = true
	}

	if !opts.IgnoreFolderFlags {
		for _, folder := range destinationFolders {
			for _, flag := range specialUseFlags {
				if folder.HasFlag(flag) {
					m.destinationByFlag[flag] = folder.Name
				}
			}
		}
	}

	return m
}

// Map computes the destination folder name for one source folder,
// following §4.E's precedence: redirection > special-use link >
// destination-root-prefixed delimiter rewrite.
func (m *Mapper) Map(source *manifest.Folder) string {
	if dst, ok := m.matchRedirection(source.Name); ok {
		return dst
	}

	if !m.ignoreFolderFlags {
		for _, flag := range specialUseFlags {
			if source.HasFlag(flag) {
				if dst, ok := m.destinationByFlag[flag]; ok {
					return dst
				}
			}
		}
	}

	return m.rewrite(source.Name)
}

// rewrite applies steps 1-2 of §4.E: delimiter substitution, then
// destination-root prefixing.
func (m *Mapper) rewrite(name string) string {
	rewritten := name
	if m.sourceDelimiter != m.destinationDelimiter {
		rewritten = strings.ReplaceAll(name, m.sourceDelimiter, m.destinationDelimiter)
	}

	if m.destinationRoot == "" {
		return rewritten
	}

	prefix := m.destinationRoot + m.destinationDelimiter
	alreadyPrefixed := rewritten == m.destinationRoot || strings.HasPrefix(rewritten, prefix)
	if m.rootMerge && alreadyPrefixed {
		return rewritten
	}
	return prefix + rewritten
}

func (m *Mapper) matchRedirection(name string) (string, bool) {
	for _, r := range m.redirections {
		if strings.HasSuffix(r.Source, "*") {
			prefix := strings.TrimSuffix(r.Source, "*")
			if strings.HasPrefix(name, prefix) {
				m.usedWildcard[r.Source] = true
				return r.Destination, true
			}
			continue
		}
		if r.Source == name {
			return r.Destination, true
		}
	}
	return "", false
}

// Validate checks every redirection rule against the enumerated source
// folders and returns an error enumerating any rule that never resolved
// (a literal SRC absent from the source, or a wildcard that matched
// nothing). The run aborts before transfer when this returns non-nil.
func (m *Mapper) Validate() error {
	var unresolved []string
	for _, r := range m.redirections {
		if strings.HasSuffix(r.Source, "*") {
			if !m.usedWildcard[r.Source] {
				unresolved = append(unresolved, r.Source+":"+r.Destination)
			}
			continue
		}
		if !m.sourceNames[r.Source] {
			unresolved = append(unresolved, r.Source+":"+r.Destination)
		}
	}
	if len(unresolved) > 0 {
		return fmt.Errorf("unresolved redirection rule(s): %s", strings.Join(unresolved, ", "))
	}
	return nil
}
