// Package syncengine implements the Sync Engine: the single-threaded,
// directory-at-a-time comparison and action-selection state machine that
// brings a destination tree into alignment with a source tree, archiving
// anything it overwrites or deletes.
package syncengine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/paulschiretz/kitchensync/pkg/dirlist"
	"github.com/paulschiretz/kitchensync/pkg/fileops"
	"github.com/paulschiretz/kitchensync/pkg/globmatch"
	"github.com/paulschiretz/kitchensync/pkg/kserrors"
	"github.com/paulschiretz/kitchensync/pkg/plog"
	"github.com/paulschiretz/kitchensync/pkg/syncfilter"
)

// Config is the engine's read-only input.
type Config struct {
	SrcRoot             string
	DstRoot             string
	Preview             bool
	ExcludePatterns     []string
	SkipTimestamps      bool
	UseModTime          bool
	Verbosity           int
	AbortTimeoutSeconds int
}

// Action is the decision computed for one source entry. It is never stored;
// it is computed fresh for each comparison.
type Action int

const (
	ActionSkip Action = iota
	ActionCopy
	ActionUpdate
	ActionDelete
	ActionCreateDir
)

// SyncError records a failure on one entry. The traversal continues past
// every SyncError except one at a tree root, which is fatal.
type SyncError struct {
	SourcePath string
	DestPath   string
	Kind       kserrors.Kind
	Action     Action
}

// Stats accumulates counters across one Sync call.
type Stats struct {
	FilesCopied    int64
	FilesUpdated   int64
	FilesDeleted   int64
	DirsCreated    int64
	FilesUnchanged int64
	Errors         int64
}

// Result is returned by Sync: the final counters plus every per-entry error
// collected during traversal, in the order they occurred.
type Result struct {
	Stats        Stats
	Errors       []SyncError
	RunTimestamp string
}

const archiveDirName = fileops.ArchiveDirName

// engine carries the state that exists for exactly one Sync call: the
// config, the compiled filter, the single run timestamp reused by every
// archive this run creates, and the stats/errors accumulated along the way.
// It is never shared across goroutines — the whole traversal is
// single-threaded and cooperative.
type engine struct {
	cfg          Config
	filter       *syncfilter.Filter
	runTimestamp string
	result       Result
}

// Sync walks src_root and mirrors it onto dst_root according to cfg. It
// returns a non-nil error only for a fatal, run-aborting condition
// (RootInaccessible or BadPattern); every other failure is recorded as a
// SyncError in the returned Result and traversal continues.
func Sync(cfg Config) (Result, error) {
	if err := checkRootAccessible(cfg.SrcRoot, "source"); err != nil {
		return Result{}, err
	}
	if !cfg.Preview {
		if err := os.MkdirAll(cfg.DstRoot, 0755); err != nil {
			return Result{}, fmt.Errorf("%w: destination root %s: %v", errRootInaccessible, cfg.DstRoot, err)
		}
	} else if info, err := os.Stat(cfg.DstRoot); err == nil && !info.IsDir() {
		// In preview mode the destination root may legitimately not exist
		// yet; only an existing-but-wrong-type path is fatal.
		return Result{}, fmt.Errorf("%w: destination root %s is not a directory", errRootInaccessible, cfg.DstRoot)
	}

	filter := syncfilter.New(cfg.SrcRoot, cfg.ExcludePatterns)
	if err := filter.ValidatePatterns(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", errBadPattern, err)
	}

	e := &engine{
		cfg:          cfg,
		filter:       filter,
		runTimestamp: fileops.ArchiveTimestamp(time.Now()),
	}
	e.syncDir(cfg.SrcRoot, cfg.DstRoot)
	e.result.RunTimestamp = e.runTimestamp
	return e.result, nil
}

var errRootInaccessible = fmt.Errorf("kitchensync: %s", kserrors.RootInaccessible)
var errBadPattern = fmt.Errorf("kitchensync: %s", kserrors.BadPattern)

func checkRootAccessible(root, label string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("%w: %s root %s: %v", errRootInaccessible, label, root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s root %s is not a directory", errRootInaccessible, label, root)
	}
	return nil
}

// syncDir compares one directory pair and recurses into every non-excluded
// source subdirectory, creating the destination side first when it is
// missing. src and dst are absolute paths.
func (e *engine) syncDir(srcDir, dstDir string) {
	if e.cfg.Verbosity >= 2 {
		plog.Event(fmt.Sprintf("loading directory: %s", e.displayPath(srcDir, e.cfg.SrcRoot)))
	}

	srcEntries, err := dirlist.List(srcDir)
	if err != nil {
		e.fail(srcDir, "", kserrors.Classify(err), ActionSkip, "loading directory")
		return
	}

	if e.cfg.Verbosity >= 2 {
		plog.Event(fmt.Sprintf("loading directory: %s", e.displayPath(dstDir, e.cfg.DstRoot)))
	}

	dstEntries, err := dirlist.List(dstDir)
	if err != nil && !os.IsNotExist(err) {
		e.fail("", dstDir, kserrors.Classify(err), ActionSkip, "loading directory")
		return
	}

	dstByName := make(map[string]dirlist.Entry, len(dstEntries))
	for _, d := range dstEntries {
		if d.Name == archiveDirName {
			continue
		}
		dstByName[d.Name] = d
	}

	srcNames := make(map[string]struct{}, len(srcEntries))
	var subdirs []dirlist.Entry

	// Files in this directory are fully processed before any subdirectory is
	// entered, and subdirectories are then recursed in the same sorted order
	// the lister produced — matching spec.md's "no cross-directory
	// interleaving" guarantee. Collecting subdirs into a second slice here
	// (rather than recursing inline during the first pass) is what enforces
	// that ordering.
	for _, s := range srcEntries {
		if s.Name == archiveDirName {
			continue
		}
		srcAbs := filepath.Join(srcDir, s.Name)
		if e.filter.Matches(srcAbs) {
			continue
		}
		srcNames[s.Name] = struct{}{}

		if s.IsDir {
			subdirs = append(subdirs, s)
			continue
		}

		if e.cfg.SkipTimestamps && globmatch.IsTimestampLike(s.Name) {
			continue
		}

		dstAbs := filepath.Join(dstDir, s.Name)
		d, found := dstByName[s.Name]
		var dPtr *dirlist.Entry
		if found {
			dPtr = &d
		}
		action := decide(s, dPtr, e.cfg.UseModTime)
		e.execute(action, srcAbs, dstAbs, s)
	}

	for _, s := range subdirs {
		e.enterDirectory(srcDir, dstDir, s, dstByName)
	}

	e.deleteDestOnlyEntries(dstDir, srcNames, dstEntries)
}

func (e *engine) enterDirectory(srcDir, dstDir string, s dirlist.Entry, dstByName map[string]dirlist.Entry) {
	srcAbs := filepath.Join(srcDir, s.Name)
	dstAbs := filepath.Join(dstDir, s.Name)

	if _, exists := dstByName[s.Name]; !exists {
		if !e.cfg.Preview {
			if err := os.MkdirAll(dstAbs, 0755); err != nil {
				e.fail(srcAbs, dstAbs, kserrors.Classify(err), ActionCreateDir, "creating directory")
				return
			}
		}
		e.result.Stats.DirsCreated++
	}

	e.syncDir(srcAbs, dstAbs)
}

// decide is the comparison predicate. s is never nil; d may be nil when no
// destination entry shares the name.
func decide(s dirlist.Entry, d *dirlist.Entry, useModTime bool) Action {
	if d == nil {
		return ActionCopy
	}
	if s.Size != d.Size {
		return ActionUpdate
	}
	if useModTime && s.MTime > d.MTime {
		return ActionUpdate
	}
	return ActionSkip
}

func (e *engine) execute(action Action, srcAbs, dstAbs string, s dirlist.Entry) {
	switch action {
	case ActionSkip:
		e.result.Stats.FilesUnchanged++

	case ActionCopy:
		e.logCopy(srcAbs)
		e.performCopy(srcAbs, dstAbs, "", false)

	case ActionUpdate:
		archivedPath, err := fileops.Archive(dstAbs, e.runTimestamp, e.cfg.Preview)
		if err != nil && err != os.ErrNotExist {
			e.fail(srcAbs, dstAbs, kserrors.Classify(err), action, "archiving")
			return
		}
		if err == nil {
			e.logArchive(dstAbs)
		}
		e.logCopy(srcAbs)
		e.performCopy(srcAbs, dstAbs, archivedPath, true)
	}
}

// performCopy runs File Operations Copy and then, for a copy or an update
// alike, verifies the result and rolls back on a size mismatch.
func (e *engine) performCopy(srcAbs, dstAbs, archivedPath string, isUpdate bool) {
	if !e.cfg.Preview {
		if err := fileops.Copy(srcAbs, dstAbs, e.cfg.AbortTimeoutSeconds); err != nil {
			e.fail(srcAbs, dstAbs, kserrors.Classify(err), actionFor(isUpdate), "copying")
			return
		}
		if err := e.verifySize(srcAbs, dstAbs, archivedPath); err != nil {
			e.fail(srcAbs, dstAbs, kserrors.SizeMismatch, actionFor(isUpdate), "verifying size")
			return
		}
	}
	if isUpdate {
		e.result.Stats.FilesUpdated++
	} else {
		e.result.Stats.FilesCopied++
	}
}

func actionFor(isUpdate bool) Action {
	if isUpdate {
		return ActionUpdate
	}
	return ActionCopy
}

// verifySize re-stats the destination after copy and compares size to the
// source's. On mismatch it deletes the bad copy and, if an archive exists
// for this destination, restores it so the destination never ends up
// holding a truncated file.
func (e *engine) verifySize(srcAbs, dstAbs, archivedPath string) error {
	srcInfo, err := os.Stat(srcAbs)
	if err != nil {
		return nil // source vanished after copy; nothing meaningful to verify
	}
	dstInfo, err := os.Stat(dstAbs)
	if err != nil || dstInfo.Size() != srcInfo.Size() {
		_ = os.Remove(dstAbs)
		if archivedPath != "" {
			_ = fileops.Restore(archivedPath, dstAbs, e.cfg.Preview)
		}
		return kserrors.ErrSizeMismatch
	}
	return nil
}

// deleteDestOnlyEntries archives every destination entry whose name does
// not appear among the processed source entries for this directory. Files
// are archived before directories, each group in sorted-name order, mirroring
// the sorted, files-then-dirs ordering the comparison pass above uses.
func (e *engine) deleteDestOnlyEntries(dstDir string, srcNames map[string]struct{}, dstEntries []dirlist.Entry) {
	var fileNames, dirNames []string
	for _, d := range dstEntries {
		if d.Name == archiveDirName {
			continue
		}
		if _, inSrc := srcNames[d.Name]; inSrc {
			continue
		}
		if d.IsDir {
			dirNames = append(dirNames, d.Name)
		} else {
			fileNames = append(fileNames, d.Name)
		}
	}
	sort.Strings(fileNames)
	sort.Strings(dirNames)

	for _, name := range fileNames {
		dstAbs := filepath.Join(dstDir, name)
		_, err := fileops.Archive(dstAbs, e.runTimestamp, e.cfg.Preview)
		if err != nil {
			if err == os.ErrNotExist {
				continue // already gone; the work is done
			}
			e.fail("", dstAbs, kserrors.Classify(err), ActionDelete, "archiving for deletion")
			continue
		}
		e.logArchive(dstAbs)
		e.result.Stats.FilesDeleted++
	}

	for _, name := range dirNames {
		dstAbs := filepath.Join(dstDir, name)
		_, err := fileops.ArchiveDir(dstAbs, e.cfg.DstRoot, e.runTimestamp, e.cfg.Preview)
		if err != nil {
			if err == os.ErrNotExist {
				continue // already gone; the work is done
			}
			e.fail("", dstAbs, kserrors.Classify(err), ActionDelete, "archiving for deletion")
			continue
		}
		e.logArchive(dstAbs)
		e.result.Stats.FilesDeleted++
	}
}

func (e *engine) fail(srcAbs, dstAbs string, kind kserrors.Kind, action Action, op string) {
	e.result.Stats.Errors++
	e.result.Errors = append(e.result.Errors, SyncError{
		SourcePath: srcAbs,
		DestPath:   dstAbs,
		Kind:       kind,
		Action:     action,
	})
	if e.cfg.Verbosity >= 1 {
		absPath := dstAbs
		root := e.cfg.DstRoot
		if absPath == "" {
			absPath = srcAbs
			root = e.cfg.SrcRoot
		}
		displayPath := e.displayPath(absPath, root)
		plog.Event(fmt.Sprintf("error: %s '%s': %s", op, displayPath, kind))
	}
}

func (e *engine) logCopy(srcAbs string) {
	if e.cfg.Verbosity >= 1 {
		plog.Event(fmt.Sprintf("copying %s", e.displayPath(srcAbs, e.cfg.SrcRoot)))
	}
}

func (e *engine) logArchive(dstAbs string) {
	if e.cfg.Verbosity >= 1 {
		plog.Event(fmt.Sprintf("moving to .kitchensync: %s", e.displayPath(dstAbs, e.cfg.DstRoot)))
	}
}

// displayPath renders absPath relative to root for log output. Strings
// produced here are for display only and must never be used for I/O.
func (e *engine) displayPath(absPath, root string) string {
	rel, err := filepath.Rel(root, absPath)
	if err != nil {
		return absPath
	}
	return rel
}
