// Package archivecompact implements an optional, CLI-invoked post-run step
// that tars and gzip-compresses one run's archive directory in place. It is
// never called by the Sync Engine itself; it only ever touches a run's
// .kitchensync/<timestamp>/ directory after syncengine.Sync has returned.
package archivecompact

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/pgzip"

	"github.com/paulschiretz/kitchensync/pkg/plog"
)

// Compact tars and gzip-compresses runDir (a single run's
// .kitchensync/<timestamp>/ directory) into runDir+".tar.gz", then removes
// runDir on success. It is a no-op if runDir does not exist, since a run
// that produced no archived files never creates the directory.
func Compact(runDir string) error {
	info, err := os.Stat(runDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("archivecompact: %s is not a directory", runDir)
	}

	archivePath := runDir + ".tar.gz"
	out, err := os.Create(archivePath)
	if err != nil {
		return err
	}

	gz := pgzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	walkErr := filepath.Walk(runDir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(runDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		return addToTar(tw, path, rel, fi)
	})

	closeErr := closeAll(tw, gz, out)
	if walkErr != nil {
		os.Remove(archivePath)
		return walkErr
	}
	if closeErr != nil {
		os.Remove(archivePath)
		return closeErr
	}

	if err := os.RemoveAll(runDir); err != nil {
		return err
	}
	plog.Event(fmt.Sprintf("compacted archive: %s", archivePath))
	return nil
}

func addToTar(tw *tar.Writer, absPath, relPath string, fi os.FileInfo) error {
	if fi.IsDir() {
		hdr, err := tar.FileInfoHeader(fi, "")
		if err != nil {
			return err
		}
		hdr.Name = relPath + "/"
		return tw.WriteHeader(hdr)
	}

	hdr, err := tar.FileInfoHeader(fi, "")
	if err != nil {
		return err
	}
	hdr.Name = relPath
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}

	f, err := os.Open(absPath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(tw, f)
	return err
}

func closeAll(tw *tar.Writer, gz *pgzip.Writer, out *os.File) error {
	if err := tw.Close(); err != nil {
		out.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
