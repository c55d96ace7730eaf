//go:build windows

package selfupdate

import (
	"fmt"
	"io"
	"os"

	"github.com/duckclient/duck-cli/pkg/storage"
)

// ApplyBinarySwap implements the Windows procedure of spec §4.8: a
// running executable can't be overwritten directly, so rename it to
// ".old", copy the new binary into place, then delete the ".old" file;
// on any failure after the rename, restore the original by renaming
// back.
func ApplyBinarySwap(newBinaryPath, targetExePath string) error {
	oldPath := targetExePath + ".old"

	if err := os.Rename(targetExePath, oldPath); err != nil {
		return storage.Wrap(storage.KindIo, "selfupdate.ApplyBinarySwap", err)
	}

	if err := copyFile(newBinaryPath, targetExePath); err != nil {
		if renameErr := os.Rename(oldPath, targetExePath); renameErr != nil {
			return storage.Wrap(storage.KindIo, "selfupdate.ApplyBinarySwap",
				fmt.Errorf("copy failed (%v) and restore failed (%v)", err, renameErr))
		}
		return storage.Wrap(storage.KindIo, "selfupdate.ApplyBinarySwap", err)
	}

	if err := os.Remove(oldPath); err != nil {
		// new binary is already in place and working; a leftover .old
		// file is cosmetic, not a failure worth surfacing.
		return nil
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
