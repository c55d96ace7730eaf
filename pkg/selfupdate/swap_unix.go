//go:build !windows

package selfupdate

import (
	"io"
	"os"

	"github.com/duckclient/duck-cli/pkg/storage"
)

// ApplyBinarySwap implements the Unix procedure of spec §4.8: copy a
// backup of the running executable, replace it with the downloaded
// binary, then chmod +x.
func ApplyBinarySwap(newBinaryPath, targetExePath string) error {
	backupPath := targetExePath + ".backup"
	if err := copyFile(targetExePath, backupPath); err != nil {
		return storage.Wrap(storage.KindIo, "selfupdate.ApplyBinarySwap", err)
	}

	if err := copyFile(newBinaryPath, targetExePath); err != nil {
		return storage.Wrap(storage.KindIo, "selfupdate.ApplyBinarySwap", err)
	}

	if err := os.Chmod(targetExePath, 0o755); err != nil {
		return storage.Wrap(storage.KindIo, "selfupdate.ApplyBinarySwap", err)
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
