/*
Package downloader implements the resumable, hash-verified streaming
downloader (C3): HEAD preflight, the five-case resume decision tree,
Range-based resume, periodic progress + sidecar persistence, and
SHA-256 verification on completion.
*/
package downloader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/duckclient/duck-cli/pkg/log"
	"github.com/duckclient/duck-cli/pkg/storage"
	"github.com/duckclient/duck-cli/pkg/types"
)

// Request describes one download attempt.
type Request struct {
	TaskID       int64
	URL          string
	TargetPath   string
	Version      string
	ExpectedSize int64  // 0 if unknown ahead of HEAD
	ExpectedHash string // empty if not required
}

// ProgressFunc receives periodic progress updates during a transfer.
type ProgressFunc func(types.DownloadProgress)

// Downloader streams URLs to target paths with resume and integrity
// verification.
type Downloader struct {
	http *resty.Client

	// ResumeThresholdBytes is the minimum partial-file length below
	// which case 3 of the resume decision tree discards and restarts
	// rather than attempting a resume.
	ResumeThresholdBytes int64

	// ProgressBytesInterval and ProgressInterval bound how often the
	// progress callback and sidecar write fire during a transfer.
	ProgressBytesInterval int64
	ProgressInterval      time.Duration

	// DefaultTimeout and OSSTimeout bound one connection's lifetime;
	// OSSTimeout applies when the URL host matches an OSS-style
	// substring (spec §4.3).
	DefaultTimeout time.Duration
	OSSTimeout     time.Duration
	ossHosts       []string
}

// New builds a Downloader with the spec's default timeouts (30 min
// default, longer for object-store origins) and progress cadence.
func New() *Downloader {
	return &Downloader{
		http:                  resty.New(),
		ResumeThresholdBytes:  1 << 20, // 1 MiB
		ProgressBytesInterval: 4 << 20, // 4 MiB
		ProgressInterval:      2 * time.Second,
		DefaultTimeout:        30 * time.Minute,
		OSSTimeout:            2 * time.Hour,
		ossHosts:              []string{"oss-", ".s3.", "s3.amazonaws.com", "aliyuncs.com", "oss.aliyuncs.com"},
	}
}

func (d *Downloader) isOSSHost(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, h := range d.ossHosts {
		if strings.Contains(lower, h) {
			return true
		}
	}
	return false
}

func (d *Downloader) timeoutFor(rawURL string) time.Duration {
	if d.isOSSHost(rawURL) {
		return d.OSSTimeout
	}
	return d.DefaultTimeout
}

type preflight struct {
	contentLength   int64
	acceptsRanges   bool
}

func (d *Downloader) headPreflight(ctx context.Context, url string) (preflight, error) {
	resp, err := d.http.R().SetContext(ctx).Head(url)
	if err != nil {
		return preflight{}, storage.Wrap(storage.KindNetwork, "downloader.head", err)
	}
	if resp.IsError() {
		return preflight{}, storage.Wrap(storage.KindHttpStatus, "downloader.head", fmt.Errorf("status %d", resp.StatusCode()))
	}
	var length int64
	if cl := resp.Header().Get("Content-Length"); cl != "" {
		fmt.Sscan(cl, &length)
	}
	ranges := strings.EqualFold(resp.Header().Get("Accept-Ranges"), "bytes")
	return preflight{contentLength: length, acceptsRanges: ranges}, nil
}

// resumeDecision is the outcome of evaluating spec §4.3's five-case
// resume tree against the current on-disk state.
type resumeDecision struct {
	skip        bool  // case 1: existing file already verified, nothing to do
	resumeFrom  int64 // >0: issue Range: bytes=<resumeFrom>-
	discardFile bool  // remove existing file + sidecar before starting fresh
}

func (d *Downloader) decideResume(req Request, expectedSize int64) (resumeDecision, error) {
	info, err := os.Stat(req.TargetPath)
	if err != nil {
		if os.IsNotExist(err) {
			return resumeDecision{}, nil
		}
		return resumeDecision{}, storage.Wrap(storage.KindIo, "downloader.decideResume", err)
	}
	existingLen := info.Size()

	// Case 1: hash supplied and matches -> skip entirely.
	if req.ExpectedHash != "" {
		if sum, err := sha256File(req.TargetPath); err == nil && sum == req.ExpectedHash {
			return resumeDecision{skip: true}, nil
		}
	}

	// Case 2: length >= expected but hash mismatches (or unknown with
	// no hash required) -> discard, start fresh.
	if expectedSize > 0 && existingLen >= expectedSize {
		return resumeDecision{discardFile: true}, nil
	}

	// Case 3: below the configurable resume threshold -> discard.
	if existingLen < d.ResumeThresholdBytes {
		return resumeDecision{discardFile: true}, nil
	}

	// Case 4: sidecar exists and matches the current request -> resume
	// from existing file length (trusted over the sidecar's own field).
	sc, ok, err := loadSidecar(req.TargetPath)
	if err != nil {
		return resumeDecision{}, err
	}
	if ok {
		if sc.URL == req.URL && sc.ExpectedSize == expectedSize && sc.Version == req.Version {
			if sc.ExpectedHash != "" && req.ExpectedHash != "" && sc.ExpectedHash != req.ExpectedHash {
				return resumeDecision{discardFile: true}, nil
			}
			return resumeDecision{resumeFrom: existingLen}, nil
		}
	}

	// Case 5: no (matching) sidecar, partial file present.
	if req.ExpectedHash != "" && expectedSize > 0 {
		progress := float64(existingLen) / float64(expectedSize)
		if progress < 0.5 {
			return resumeDecision{discardFile: true}, nil
		}
	}
	return resumeDecision{resumeFrom: existingLen}, nil
}

// Download executes one full download attempt for req, invoking
// onProgress as the transfer advances. onProgress may be nil.
func (d *Downloader) Download(ctx context.Context, req Request, onProgress ProgressFunc) error {
	fileName := filepath.Base(req.TargetPath)
	report := func(status types.DownloadProgressStatus, downloaded, total int64, speed float64) {
		if onProgress == nil {
			return
		}
		var pct float64
		var eta time.Duration
		if total > 0 {
			pct = float64(downloaded) / float64(total) * 100
			if speed > 0 {
				remaining := float64(total - downloaded)
				eta = time.Duration(remaining/speed) * time.Second
			}
		}
		onProgress(types.DownloadProgress{
			TaskID: req.TaskID, FileName: fileName, Downloaded: downloaded, Total: total,
			SpeedBps: speed, ETA: eta, Percentage: pct, Status: status,
		})
	}

	report(types.ProgressStarting, 0, req.ExpectedSize, 0)

	pf, err := d.headPreflight(ctx, req.URL)
	if err != nil {
		report(types.ProgressFailed, 0, req.ExpectedSize, 0)
		return err
	}
	expectedSize := req.ExpectedSize
	if expectedSize == 0 {
		expectedSize = pf.contentLength
	}

	decision, err := d.decideResume(req, expectedSize)
	if err != nil {
		report(types.ProgressFailed, 0, expectedSize, 0)
		return err
	}

	if decision.skip {
		if err := deleteSidecar(req.TargetPath); err != nil {
			return err
		}
		report(types.ProgressCompleted, expectedSize, expectedSize, 0)
		return nil
	}

	if decision.discardFile {
		_ = os.Remove(req.TargetPath)
		_ = deleteSidecar(req.TargetPath)
		decision.resumeFrom = 0
	}

	resuming := decision.resumeFrom > 0
	if resuming && !pf.acceptsRanges {
		// server does not support ranges after all; restart from scratch.
		_ = os.Remove(req.TargetPath)
		_ = deleteSidecar(req.TargetPath)
		resuming = false
		decision.resumeFrom = 0
	}

	if err := d.transfer(ctx, req, expectedSize, resuming, decision.resumeFrom, report); err != nil {
		report(types.ProgressFailed, decision.resumeFrom, expectedSize, 0)
		return err
	}

	if req.ExpectedHash != "" {
		sum, err := sha256File(req.TargetPath)
		if err != nil {
			return storage.Wrap(storage.KindIo, "downloader.verify", err)
		}
		if sum != req.ExpectedHash {
			log.WithComponent("downloader").Warn().Str("file", req.TargetPath).Str("got", sum).Str("want", req.ExpectedHash).Msg("hash mismatch, keeping file for diagnostics")
			_ = saveSidecar(req.TargetPath, types.DownloadSidecar{
				URL: req.URL, ExpectedSize: expectedSize, ExpectedHash: req.ExpectedHash,
				DownloadedBytes: expectedSize, Version: req.Version, StartTime: time.Now(),
			})
			report(types.ProgressFailed, expectedSize, expectedSize, 0)
			return storage.Wrap(storage.KindHashMismatch, "downloader.verify", fmt.Errorf("got %s want %s", sum, req.ExpectedHash))
		}
	}

	if err := deleteSidecar(req.TargetPath); err != nil {
		return err
	}
	report(types.ProgressCompleted, expectedSize, expectedSize, 0)
	return nil
}

func (d *Downloader) transfer(ctx context.Context, req Request, expectedSize int64, resuming bool, resumeFrom int64, report func(types.DownloadProgressStatus, int64, int64, float64)) error {
	tctx, cancel := context.WithTimeout(ctx, d.timeoutFor(req.URL))
	defer cancel()

	r := d.http.R().SetContext(tctx).SetDoNotParseResponse(true)
	if resuming {
		r.SetHeader("Range", fmt.Sprintf("bytes=%d-", resumeFrom))
	}
	resp, err := r.Get(req.URL)
	if err != nil {
		return storage.Wrap(storage.KindNetwork, "downloader.transfer", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resuming {
		if resp.StatusCode() != 206 {
			return storage.Wrap(storage.KindHttpStatus, "downloader.transfer", fmt.Errorf("expected 206 for range resume, got %d", resp.StatusCode()))
		}
	} else if resp.StatusCode() != 200 {
		return storage.Wrap(storage.KindHttpStatus, "downloader.transfer", fmt.Errorf("expected 200, got %d", resp.StatusCode()))
	}

	if err := os.MkdirAll(filepath.Dir(req.TargetPath), 0o755); err != nil {
		return storage.Wrap(storage.KindIo, "downloader.transfer", err)
	}

	flags := os.O_WRONLY | os.O_CREATE
	if resuming {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(req.TargetPath, flags, 0o644)
	if err != nil {
		return storage.Wrap(storage.KindIo, "downloader.transfer", err)
	}
	defer f.Close()

	downloaded := resumeFrom
	lastReportBytes := downloaded
	lastReportTime := time.Now()
	start := time.Now()
	buf := make([]byte, 256*1024)

	for {
		select {
		case <-ctx.Done():
			return storage.Wrap(storage.KindCancelled, "downloader.transfer", ctx.Err())
		default:
		}

		n, rerr := body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return storage.Wrap(storage.KindIo, "downloader.transfer", werr)
			}
			downloaded += int64(n)

			if downloaded-lastReportBytes >= d.ProgressBytesInterval || time.Since(lastReportTime) >= d.ProgressInterval {
				elapsed := time.Since(start).Seconds()
				speed := 0.0
				if elapsed > 0 {
					speed = float64(downloaded-resumeFrom) / elapsed
				}
				status := types.ProgressDownloading
				if resuming {
					status = types.ProgressResuming
				}
				report(status, downloaded, expectedSize, speed)
				_ = saveSidecar(req.TargetPath, types.DownloadSidecar{
					URL: req.URL, ExpectedSize: expectedSize, ExpectedHash: req.ExpectedHash,
					DownloadedBytes: downloaded, Version: req.Version, StartTime: start,
				})
				lastReportBytes = downloaded
				lastReportTime = time.Now()
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return storage.Wrap(storage.KindNetwork, "downloader.transfer", rerr)
		}
	}

	return f.Sync()
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
