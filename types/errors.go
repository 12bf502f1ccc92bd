package types

import "fmt"

type DownloadErrorKind string

const (
	// DownloadRestricted covers private, members-only and geo-blocked
	// content reported by the extraction service.
	DownloadRestricted DownloadErrorKind = "restricted"

	// DownloadArtifactMissing means extraction reported success but the
	// expected output file is not on disk.
	DownloadArtifactMissing DownloadErrorKind = "artifact_missing"

	DownloadUnexpected DownloadErrorKind = "unexpected"
)

type DownloadError struct {
	Kind  DownloadErrorKind
	Cause error
}

func (e *DownloadError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("download failed: %s", e.Kind)
	}
	return fmt.Sprintf("download failed (%s): %v", e.Kind, e.Cause)
}

func (e *DownloadError) Unwrap() error {
	return e.Cause
}

func NewDownloadError(kind DownloadErrorKind, cause error) *DownloadError {
	return &DownloadError{Kind: kind, Cause: cause}
}
