package ingest

import (
	"errors"
	"fmt"
)

// ErrAlreadyProcessing is returned when a second ingestion run is requested
// for an upload that is currently being processed.
var ErrAlreadyProcessing = errors.New("upload is already processing")

// IngestionError is the terminal failure of an ingestion run: missing file,
// failed extraction call or malformed extraction response. The upload's
// status is set to failed and the error propagates to the job scheduler,
// which owns any retry policy.
type IngestionError struct {
	Err error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion failed: %v", e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

// DecryptionError reports a wrong password or corrupt file on the bank path.
// It is wrapped into an IngestionError by the ingestion run.
type DecryptionError struct {
	Err error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("decryption failed: %v", e.Err)
}

func (e *DecryptionError) Unwrap() error {
	return e.Err
}
