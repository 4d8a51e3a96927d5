package ingest

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// QpdfDecryptor shells out to qpdf to strip password protection from
// statement PDFs. qpdf exit code 3 means warnings only, which is fine for
// our purposes.
type QpdfDecryptor struct{}

func NewQpdfDecryptor() *QpdfDecryptor {
	return &QpdfDecryptor{}
}

func (d *QpdfDecryptor) Decrypt(ctx context.Context, encryptedPath, password string) (string, error) {
	decryptedPath := encryptedPath + ".decrypted.pdf"

	cmd := exec.CommandContext(ctx, "qpdf",
		"--password="+password,
		"--decrypt",
		encryptedPath,
		decryptedPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 3 {
			return decryptedPath, nil
		}
		return "", &DecryptionError{
			Err: fmt.Errorf("qpdf: %w: %s", err, string(output)),
		}
	}

	return decryptedPath, nil
}
