package service

import (
	"fmt"
	"os"
)

// validateArtifact enforces the size bounds on a produced file. Files
// outside the bounds are deleted before the failure is returned so rejected
// artifacts never linger on disk.
func validateArtifact(path string, minSize, maxSize int64) error {
	fi, err := os.Stat(path)
	if err != nil {
		return newFailure(CodeInvalidArtifact, "The audio file was not created successfully.")
	}

	if fi.Size() < minSize {
		os.Remove(path)
		return newFailure(CodeInvalidArtifact, "The generated file is too small to be a valid audio file.")
	}
	if fi.Size() > maxSize {
		os.Remove(path)
		return newFailure(CodeOversizedArtifact,
			fmt.Sprintf("The generated file exceeds the %dMB size limit.", maxSize/(1024*1024)))
	}
	return nil
}
