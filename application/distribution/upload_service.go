package distribution

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"speech-clipper/domain/clip"
	"speech-clipper/domain/distribution"
)

// UploadService pushes extracted clips to a Google Drive folder
type UploadService struct {
	driveClient distribution.DriveClient
	folderID    string
	output      io.Writer
}

// NewUploadService creates a new upload service
func NewUploadService(client distribution.DriveClient, folderID string, output io.Writer) *UploadService {
	if output == nil {
		output = io.Discard
	}
	return &UploadService{
		driveClient: client,
		folderID:    folderID,
		output:      output,
	}
}

// FileFailure records a clip that could not be uploaded
type FileFailure struct {
	Path string
	Err  error
}

// UploadReport summarizes a directory upload
type UploadReport struct {
	Uploaded []distribution.UploadResult
	Replaced int
	Failed   []FileFailure
	Bytes    int64
}

// UploadDirectory uploads every clip in dir. A failing file is reported and
// the remaining files are still attempted, mirroring extraction's per-row isolation.
func (s *UploadService) UploadDirectory(ctx context.Context, dir string) (*UploadReport, error) {
	if s.folderID == "" {
		return nil, fmt.Errorf("no Google Drive folder configured; set google.clips_folder_id")
	}

	paths, total, err := listClips(dir)
	if err != nil {
		return nil, err
	}

	report := &UploadReport{}
	if len(paths) == 0 {
		return report, nil
	}

	quota, err := s.driveClient.GetStorageQuota(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check storage quota: %w", err)
	}
	if !quota.HasSpaceFor(total) {
		return nil, fmt.Errorf("insufficient Google Drive space: need %.1f MB, have %.1f MB",
			float64(total)/1024/1024, float64(quota.AvailableBytes)/1024/1024)
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result, replaced, err := s.uploadOne(ctx, path)
		if err != nil {
			fmt.Fprintf(s.output, "  Failed: %s (%v)\n", filepath.Base(path), err)
			report.Failed = append(report.Failed, FileFailure{Path: path, Err: err})
			continue
		}
		if replaced {
			report.Replaced++
		}
		fmt.Fprintf(s.output, "  Uploaded: %s\n", result.FileName)
		report.Uploaded = append(report.Uploaded, *result)
		report.Bytes += result.Size
	}

	return report, nil
}

// uploadOne replaces any same-named file in the folder, then uploads path
func (s *UploadService) uploadOne(ctx context.Context, path string) (*distribution.UploadResult, bool, error) {
	fileName := filepath.Base(path)

	existing, err := s.driveClient.FindFileByName(ctx, s.folderID, fileName)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check for existing file: %w", err)
	}
	if existing != nil {
		if err := s.driveClient.DeletePermanently(ctx, existing.ID); err != nil {
			return nil, false, fmt.Errorf("failed to delete existing file %s: %w", existing.Name, err)
		}
	}

	result, err := s.driveClient.Upload(ctx, distribution.UploadRequest{
		LocalPath: path,
		FileName:  fileName,
		FolderID:  s.folderID,
		MimeType:  distribution.MimeTypeWAV,
	})
	if err != nil {
		return nil, false, err
	}
	return result, existing != nil, nil
}

// listClips returns the clip files in dir sorted by name, and their total size
func listClips(dir string) ([]string, int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read clip directory: %w", err)
	}

	var paths []string
	var total int64
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), clip.AudioExtension) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
		total += info.Size()
	}
	sort.Strings(paths)
	return paths, total, nil
}
