package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	appdist "speech-clipper/application/distribution"
	"speech-clipper/domain/distribution"
	"speech-clipper/infrastructure/drive"

	"github.com/spf13/cobra"
)

var (
	uploadDir      string
	uploadFolderID string
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload extracted clips to Google Drive",
	Long: `Upload every .wav clip in the output directory to a Google Drive folder.

A clip with the same name already in the folder is replaced. A clip that fails
to upload is reported and the remaining clips are still uploaded.

The first run opens a browser for Google authorization and caches the token
in google.token_file.

Example:
  speech-clipper upload
  speech-clipper upload --dir clips --folder 1AbCdEfGhIjK`,
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().StringVar(&uploadDir, "dir", "", "Directory of clips (defaults to paths.output_directory)")
	uploadCmd.Flags().StringVar(&uploadFolderID, "folder", "", "Google Drive folder ID (defaults to google.clips_folder_id)")
}

func runUpload(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	// Create drive client with OAuth
	ctx := cmd.Context()
	client, err := drive.NewClientWithOAuth(ctx, cfg.Google.CredentialsFile, cfg.Google.TokenFile)
	if err != nil {
		return fmt.Errorf("failed to create Google Drive client: %w", err)
	}

	return RunUploadWithDependencies(
		ctx,
		client,
		firstNonEmpty(uploadFolderID, cfg.Google.ClipsFolderID),
		firstNonEmpty(uploadDir, cfg.Paths.OutputDirectory),
		os.Stdout,
	)
}

// RunUploadWithDependencies runs the upload command with injected dependencies (for testing)
func RunUploadWithDependencies(
	ctx context.Context,
	driveClient distribution.DriveClient,
	folderID string,
	dir string,
	output io.Writer,
) error {
	service := appdist.NewUploadService(driveClient, folderID, output)

	fmt.Fprintf(output, "Uploading clips from %s...\n", dir)
	report, err := service.UploadDirectory(ctx, dir)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	fmt.Fprintln(output)
	fmt.Fprintf(output, "Upload complete!\n")
	fmt.Fprintf(output, "  Uploaded: %d (%d replaced)\n", len(report.Uploaded), report.Replaced)
	fmt.Fprintf(output, "  Size: %.2f MB\n", float64(report.Bytes)/1024/1024)
	fmt.Fprintf(output, "  Failed: %d\n", len(report.Failed))
	for _, f := range report.Failed {
		fmt.Fprintf(output, "    %s: %v\n", f.Path, f.Err)
	}
	return nil
}
