package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"user-service/internal/storage"
)

const maxAvatarBytes = 5 << 20

var avatarCmd = &cobra.Command{
	Use:   "avatar <username> <image>",
	Short: "Upload a profile picture",
	Long:  `Uploads an image to the configured bucket and points the account at it.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		if application.Storage == nil {
			return errors.New("object storage is not configured (set USERSVC_STORAGE_BUCKET)")
		}
		ctx := cobraCmd.Context()

		user, err := application.Users.GetByUsername(ctx, args[0])
		if err != nil {
			return err
		}

		path := args[1]
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.Size() > maxAvatarBytes {
			return fmt.Errorf("%s is larger than %d bytes", path, maxAvatarBytes)
		}

		mtype, err := mimetype.DetectFile(path)
		if err != nil {
			return fmt.Errorf("detect type: %w", err)
		}
		if !isImage(mtype) {
			return fmt.Errorf("%s is %s, not an image", path, mtype.String())
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		bar, err := pterm.DefaultProgressbar.WithTotal(int(info.Size())).WithTitle("uploading " + filepath.Base(path)).Start()
		if err != nil {
			return err
		}
		var reported int64
		key := storage.AvatarKey(application.Config.Storage.KeyPrefix, user.ID, path)
		key, err = application.Storage.Upload(ctx, key, f, storage.UploadOptions{
			ContentType: mtype.String(),
			Size:        info.Size(),
			ProgressCallback: func(done, total int64) {
				bar.Add(int(done - reported))
				reported = done
			},
		})
		_, _ = bar.Stop()
		if err != nil {
			return err
		}

		if _, err := application.Users.SetProfilePicture(ctx, user.ID, key); err != nil {
			return err
		}
		pterm.Success.Printfln("%s now uses %s", user.Username, storage.Location(application.Storage.Bucket(), key))
		return nil
	},
}

func isImage(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is("image/png") || m.Is("image/jpeg") || m.Is("image/gif") || m.Is("image/webp") {
			return true
		}
	}
	return false
}
