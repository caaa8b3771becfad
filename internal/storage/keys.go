package storage

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

const avatarDir = "avatars"

// UserPrefix is the key prefix holding every object owned by a user.
func UserPrefix(keyPrefix string, userID int64) string {
	return joinKey(keyPrefix, avatarDir, fmt.Sprintf("%d", userID)) + "/"
}

// AvatarKey builds a fresh object key for a user's profile picture. The
// extension of filename is kept so browsers can sniff the type.
func AvatarKey(keyPrefix string, userID int64, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, "\\", "/"))))
	if len(ext) > 8 {
		ext = ""
	}
	return UserPrefix(keyPrefix, userID) + uuid.NewString() + ext
}

// IsExternalURL reports whether ref already points at a web location.
func IsExternalURL(ref string) bool {
	lower := strings.ToLower(strings.TrimSpace(ref))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// ObjectKey resolves a stored profile picture reference to a key in bucket.
// It accepts bare keys and s3://bucket/key locations; web URLs and
// locations in other buckets are not ours to sign.
func ObjectKey(ref, bucket string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || IsExternalURL(ref) {
		return "", false
	}

	if rest, ok := strings.CutPrefix(ref, "s3://"); ok {
		refBucket, key, found := strings.Cut(rest, "/")
		if !found || refBucket != bucket {
			return "", false
		}
		ref = key
	}

	key := strings.TrimLeft(ref, "/")
	if key == "" || strings.HasSuffix(key, "/") {
		return "", false
	}
	return key, true
}

// Location renders key as an s3:// reference.
func Location(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, strings.TrimLeft(key, "/"))
}

func joinKey(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "/")
}
