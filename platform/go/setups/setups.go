package setups

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DevCredentialsPathEnv = "FIREBASE_CONFIG"
	DevProjectEnv         = "GCLOUD_PROJECT"
)

// LoadDotEnv loads the given env files (default ".env") without overriding variables
// already present in the process environment. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// FirebaseCredentialsPath returns the service account file configured through FIREBASE_CONFIG, if any.
func FirebaseCredentialsPath() *string {
	path, found := os.LookupEnv(DevCredentialsPathEnv)
	if !found || strings.TrimSpace(path) == "" {
		return nil
	}
	return &path
}
