// Package gcp connects to the Firebase project that issues landlord ID tokens.
package gcp

import (
	"context"
	"fmt"
	"os"
	"strings"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/zenGate-Global/rentboard/platform/go/setups"
)

// FirebaseOptions selects credentials and project. An empty CredentialsFile uses application
// default credentials; an empty ProjectID lets the SDK infer it.
type FirebaseOptions struct {
	CredentialsFile string
	ProjectID       string
}

// FirebaseOptionsFromEnv reads FIREBASE_CONFIG and GCLOUD_PROJECT.
func FirebaseOptionsFromEnv() FirebaseOptions {
	var opts FirebaseOptions
	if path := setups.FirebaseCredentialsPath(); path != nil {
		opts.CredentialsFile = *path
	}
	opts.ProjectID = strings.TrimSpace(os.Getenv(setups.DevProjectEnv))
	return opts
}

// NewAuthClient returns the client that verifies dashboard ID tokens.
func NewAuthClient(ctx context.Context, opts FirebaseOptions) (*firebaseauth.Client, error) {
	var cfg *firebase.Config
	if opts.ProjectID != "" {
		cfg = &firebase.Config{ProjectID: opts.ProjectID}
	}

	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, cfg, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return client, nil
}
