package services

import (
	"context"
	"errors"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

var ErrFirebaseNotConfigured = errors.New("firebase credentials path is empty")

// InitFirebase initializes the Firebase Admin SDK and returns the auth client
// used to verify operator ID tokens.
func InitFirebase(ctx context.Context, credPath string) (*auth.Client, error) {
	if credPath == "" {
		return nil, ErrFirebaseNotConfigured
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credPath))
	if err != nil {
		return nil, err
	}
	return app.Auth(ctx)
}
