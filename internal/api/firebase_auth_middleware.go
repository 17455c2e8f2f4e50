package api

import (
	"context"
	"errors"
	"time"

	firebase "github.com/isqad/firebase-auth-service/pkg/service"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const firebaseVerifyTimeout = 5 * time.Second

var errEmptyUserID = errors.New("auth service returned empty user id")

// TokenVerifier resolves an X-Auth token to the external user id.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// FirebaseVerifier asks the firebase-auth gRPC service about a token.
type FirebaseVerifier struct {
	Addr string
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, firebaseVerifyTimeout)
	defer cancel()

	conn, err := grpc.DialContext(ctx, v.Addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	authClient := firebase.NewAuthClient(conn)
	t, err := authClient.Verify(ctx, &firebase.Token{Token: token})
	if err != nil {
		return "", err
	}
	if t.GetUserId() == "" {
		return "", errEmptyUserID
	}

	return t.GetUserId(), nil
}
