package auth

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebaseauth "firebase.google.com/go/v4/auth"

	"alltech-shop/internal/models"
)

// FirebaseVerifier checks ID tokens against Firebase Auth.
type FirebaseVerifier struct {
	client *firebaseauth.Client
}

func NewFirebaseVerifier(client *firebaseauth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return token.UID, nil
}

const usersCollection = "users"

// FirestoreProfiles reads provisioning documents from the users
// collection.
type FirestoreProfiles struct {
	client *firestore.Client
}

func NewFirestoreProfiles(client *firestore.Client) *FirestoreProfiles {
	return &FirestoreProfiles{client: client}
}

func (p *FirestoreProfiles) Profile(ctx context.Context, uid string) (models.UserProfile, bool, error) {
	snap, err := p.client.Collection(usersCollection).Doc(uid).Get(ctx)
	// Get returns a snapshot even on NotFound; Exists distinguishes a
	// missing document from a real failure.
	if snap != nil && !snap.Exists() {
		return models.UserProfile{}, false, nil
	}
	if err != nil {
		return models.UserProfile{}, false, fmt.Errorf("auth: read profile %s: %w", uid, err)
	}

	var profile models.UserProfile
	if err := snap.DataTo(&profile); err != nil {
		return models.UserProfile{}, false, fmt.Errorf("auth: decode profile %s: %w", uid, err)
	}
	return profile, true, nil
}

func (p *FirestoreProfiles) TouchLastLogin(ctx context.Context, uid string) error {
	_, err := p.client.Collection(usersCollection).Doc(uid).Update(ctx, []firestore.Update{
		{Path: "lastLogin", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		return fmt.Errorf("auth: touch last login %s: %w", uid, err)
	}
	return nil
}
