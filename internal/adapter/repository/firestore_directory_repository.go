package repository

import (
	"context"

	"cloud.google.com/go/firestore"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	"carmarket/pkg/errors"
)

type firestoreListingRepository struct {
	client *firestore.Client
}

func NewFirestoreListingRepository(client *firestore.Client) repository.ListingRepository {
	return &firestoreListingRepository{
		client: client,
	}
}

func (r *firestoreListingRepository) GetByID(ctx context.Context, id uint64) (*entity.Listing, error) {
	snap, err := r.client.Collection(collectionListings).Doc(docID(id)).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Listing", err)
		}
		return nil, errors.Internal("Failed to get listing", err)
	}
	var doc listingDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, errors.Internal("Failed to parse listing data", err)
	}
	listing := doc.entity()
	listing.ID = id
	return listing, nil
}

func (r *firestoreListingRepository) GetByIDs(ctx context.Context, ids []uint64) (map[uint64]*entity.Listing, error) {
	result := make(map[uint64]*entity.Listing, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	refs := make([]*firestore.DocumentRef, len(ids))
	for i, id := range ids {
		refs[i] = r.client.Collection(collectionListings).Doc(docID(id))
	}
	snaps, err := r.client.GetAll(ctx, refs)
	if err != nil {
		return nil, errors.Internal("Failed to get listings", err)
	}
	for i, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		var doc listingDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, errors.Internal("Failed to parse listing data", err)
		}
		listing := doc.entity()
		listing.ID = ids[i]
		result[ids[i]] = listing
	}
	return result, nil
}

type firestoreUserRepository struct {
	client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) repository.UserRepository {
	return &firestoreUserRepository{
		client: client,
	}
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	snap, err := r.client.Collection(collectionUsers).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("User", err)
		}
		return nil, errors.Internal("Failed to get user", err)
	}
	return userFromSnapshot(snap)
}

func (r *firestoreUserRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*entity.User, error) {
	result := make(map[string]*entity.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	refs := make([]*firestore.DocumentRef, len(ids))
	for i, id := range ids {
		refs[i] = r.client.Collection(collectionUsers).Doc(id)
	}
	snaps, err := r.client.GetAll(ctx, refs)
	if err != nil {
		return nil, errors.Internal("Failed to get users", err)
	}
	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		user, err := userFromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		result[user.ID] = user
	}
	return result, nil
}

// userFromSnapshot accepts both "name" and the account service's "username".
func userFromSnapshot(snap *firestore.DocumentSnapshot) (*entity.User, error) {
	var doc struct {
		Name     string `firestore:"name"`
		Username string `firestore:"username"`
		Email    string `firestore:"email"`
	}
	if err := snap.DataTo(&doc); err != nil {
		return nil, errors.Internal("Failed to parse user data", err)
	}
	name := doc.Name
	if name == "" {
		name = doc.Username
	}
	return &entity.User{ID: snap.Ref.ID, Name: name, Email: doc.Email}, nil
}
