package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	"carmarket/pkg/errors"
)

type firestoreNotificationRepository struct {
	client *firestore.Client
}

func NewFirestoreNotificationRepository(client *firestore.Client) repository.NotificationRepository {
	return &firestoreNotificationRepository{
		client: client,
	}
}

func (r *firestoreNotificationRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(collectionNotifications)
}

func (r *firestoreNotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	err := runTx(ctx, r.client, func(ctx context.Context, tx *firestore.Transaction) error {
		id, err := allocateID(r.client, tx, collectionNotifications)
		if err != nil {
			return err
		}
		n.ID = id
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now().UTC()
		}
		return tx.Create(r.collection().Doc(docID(id)), newNotificationDoc(n))
	})
	if err != nil {
		return errors.Internal("Failed to create notification", err)
	}
	return nil
}

func (r *firestoreNotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*entity.Notification, error) {
	iter := r.collection().
		Where("userId", "==", userID).
		OrderBy("createdAt", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var list []*entity.Notification
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to list notifications", err)
		}
		var doc notificationDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, errors.Internal("Failed to parse notification data", err)
		}
		list = append(list, doc.entity())
	}
	return list, nil
}

func (r *firestoreNotificationRepository) unreadQuery(userID string) firestore.Query {
	return r.collection().Where("userId", "==", userID).Where("read", "==", false)
}

func (r *firestoreNotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	snaps, err := r.unreadQuery(userID).Documents(ctx).GetAll()
	if err != nil {
		return 0, errors.Internal("Failed to count notifications", err)
	}
	return int64(len(snaps)), nil
}

// ownedRef returns the document for id if it belongs to userID.
func (r *firestoreNotificationRepository) ownedRef(tx *firestore.Transaction, userID string, id uint64) (*firestore.DocumentRef, error) {
	ref := r.collection().Doc(docID(id))
	snap, err := tx.Get(ref)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Notification", err)
		}
		return nil, err
	}
	owner, err := snap.DataAt("userId")
	if err != nil || owner != userID {
		return nil, errors.NotFound("Notification", nil)
	}
	return ref, nil
}

func (r *firestoreNotificationRepository) MarkRead(ctx context.Context, userID string, id uint64) error {
	err := runTx(ctx, r.client, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.ownedRef(tx, userID, id)
		if err != nil {
			return err
		}
		return tx.Update(ref, []firestore.Update{{Path: "read", Value: true}})
	})
	return wrapOwnedErr(err, "Failed to mark notification read")
}

func (r *firestoreNotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	var changed int64
	err := runTx(ctx, r.client, func(ctx context.Context, tx *firestore.Transaction) error {
		snaps, err := tx.Documents(r.unreadQuery(userID)).GetAll()
		if err != nil {
			return err
		}
		changed = int64(len(snaps))
		for _, snap := range snaps {
			if err := tx.Update(snap.Ref, []firestore.Update{{Path: "read", Value: true}}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, errors.Internal("Failed to mark notifications read", err)
	}
	return changed, nil
}

func (r *firestoreNotificationRepository) Delete(ctx context.Context, userID string, id uint64) error {
	err := runTx(ctx, r.client, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.ownedRef(tx, userID, id)
		if err != nil {
			return err
		}
		return tx.Delete(ref)
	})
	return wrapOwnedErr(err, "Failed to delete notification")
}

// wrapOwnedErr passes ownership failures through and wraps everything else.
func wrapOwnedErr(err error, message string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, errors.CodeNotFound) {
		return err
	}
	return errors.Internal(message, err)
}
