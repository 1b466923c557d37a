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

type firestorePriceAlertRepository struct {
	client *firestore.Client
}

func NewFirestorePriceAlertRepository(client *firestore.Client) repository.PriceAlertRepository {
	return &firestorePriceAlertRepository{
		client: client,
	}
}

func (r *firestorePriceAlertRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(collectionPriceAlerts)
}

func (r *firestorePriceAlertRepository) list(iter *firestore.DocumentIterator) ([]*entity.PriceAlert, error) {
	defer iter.Stop()
	var alerts []*entity.PriceAlert
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			return alerts, nil
		}
		if err != nil {
			return nil, err
		}
		var doc priceAlertDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, err
		}
		alerts = append(alerts, doc.entity())
	}
}

func (r *firestorePriceAlertRepository) FindActive(ctx context.Context, userID string, listingID uint64) (*entity.PriceAlert, error) {
	alerts, err := r.list(r.collection().
		Where("userId", "==", userID).
		Where("listingId", "==", int64(listingID)).
		Where("isActive", "==", true).
		Limit(1).
		Documents(ctx))
	if err != nil {
		return nil, errors.Internal("Failed to get price alert", err)
	}
	if len(alerts) == 0 {
		return nil, errors.NotFound("Price alert", nil)
	}
	return alerts[0], nil
}

func (r *firestorePriceAlertRepository) Create(ctx context.Context, alert *entity.PriceAlert) error {
	err := runTx(ctx, r.client, func(ctx context.Context, tx *firestore.Transaction) error {
		id, err := allocateID(r.client, tx, collectionPriceAlerts)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		alert.ID = id
		alert.CreatedAt = now
		alert.UpdatedAt = now
		return tx.Create(r.collection().Doc(docID(id)), newPriceAlertDoc(alert))
	})
	if err != nil {
		return errors.Internal("Failed to create price alert", err)
	}
	return nil
}

func (r *firestorePriceAlertRepository) Update(ctx context.Context, alert *entity.PriceAlert) error {
	alert.UpdatedAt = time.Now().UTC()
	if _, err := r.collection().Doc(docID(alert.ID)).Set(ctx, newPriceAlertDoc(alert)); err != nil {
		return errors.Internal("Failed to update price alert", err)
	}
	return nil
}

func (r *firestorePriceAlertRepository) ListByUser(ctx context.Context, userID string) ([]*entity.PriceAlert, error) {
	alerts, err := r.list(r.collection().
		Where("userId", "==", userID).
		OrderBy("createdAt", firestore.Desc).
		Documents(ctx))
	if err != nil {
		return nil, errors.Internal("Failed to list price alerts", err)
	}
	return alerts, nil
}

func (r *firestorePriceAlertRepository) Delete(ctx context.Context, userID string, id uint64) error {
	ref := r.collection().Doc(docID(id))
	err := runTx(ctx, r.client, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return errors.NotFound("Price alert", err)
			}
			return err
		}
		owner, err := snap.DataAt("userId")
		if err != nil || owner != userID {
			return errors.NotFound("Price alert", nil)
		}
		return tx.Delete(ref)
	})
	return wrapOwnedErr(err, "Failed to delete price alert")
}

func (r *firestorePriceAlertRepository) ListPending(ctx context.Context) ([]*entity.PriceAlert, error) {
	alerts, err := r.list(r.collection().
		Where("isActive", "==", true).
		Where("notified", "==", false).
		Documents(ctx))
	if err != nil {
		return nil, errors.Internal("Failed to list pending price alerts", err)
	}
	return alerts, nil
}
