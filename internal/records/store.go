package records

import "context"

// Store persists one baby profile and four record collections per owner.
//
// GetProfile returns ErrNotFound when the owner has no profile yet.
// ListRecords returns records in storage order; display ordering is the caller's concern.
// CreateRecord mints the id. UpdateRecord and DeleteRecord return ErrNotFound for unknown ids.
type Store interface {
	GetProfile(ctx context.Context, owner OwnerID) (BabyProfile, error)
	PutProfile(ctx context.Context, owner OwnerID, profile BabyProfile) (BabyProfile, error)
	ListRecords(ctx context.Context, owner OwnerID, kind Kind) ([]Record, error)
	CreateRecord(ctx context.Context, owner OwnerID, record Record) (Record, error)
	UpdateRecord(ctx context.Context, owner OwnerID, record Record) (Record, error)
	DeleteRecord(ctx context.Context, owner OwnerID, kind Kind, id string) error
}

// LoadCollections reads all four collections of owner.
func LoadCollections(ctx context.Context, store Store, owner OwnerID) (Collections, error) {
	var collections Collections
	for _, kind := range Kinds() {
		items, err := store.ListRecords(ctx, owner, kind)
		if err != nil {
			return Collections{}, err
		}
		collections = collections.With(kind, items)
	}
	return collections, nil
}
