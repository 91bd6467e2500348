package user

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Record is the slice of the user document the session layer cares
// about. IsDeleted gates delivery: soft-deleted accounts still exist in
// the collection but must not receive messages.
type Record struct {
	ID        int64  `bson:"_id" json:"id"`
	Username  string `bson:"username" json:"username"`
	IsDeleted bool   `bson:"isDeleted" json:"isDeleted"`
}

// Directory looks users up by ID (the getUser collaborator).
type Directory struct {
	col *mongo.Collection
}

func NewDirectory(db *mongo.Database) *Directory {
	return &Directory{col: db.Collection("users")}
}

// GetUser returns (nil, nil) when the user does not exist.
func (d *Directory) GetUser(ctx context.Context, id int64) (*Record, error) {
	var rec Record
	err := d.col.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find user")
	}
	return &rec, nil
}
