package repository

import (
	"context"

	"github.com/mansoorceksport/frontdesk/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// live adds the soft-delete predicate to a filter. Every read in this package
// goes through it, so no query can forget the flag. Rows written before the
// flag existed have no field at all and count as live.
func live(filter bson.M) bson.M {
	if filter == nil {
		filter = bson.M{}
	}
	filter["deleted"] = bson.M{"$ne": true}
	return filter
}

// liveByID builds a filter for one live document.
func liveByID(id string) (bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	return live(bson.M{"_id": oid}), nil
}

// objectIDs converts hex ids, skipping malformed ones.
func objectIDs(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			out = append(out, oid)
		}
	}
	return out
}

// softDelete flags one live document as deleted.
func softDelete(ctx context.Context, coll *mongo.Collection, id string, notFound error) error {
	filter, err := liveByID(id)
	if err != nil {
		return err
	}
	result, err := coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"deleted": true}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return notFound
	}
	return nil
}

// sumField totals a numeric field over live documents matching filter.
func sumField(ctx context.Context, coll *mongo.Collection, filter bson.M, field string) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: live(filter)}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$" + field}}}},
	}
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}
