package database

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

// ListExtrasGroups returns every group with its options.
func (s *Catalog) ListExtrasGroups(ctx context.Context) ([]models.ExtrasGroup, error) {
	return s.listGroups(ctx, bson.M{})
}

func (s *Catalog) GetExtrasGroup(ctx context.Context, id string) (models.ExtrasGroup, error) {
	groups, err := s.listGroups(ctx, bson.M{"_id": id})
	if err != nil {
		return models.ExtrasGroup{}, err
	}
	if len(groups) == 0 {
		return models.ExtrasGroup{}, apperr.NotFound("extras group", id)
	}
	return groups[0], nil
}

func (s *Catalog) listGroups(ctx context.Context, filter bson.M) ([]models.ExtrasGroup, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cursor, err := s.db.Collection(colExtrasGroups).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	groups := []models.ExtrasGroup{}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return groups, nil
	}

	ids := make([]string, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	optCursor, err := s.db.Collection(colExtrasOptions).Find(
		ctx,
		bson.M{"groupId": bson.M{"$in": ids}},
		options.Find().SetSort(bson.D{{Key: "price", Value: 1}, {Key: "name", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer optCursor.Close(ctx)

	var opts []models.ExtrasOption
	if err := optCursor.All(ctx, &opts); err != nil {
		return nil, err
	}
	byGroup := make(map[string][]models.ExtrasOption, len(groups))
	for _, o := range opts {
		byGroup[o.GroupID] = append(byGroup[o.GroupID], o)
	}
	for i := range groups {
		groups[i].Options = byGroup[groups[i].ID]
		if groups[i].Options == nil {
			groups[i].Options = []models.ExtrasOption{}
		}
	}
	return groups, nil
}

func (s *Catalog) CreateExtrasGroup(ctx context.Context, g models.ExtrasGroup) (models.ExtrasGroup, error) {
	if err := g.Validate(); err != nil {
		return models.ExtrasGroup{}, apperr.Validation("extrasGroup", err.Error())
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	g.ID = newID()
	g.Options = []models.ExtrasOption{}
	if _, err := s.db.Collection(colExtrasGroups).InsertOne(ctx, g); err != nil {
		return models.ExtrasGroup{}, err
	}
	return g, nil
}

func (s *Catalog) UpdateExtrasGroup(ctx context.Context, g models.ExtrasGroup) (models.ExtrasGroup, error) {
	if err := g.Validate(); err != nil {
		return models.ExtrasGroup{}, apperr.Validation("extrasGroup", err.Error())
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.db.Collection(colExtrasGroups).UpdateOne(ctx, bson.M{"_id": g.ID}, bson.M{"$set": bson.M{
		"name":       g.Name,
		"required":   g.Required,
		"minOptions": g.MinOptions,
		"maxOptions": g.MaxOptions,
	}})
	if err != nil {
		return models.ExtrasGroup{}, err
	}
	if res.MatchedCount == 0 {
		return models.ExtrasGroup{}, apperr.NotFound("extras group", g.ID)
	}
	return s.GetExtrasGroup(ctx, g.ID)
}

// DeleteExtrasGroup removes the group, its options and every product link to
// it in one transaction.
func (s *Catalog) DeleteExtrasGroup(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return withTx(ctx, s.db, func(sessCtx mongo.SessionContext) error {
		res, err := s.db.Collection(colExtrasGroups).DeleteOne(sessCtx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return apperr.NotFound("extras group", id)
		}
		if _, err := s.db.Collection(colExtrasOptions).DeleteMany(sessCtx, bson.M{"groupId": id}); err != nil {
			return err
		}
		_, err = s.db.Collection(colProducts).UpdateMany(
			sessCtx,
			bson.M{"extrasGroupIds": id},
			bson.M{"$pull": bson.M{"extrasGroupIds": id}},
		)
		return err
	})
}

func (s *Catalog) CreateExtrasOption(ctx context.Context, o models.ExtrasOption) (models.ExtrasOption, error) {
	if err := o.Validate(); err != nil {
		return models.ExtrasOption{}, apperr.Validation("extrasOption", err.Error())
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	n, err := s.db.Collection(colExtrasGroups).CountDocuments(ctx, bson.M{"_id": o.GroupID})
	if err != nil {
		return models.ExtrasOption{}, err
	}
	if n == 0 {
		return models.ExtrasOption{}, apperr.NotFound("extras group", o.GroupID)
	}

	o.ID = newID()
	if _, err := s.db.Collection(colExtrasOptions).InsertOne(ctx, o); err != nil {
		return models.ExtrasOption{}, err
	}
	return o, nil
}

func (s *Catalog) UpdateExtrasOption(ctx context.Context, o models.ExtrasOption) (models.ExtrasOption, error) {
	if err := o.Validate(); err != nil {
		return models.ExtrasOption{}, apperr.Validation("extrasOption", err.Error())
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var updated models.ExtrasOption
	err := s.db.Collection(colExtrasOptions).FindOneAndUpdate(
		ctx,
		bson.M{"_id": o.ID, "groupId": o.GroupID},
		bson.M{"$set": bson.M{
			"name":        o.Name,
			"price":       o.Price,
			"isAvailable": o.IsAvailable,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		return models.ExtrasOption{}, notFound(err, "extras option", o.ID)
	}
	return updated, nil
}

func (s *Catalog) DeleteExtrasOption(ctx context.Context, groupID, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.db.Collection(colExtrasOptions).DeleteOne(ctx, bson.M{"_id": id, "groupId": groupID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("extras option", id)
	}
	return nil
}
