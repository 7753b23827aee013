package database

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

// ProductFilter narrows ListProducts. Zero values mean no restriction.
type ProductFilter struct {
	CategoryID   string
	Search       string
	ActiveOnly   bool
	FeaturedOnly bool
}

// Catalog stores products, categories, banners and extras.
type Catalog struct {
	db *mongo.Database
}

func NewCatalog(db *mongo.Database) *Catalog {
	return &Catalog{db: db}
}

/* =========================
   PRODUCTS
========================= */

func (s *Catalog) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{}
	if f.ActiveOnly {
		filter["isActive"] = true
	}
	if f.FeaturedOnly {
		filter["isFeatured"] = true
	}
	if id := strings.TrimSpace(f.CategoryID); id != "" {
		filter["categoryId"] = id
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		filter["name"] = bson.M{"$regex": regexp.QuoteMeta(search), "$options": "i"}
	}

	opts := options.Find().SetSort(bson.D{{Key: "isFeatured", Value: -1}, {Key: "name", Value: 1}})
	cursor, err := s.db.Collection(colProducts).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Catalog) GetProduct(ctx context.Context, id string) (models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var p models.Product
	err := s.db.Collection(colProducts).FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		return models.Product{}, notFound(err, "product", id)
	}
	return p, nil
}

func (s *Catalog) CreateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := s.checkGroups(ctx, p.ExtrasGroups); err != nil {
		return models.Product{}, err
	}
	p.ID = newID()
	p.CreatedAt = time.Now()
	p.ExtrasGroups = models.NewIDList(p.ExtrasGroups...)
	if _, err := s.db.Collection(colProducts).InsertOne(ctx, p); err != nil {
		return models.Product{}, err
	}
	return p, nil
}

// UpdateProduct replaces the product, keeping its creation time.
func (s *Catalog) UpdateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := s.checkGroups(ctx, p.ExtrasGroups); err != nil {
		return models.Product{}, err
	}
	p.ExtrasGroups = models.NewIDList(p.ExtrasGroups...)

	var updated models.Product
	err := s.db.Collection(colProducts).FindOneAndUpdate(
		ctx,
		bson.M{"_id": p.ID},
		bson.M{"$set": bson.M{
			"name":           p.Name,
			"description":    p.Description,
			"price":          p.Price,
			"imageUrl":       p.ImageURL,
			"categoryId":     p.CategoryID,
			"extrasGroupIds": p.ExtrasGroups,
			"isActive":       p.IsActive,
			"isFeatured":     p.IsFeatured,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		return models.Product{}, notFound(err, "product", p.ID)
	}
	return updated, nil
}

func (s *Catalog) DeleteProduct(ctx context.Context, id string) (models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var deleted models.Product
	err := s.db.Collection(colProducts).FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&deleted)
	if err != nil {
		return models.Product{}, notFound(err, "product", id)
	}
	return deleted, nil
}

// ProductExtras returns the product's extras groups in the product's order,
// each with all of its options.
func (s *Catalog) ProductExtras(ctx context.Context, p models.Product) ([]models.ExtrasGroup, error) {
	if len(p.ExtrasGroups) == 0 {
		return []models.ExtrasGroup{}, nil
	}
	groups, err := s.listGroups(ctx, bson.M{"_id": bson.M{"$in": []string(p.ExtrasGroups)}})
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.ExtrasGroup, len(groups))
	for _, g := range groups {
		byID[g.ID] = g
	}
	out := make([]models.ExtrasGroup, 0, len(groups))
	for _, id := range p.ExtrasGroups {
		if g, ok := byID[id]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *Catalog) checkGroups(ctx context.Context, ids models.IDList) error {
	if len(ids) == 0 {
		return nil
	}
	n, err := s.db.Collection(colExtrasGroups).CountDocuments(ctx, bson.M{"_id": bson.M{"$in": []string(ids)}})
	if err != nil {
		return err
	}
	if int(n) != len(models.NewIDList(ids...)) {
		return apperr.Validation("extrasGroupIds", "unknown extras group")
	}
	return nil
}

/* =========================
   CATEGORIES
========================= */

func (s *Catalog) ListCategories(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{}
	if activeOnly {
		filter["isActive"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "name", Value: 1}})
	cursor, err := s.db.Collection(colCategories).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	categories := []models.Category{}
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Catalog) CreateCategory(ctx context.Context, c models.Category) (models.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	count, err := s.db.Collection(colCategories).CountDocuments(ctx, bson.M{"name": c.Name})
	if err != nil {
		return models.Category{}, err
	}
	if count > 0 {
		return models.Category{}, apperr.Validation("name", "category already exists")
	}

	c.ID = newID()
	c.CreatedAt = time.Now()
	if _, err := s.db.Collection(colCategories).InsertOne(ctx, c); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Category{}, apperr.Validation("slug", "slug already in use")
		}
		return models.Category{}, err
	}
	return c, nil
}

func (s *Catalog) UpdateCategory(ctx context.Context, c models.Category) (models.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var updated models.Category
	err := s.db.Collection(colCategories).FindOneAndUpdate(
		ctx,
		bson.M{"_id": c.ID},
		bson.M{"$set": bson.M{
			"name":     c.Name,
			"slug":     c.Slug,
			"order":    c.Order,
			"isActive": c.IsActive,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Category{}, apperr.Validation("slug", "slug already in use")
		}
		return models.Category{}, notFound(err, "category", c.ID)
	}
	return updated, nil
}

// DeleteCategory deactivates the category; products keep their reference.
func (s *Catalog) DeleteCategory(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.db.Collection(colCategories).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"isActive": false}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("category", id)
	}
	return nil
}

/* =========================
   BANNERS
========================= */

func (s *Catalog) ListBanners(ctx context.Context, activeOnly bool) ([]models.Banner, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{}
	if activeOnly {
		filter["isActive"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "createdAt", Value: -1}})
	cursor, err := s.db.Collection(colBanners).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	banners := []models.Banner{}
	if err := cursor.All(ctx, &banners); err != nil {
		return nil, err
	}
	return banners, nil
}

func (s *Catalog) CreateBanner(ctx context.Context, b models.Banner) (models.Banner, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	b.ID = newID()
	b.CreatedAt = time.Now()
	if _, err := s.db.Collection(colBanners).InsertOne(ctx, b); err != nil {
		return models.Banner{}, err
	}
	return b, nil
}

func (s *Catalog) UpdateBanner(ctx context.Context, b models.Banner) (models.Banner, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var updated models.Banner
	err := s.db.Collection(colBanners).FindOneAndUpdate(
		ctx,
		bson.M{"_id": b.ID},
		bson.M{"$set": bson.M{
			"title":       b.Title,
			"description": b.Description,
			"imageUrl":    b.ImageURL,
			"isActive":    b.IsActive,
			"order":       b.Order,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		return models.Banner{}, notFound(err, "banner", b.ID)
	}
	return updated, nil
}

func (s *Catalog) DeleteBanner(ctx context.Context, id string) (models.Banner, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var deleted models.Banner
	if err := s.db.Collection(colBanners).FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&deleted); err != nil {
		return models.Banner{}, notFound(err, "banner", id)
	}
	return deleted, nil
}
