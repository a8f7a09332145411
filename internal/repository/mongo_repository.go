package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/arbatrahul/ecommerce-cart-service/internal/domain"
)

var ErrCartNotFound = errors.New("cart not found")

// cartDocument is the persisted shape of a cart. Money fields are stored as
// Decimal128 so the database holds exact values, not floats.
type cartDocument struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty"`
	UserID         string               `bson:"user_id"`
	Items          []cartItemDocument   `bson:"items"`
	TotalAmount    primitive.Decimal128 `bson:"total_amount"`
	TotalItemCount int                  `bson:"total_item_count"`
	CreatedAt      time.Time            `bson:"created_at"`
	UpdatedAt      time.Time            `bson:"updated_at"`
}

type cartItemDocument struct {
	ProductID       int64                `bson:"product_id"`
	ProductName     string               `bson:"product_name"`
	ProductImageRef string               `bson:"product_image_ref"`
	UnitPrice       primitive.Decimal128 `bson:"unit_price"`
	Quantity        int                  `bson:"quantity"`
	LineSubtotal    primitive.Decimal128 `bson:"line_subtotal"`
	AddedAt         time.Time            `bson:"added_at"`
}

type mongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) CartRepository {
	return &mongoRepository{
		collection: db.Collection("carts"),
	}
}

func (m *mongoRepository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	var doc cartDocument

	filter := bson.M{"user_id": userID}
	err := m.collection.FindOne(ctx, filter).Decode(&doc)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return fromDocument(&doc)
}

// UpsertCart writes the full cart document keyed by user_id, inserting it on
// first write. The store-assigned id is copied back onto the cart when the
// write created a new document.
func (m *mongoRepository) UpsertCart(ctx context.Context, cart *domain.Cart) error {
	doc, err := toDocument(cart)
	if err != nil {
		return err
	}

	filter := bson.M{"user_id": cart.UserID}
	opts := options.Replace().SetUpsert(true)

	result, err := m.collection.ReplaceOne(ctx, filter, doc, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}

	if result.UpsertedID != nil {
		if oid, ok := result.UpsertedID.(primitive.ObjectID); ok {
			cart.ID = oid.Hex()
		}
	}

	return nil
}

// EnsureIndexes creates the unique user_id index (one cart per user) and a
// TTL index that expires carts untouched for 90 days.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}

	_, err := db.Collection("carts").Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

func toDocument(cart *domain.Cart) (*cartDocument, error) {
	doc := &cartDocument{
		UserID:         cart.UserID,
		Items:          make([]cartItemDocument, len(cart.Items)),
		TotalItemCount: cart.TotalItemCount,
		CreatedAt:      cart.CreatedAt,
		UpdatedAt:      cart.UpdatedAt,
	}

	if cart.ID != "" {
		oid, err := primitive.ObjectIDFromHex(cart.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid cart id %q: %w", cart.ID, err)
		}
		doc.ID = oid
	}

	total, err := toDecimal128(cart.TotalAmount)
	if err != nil {
		return nil, err
	}
	doc.TotalAmount = total

	for i, item := range cart.Items {
		price, err := toDecimal128(item.UnitPrice)
		if err != nil {
			return nil, err
		}
		subtotal, err := toDecimal128(item.LineSubtotal)
		if err != nil {
			return nil, err
		}
		doc.Items[i] = cartItemDocument{
			ProductID:       item.ProductID,
			ProductName:     item.ProductName,
			ProductImageRef: item.ProductImageRef,
			UnitPrice:       price,
			Quantity:        item.Quantity,
			LineSubtotal:    subtotal,
			AddedAt:         item.AddedAt,
		}
	}

	return doc, nil
}

func fromDocument(doc *cartDocument) (*domain.Cart, error) {
	cart := &domain.Cart{
		ID:             doc.ID.Hex(),
		UserID:         doc.UserID,
		Items:          make([]domain.CartItem, len(doc.Items)),
		TotalItemCount: doc.TotalItemCount,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}

	total, err := fromDecimal128(doc.TotalAmount)
	if err != nil {
		return nil, err
	}
	cart.TotalAmount = total

	for i, item := range doc.Items {
		price, err := fromDecimal128(item.UnitPrice)
		if err != nil {
			return nil, err
		}
		subtotal, err := fromDecimal128(item.LineSubtotal)
		if err != nil {
			return nil, err
		}
		cart.Items[i] = domain.CartItem{
			ProductID:       item.ProductID,
			ProductName:     item.ProductName,
			ProductImageRef: item.ProductImageRef,
			UnitPrice:       price,
			Quantity:        item.Quantity,
			LineSubtotal:    subtotal,
			AddedAt:         item.AddedAt,
		}
	}

	return cart, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	d128, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("failed to convert decimal %q: %w", d.String(), err)
	}
	return d128, nil
}

func fromDecimal128(d primitive.Decimal128) (decimal.Decimal, error) {
	dec, err := decimal.NewFromString(d.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to parse decimal %q: %w", d.String(), err)
	}
	return dec, nil
}
