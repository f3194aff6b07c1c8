package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/your-org/storefront/internal/infrastructure/persistence"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartDocument is one persisted cart, stored as the raw JSON document
type CartDocument struct {
	Key       string    `gorm:"column:doc_key;primaryKey;size:255"`
	Body      string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName overrides the table name
func (CartDocument) TableName() string {
	return "cart_documents"
}

// DocumentStore keeps cart documents in PostgreSQL
type DocumentStore struct {
	db *gorm.DB
}

// compile-time assertion
var _ persistence.KV = (*DocumentStore)(nil)

// NewDocumentStore creates a new document store
func NewDocumentStore(db *gorm.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Get returns the document stored under key
func (s *DocumentStore) Get(ctx context.Context, key string) ([]byte, error) {
	var doc CartDocument
	err := s.db.WithContext(ctx).Where("doc_key = ?", key).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart document: %w", err)
	}
	return []byte(doc.Body), nil
}

// Set upserts the document under key
func (s *DocumentStore) Set(ctx context.Context, key string, value []byte) error {
	doc := CartDocument{
		Key:       key,
		Body:      string(value),
		UpdatedAt: time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "doc_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"body", "updated_at"}),
	}).Create(&doc).Error
	if err != nil {
		return fmt.Errorf("failed to store cart document: %w", err)
	}
	return nil
}
