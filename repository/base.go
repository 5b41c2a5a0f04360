// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// BaseRepository provides common repository functionality with transaction support
type BaseRepository[T any, F any] struct {
	DB *gorm.DB
}

// NewBaseRepository creates a new base repository instance
func NewBaseRepository[T any, F any](db *gorm.DB) *BaseRepository[T, F] {
	return &BaseRepository[T, F]{
		DB: db,
	}
}

// getDB returns the appropriate database connection (with or without transaction)
func (r *BaseRepository[T, F]) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return r.DB.WithContext(ctx)
}

// getDBForWrite returns database connection with transaction for write operations
func (r *BaseRepository[T, F]) getDBForWrite(ctx context.Context) (*gorm.DB, bool, error) {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx, false, nil // Transaction already exists, don't commit
	}

	tx := r.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	return tx, true, nil
}

// finish commits or rolls back a transaction opened by getDBForWrite
func finish(db *gorm.DB, shouldCommit bool, err error) error {
	if !shouldCommit {
		return err
	}
	if err != nil {
		db.Rollback()
		return err
	}
	if cerr := db.Commit().Error; cerr != nil {
		return fmt.Errorf("failed to commit transaction: %w", cerr)
	}
	return nil
}

// owned scopes a query to rows of one user. Every query on user-owned tables goes through here.
func (r *BaseRepository[T, F]) owned(ctx context.Context, userID uint) *gorm.DB {
	var entity T
	return r.getDB(ctx).Model(&entity).Where("user_id = ?", userID)
}

// ownedByID retrieves an entity by ID only if it belongs to userID; otherwise (nil, nil)
func (r *BaseRepository[T, F]) ownedByID(ctx context.Context, userID, id uint, preloads ...string) (*T, error) {
	db := r.getDB(ctx)
	for _, p := range preloads {
		db = db.Preload(p)
	}

	var entity T
	err := db.Where("id = ? AND user_id = ?", id, userID).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find entity by ID %d: %w", id, err)
	}

	return &entity, nil
}

// updateOwned applies column updates to one owned row and reports whether it matched
func (r *BaseRepository[T, F]) updateOwned(ctx context.Context, userID, id uint, updates map[string]any) (bool, error) {
	if len(updates) == 0 {
		existing, err := r.ownedByID(ctx, userID, id)
		return existing != nil, err
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return false, err
	}

	var entity T
	res := db.Model(&entity).Where("id = ? AND user_id = ?", id, userID).Updates(updates)
	if res.Error != nil {
		return false, finish(db, shouldCommit, fmt.Errorf("failed to update entity %d: %w", id, res.Error))
	}
	return res.RowsAffected > 0, finish(db, shouldCommit, nil)
}

// deleteOwned removes rows by ID that belong to userID and returns how many went
func (r *BaseRepository[T, F]) deleteOwned(ctx context.Context, userID uint, ids ...uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return 0, err
	}

	var entity T
	res := db.Where("user_id = ? AND id IN ?", userID, ids).Delete(&entity)
	if res.Error != nil {
		return 0, finish(db, shouldCommit, fmt.Errorf("failed to delete entities: %w", res.Error))
	}
	return res.RowsAffected, finish(db, shouldCommit, nil)
}

// Save inserts a new entity
func (r *BaseRepository[T, F]) Save(ctx context.Context, entity *T) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if err := db.Create(entity).Error; err != nil {
		return finish(db, shouldCommit, fmt.Errorf("failed to save entity: %w", err))
	}
	return finish(db, shouldCommit, nil)
}

// SaveBatch inserts multiple entities in a single transaction
func (r *BaseRepository[T, F]) SaveBatch(ctx context.Context, entities []*T) error {
	if len(entities) == 0 {
		return nil
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if err := db.CreateInBatches(entities, 100).Error; err != nil {
		return finish(db, shouldCommit, fmt.Errorf("failed to save batch entities: %w", err))
	}
	return finish(db, shouldCommit, nil)
}

// likePattern builds a lowercase substring pattern with LIKE wildcards escaped
func likePattern(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}

// paginate applies order, limit and offset the same way for every list query
func paginate(query *gorm.DB, orderBy string, limit, offset int) *gorm.DB {
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}

// WithTransaction executes a function within a database transaction
func WithTransaction(ctx context.Context, db *gorm.DB, fn func(context.Context) error) (err error) {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return fn(ctx)
	}

	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			err = fmt.Errorf("panic in transaction: %v", r)
		}
	}()

	ctx = context.WithValue(ctx, TxContextKey, tx)

	if err := fn(ctx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
