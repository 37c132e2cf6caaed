package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/somagouache/gouache/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct {
	genID *snowflake.Node
}

func Provide(genID *snowflake.Node) domain.Repository {
	return &repo{genID: genID}
}

func (r *repo) FindSeller(ctx context.Context, db *gorm.DB, id string) (*domain.Seller, error) {
	var seller domain.Seller
	err := db.WithContext(ctx).Where("id = ?", id).Take(&seller).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &seller, nil
}

func (r *repo) FindItem(ctx context.Context, db *gorm.DB, itemType domain.ItemType, id string) (*domain.Item, error) {
	switch itemType {
	case domain.ItemTypeOriginal, domain.ItemTypePrint:
		var artwork domain.Artwork
		if err := db.WithContext(ctx).Where("id = ?", id).Take(&artwork).Error; err != nil {
			return nil, notFoundAsNil(err)
		}
		item := domain.ItemFromArtwork(artwork)
		return &item, nil
	case domain.ItemTypeCourse:
		var course domain.Course
		if err := db.WithContext(ctx).Where("id = ?", id).Take(&course).Error; err != nil {
			return nil, notFoundAsNil(err)
		}
		item := domain.ItemFromCourse(course)
		return &item, nil
	case domain.ItemTypeBook:
		var book domain.Book
		if err := db.WithContext(ctx).Where("id = ?", id).Take(&book).Error; err != nil {
			return nil, notFoundAsNil(err)
		}
		item := domain.ItemFromBook(book)
		return &item, nil
	default:
		return nil, domain.ErrUnsupportedItem
	}
}

func (r *repo) ApplyEntitlement(ctx context.Context, tx *gorm.DB, e domain.Entitlement) (domain.EntitlementResult, error) {
	if e.ItemID == "" || e.BuyerID == "" || e.PaymentIntentID == "" {
		return domain.EntitlementResult{}, domain.ErrInvalidEntitlement
	}
	at := e.At.UTC()
	if e.At.IsZero() {
		at = time.Now().UTC()
	}

	switch e.ItemType {
	case domain.ItemTypeCourse:
		return r.enroll(ctx, tx, e, at)
	case domain.ItemTypeOriginal:
		return r.markOriginalSold(ctx, tx, e, at)
	case domain.ItemTypePrint:
		return r.sellStocked(ctx, tx, "artworks", e, at)
	case domain.ItemTypeBook:
		return r.sellStocked(ctx, tx, "books", e, at)
	default:
		return domain.EntitlementResult{}, domain.ErrUnsupportedItem
	}
}

func (r *repo) enroll(ctx context.Context, tx *gorm.DB, e domain.Entitlement, at time.Time) (domain.EntitlementResult, error) {
	var exists int64
	if err := tx.WithContext(ctx).Model(&domain.Course{}).Where("id = ?", e.ItemID).Count(&exists).Error; err != nil {
		return domain.EntitlementResult{}, err
	}
	if exists == 0 {
		return domain.EntitlementResult{}, domain.ErrItemNotFound
	}

	res := tx.WithContext(ctx).Exec(
		`INSERT INTO course_enrollments (id, course_id, user_id, payment_intent_id, enrolled_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (course_id, user_id, payment_intent_id) DO NOTHING`,
		r.genID.Generate().Int64(),
		e.ItemID,
		e.BuyerID,
		e.PaymentIntentID,
		at,
	)
	if res.Error != nil {
		return domain.EntitlementResult{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.EntitlementResult{}, nil
	}

	if err := tx.WithContext(ctx).Exec(
		`UPDATE courses SET enrollment_count = enrollment_count + 1, updated_at = ? WHERE id = ?`,
		at,
		e.ItemID,
	).Error; err != nil {
		return domain.EntitlementResult{}, err
	}
	return domain.EntitlementResult{Enrolled: true}, nil
}

// markOriginalSold only stamps an original that is unsold or already stamped by this intent.
func (r *repo) markOriginalSold(ctx context.Context, tx *gorm.DB, e domain.Entitlement, at time.Time) (domain.EntitlementResult, error) {
	res := tx.WithContext(ctx).Exec(
		`UPDATE artworks
		SET sold = ?, sold_at = ?, buyer_id = ?, payment_intent_id = ?, updated_at = ?
		WHERE id = ? AND kind = ? AND (sold = ? OR payment_intent_id = ?)`,
		true,
		at,
		e.BuyerID,
		e.PaymentIntentID,
		at,
		e.ItemID,
		string(domain.ItemTypeOriginal),
		false,
		e.PaymentIntentID,
	)
	if res.Error != nil {
		return domain.EntitlementResult{}, res.Error
	}
	if res.RowsAffected > 0 {
		return domain.EntitlementResult{MarkedSold: true}, nil
	}

	found, err := r.exists(ctx, tx, "artworks", e.ItemID)
	if err != nil {
		return domain.EntitlementResult{}, err
	}
	if !found {
		return domain.EntitlementResult{}, domain.ErrItemNotFound
	}
	return domain.EntitlementResult{Conflict: true}, nil
}

// sellStocked stamps the sale and decrements stock atomically, never below zero.
// Artworks must be prints; an original is only ever sold through markOriginalSold.
func (r *repo) sellStocked(ctx context.Context, tx *gorm.DB, table string, e domain.Entitlement, at time.Time) (domain.EntitlementResult, error) {
	match := "id = ?"
	args := []any{e.ItemID}
	if table == "artworks" {
		match += " AND kind = ?"
		args = append(args, string(domain.ItemTypePrint))
	}

	res := tx.WithContext(ctx).Exec(
		`UPDATE `+table+`
		SET sold = ?, sold_at = ?, buyer_id = ?, payment_intent_id = ?, updated_at = ?
		WHERE `+match,
		append([]any{true, at, e.BuyerID, e.PaymentIntentID, at}, args...)...,
	)
	if res.Error != nil {
		return domain.EntitlementResult{}, res.Error
	}
	if res.RowsAffected == 0 {
		found, err := r.exists(ctx, tx, table, e.ItemID)
		if err != nil {
			return domain.EntitlementResult{}, err
		}
		if !found {
			return domain.EntitlementResult{}, domain.ErrItemNotFound
		}
		return domain.EntitlementResult{Conflict: true}, nil
	}

	dec := tx.WithContext(ctx).Exec(
		`UPDATE `+table+` SET stock = stock - 1 WHERE `+match+` AND stock > 0`,
		args...,
	)
	if dec.Error != nil {
		return domain.EntitlementResult{}, dec.Error
	}
	if dec.RowsAffected == 0 {
		return domain.EntitlementResult{MarkedSold: true, Conflict: true}, nil
	}
	return domain.EntitlementResult{MarkedSold: true, StockDecrement: true}, nil
}

func (r *repo) exists(ctx context.Context, tx *gorm.DB, table, id string) (bool, error) {
	var count int64
	if err := tx.WithContext(ctx).Table(table).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func notFoundAsNil(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
