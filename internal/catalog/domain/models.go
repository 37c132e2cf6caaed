package domain

import (
	"strings"
	"time"
)

// ItemType discriminates the purchasable catalogue entries.
type ItemType string

const (
	ItemTypeOriginal ItemType = "original"
	ItemTypePrint    ItemType = "print"
	ItemTypeBook     ItemType = "book"
	ItemTypeCourse   ItemType = "course"
)

// ParseItemType normalizes a raw item type; ok is false for unknown values.
func ParseItemType(raw string) (ItemType, bool) {
	switch ItemType(strings.ToLower(strings.TrimSpace(raw))) {
	case ItemTypeOriginal:
		return ItemTypeOriginal, true
	case ItemTypePrint:
		return ItemTypePrint, true
	case ItemTypeBook:
		return ItemTypeBook, true
	case ItemTypeCourse:
		return ItemTypeCourse, true
	default:
		return "", false
	}
}

// Stocked reports whether the type carries a finite stock counter.
func (t ItemType) Stocked() bool {
	return t == ItemTypePrint || t == ItemTypeBook
}

const OnboardingStatusComplete = "complete"

type Seller struct {
	ID                     string    `json:"id" gorm:"primaryKey;type:text"`
	DisplayName            string    `json:"display_name" gorm:"type:text"`
	Email                  string    `json:"email" gorm:"type:text"`
	StripeAccountID        string    `json:"stripe_account_id" gorm:"type:text"`
	StripeOnboardingStatus string    `json:"stripe_onboarding_status" gorm:"type:text"`
	ChargesEnabled         bool      `json:"charges_enabled"`
	PayoutsEnabled         bool      `json:"payouts_enabled"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func (Seller) TableName() string { return "sellers" }

// PayoutReady reports whether funds can be split to the seller's connected account.
func (s Seller) PayoutReady() bool {
	return strings.TrimSpace(s.StripeAccountID) != "" &&
		s.StripeOnboardingStatus == OnboardingStatusComplete &&
		s.ChargesEnabled &&
		s.PayoutsEnabled
}

// Artwork covers both one-off originals and stocked prints.
type Artwork struct {
	ID              string     `json:"id" gorm:"primaryKey;type:text"`
	ArtistID        string     `json:"artist_id" gorm:"type:text;not null;index"`
	Title           string     `json:"title" gorm:"type:text"`
	Kind            ItemType   `json:"kind" gorm:"type:text;not null"`
	Price           int64      `json:"price"`
	Currency        string     `json:"currency" gorm:"type:text"`
	Stock           int64      `json:"stock"`
	Sold            bool       `json:"sold"`
	SoldAt          *time.Time `json:"sold_at"`
	BuyerID         *string    `json:"buyer_id"`
	PaymentIntentID *string    `json:"payment_intent_id"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (Artwork) TableName() string { return "artworks" }

type Course struct {
	ID              string    `json:"id" gorm:"primaryKey;type:text"`
	InstructorID    string    `json:"instructor_id" gorm:"type:text;not null;index"`
	Title           string    `json:"title" gorm:"type:text"`
	Price           int64     `json:"price"`
	Currency        string    `json:"currency" gorm:"type:text"`
	IsActive        bool      `json:"is_active"`
	EnrollmentCount int64     `json:"enrollment_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Course) TableName() string { return "courses" }

type CourseEnrollment struct {
	ID              int64     `json:"id" gorm:"primaryKey"`
	CourseID        string    `json:"course_id" gorm:"type:text;not null;uniqueIndex:ux_course_enrollments_purchase,priority:1"`
	UserID          string    `json:"user_id" gorm:"type:text;not null;uniqueIndex:ux_course_enrollments_purchase,priority:2"`
	PaymentIntentID string    `json:"payment_intent_id" gorm:"type:text;not null;uniqueIndex:ux_course_enrollments_purchase,priority:3"`
	EnrolledAt      time.Time `json:"enrolled_at"`
}

func (CourseEnrollment) TableName() string { return "course_enrollments" }

type Book struct {
	ID              string     `json:"id" gorm:"primaryKey;type:text"`
	AuthorID        string     `json:"author_id" gorm:"type:text;not null;index"`
	Title           string     `json:"title" gorm:"type:text"`
	Price           int64      `json:"price"`
	Currency        string     `json:"currency" gorm:"type:text"`
	Available       bool       `json:"available"`
	Stock           int64      `json:"stock"`
	Sold            bool       `json:"sold"`
	SoldAt          *time.Time `json:"sold_at"`
	BuyerID         *string    `json:"buyer_id"`
	PaymentIntentID *string    `json:"payment_intent_id"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (Book) TableName() string { return "books" }

// Item is the type-independent view the checkout flow needs.
type Item struct {
	ID          string
	Type        ItemType
	OwnerID     string
	Title       string
	Stock       int64
	Purchasable bool
}

func ItemFromArtwork(a Artwork) Item {
	purchasable := !a.Sold
	if a.Kind == ItemTypePrint {
		purchasable = a.Stock > 0
	}
	return Item{
		ID:          a.ID,
		Type:        a.Kind,
		OwnerID:     a.ArtistID,
		Title:       a.Title,
		Stock:       a.Stock,
		Purchasable: purchasable,
	}
}

func ItemFromCourse(c Course) Item {
	return Item{
		ID:          c.ID,
		Type:        ItemTypeCourse,
		OwnerID:     c.InstructorID,
		Title:       c.Title,
		Purchasable: c.IsActive,
	}
}

func ItemFromBook(b Book) Item {
	return Item{
		ID:          b.ID,
		Type:        ItemTypeBook,
		OwnerID:     b.AuthorID,
		Title:       b.Title,
		Stock:       b.Stock,
		Purchasable: b.Available && b.Stock > 0,
	}
}

// Entitlement describes the buyer-facing effect of one completed sale.
type Entitlement struct {
	ItemID          string
	ItemType        ItemType
	BuyerID         string
	PaymentIntentID string
	At              time.Time
}

// EntitlementResult reports which mutations actually took effect.
type EntitlementResult struct {
	Enrolled       bool
	MarkedSold     bool
	StockDecrement bool
	// Conflict is set when the item could not be granted: an original already
	// sold to another intent or a stocked item with no units left.
	Conflict bool
}
