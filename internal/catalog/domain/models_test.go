package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseItemType(t *testing.T) {
	itemType, ok := ParseItemType(" Print ")
	assert.True(t, ok)
	assert.Equal(t, ItemTypePrint, itemType)

	_, ok = ParseItemType("sculpture")
	assert.False(t, ok)
}

func TestSellerPayoutReady(t *testing.T) {
	ready := Seller{StripeAccountID: "acct_1", StripeOnboardingStatus: "complete", ChargesEnabled: true, PayoutsEnabled: true}
	assert.True(t, ready.PayoutReady())

	pending := ready
	pending.StripeOnboardingStatus = "pending"
	assert.False(t, pending.PayoutReady())

	noAccount := ready
	noAccount.StripeAccountID = ""
	assert.False(t, noAccount.PayoutReady())

	noPayouts := ready
	noPayouts.PayoutsEnabled = false
	assert.False(t, noPayouts.PayoutReady())
}

func TestItemPurchasable(t *testing.T) {
	assert.False(t, ItemFromArtwork(Artwork{Kind: ItemTypeOriginal, Sold: true}).Purchasable)
	assert.True(t, ItemFromArtwork(Artwork{Kind: ItemTypeOriginal}).Purchasable)
	assert.True(t, ItemFromArtwork(Artwork{Kind: ItemTypePrint, Sold: true, Stock: 2}).Purchasable)
	assert.False(t, ItemFromArtwork(Artwork{Kind: ItemTypePrint, Stock: 0}).Purchasable)
	assert.False(t, ItemFromCourse(Course{IsActive: false}).Purchasable)
	assert.False(t, ItemFromBook(Book{Available: false, Stock: 3}).Purchasable)
	assert.True(t, ItemFromBook(Book{Available: true, Stock: 1}).Purchasable)
}
