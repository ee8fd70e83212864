package marketplace

import (
	"context"
	"testing"
	"time"

	"daoverse-backend/internal/database"
	"daoverse-backend/internal/domain"
	"daoverse-backend/internal/ledger"
	"daoverse-backend/internal/registry"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	deployer = "0xd000000000000000000000000000000000000001"
	alice    = "0xa000000000000000000000000000000000000002"
	bob      = "0xb000000000000000000000000000000000000003"
	carol    = "0xc000000000000000000000000000000000000004"
)

type marketFixture struct {
	db       *gorm.DB
	registry *registry.Service
	market   *Service
	wallets  *ledger.Service
}

func setupMarketTest(t *testing.T) *marketFixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, database.Seed(db, deployer, 5))

	reg := &registry.Service{DB: db, BaseURI: "ipfs://rooms/"}
	ctx := context.Background()
	require.NoError(t, reg.RegisterOperator(ctx, deployer, domain.RentingMarketAddress))
	require.NoError(t, reg.RegisterOperator(ctx, deployer, domain.SaleMarketAddress))

	return &marketFixture{
		db:       db,
		registry: reg,
		market:   &Service{DB: db, Registry: reg},
		wallets:  &ledger.Service{DB: db},
	}
}

func (f *marketFixture) mintTo(t *testing.T, owner string, area uint64, name string) uint64 {
	t.Helper()
	ctx := context.Background()
	room, err := f.registry.Mint(ctx, deployer, "", area, name)
	require.NoError(t, err)
	if owner != deployer {
		_, err = f.registry.Transfer(ctx, deployer, room.RoomID, owner)
		require.NoError(t, err)
	}
	return room.RoomID
}

func TestListItem_CreatesListing(t *testing.T) {
	f := setupMarketTest(t)
	ctx := context.Background()
	roomID := f.mintTo(t, alice, 245, "terra")

	listing, err := f.market.ListItem(ctx, alice, roomID, 5000)
	require.NoError(t, err)
	assert.Equal(t, roomID, listing.RoomID)
	assert.Equal(t, uint64(5000), listing.Price)
	assert.Equal(t, alice, listing.Seller)
}

func TestListItem_Checks(t *testing.T) {
	f := setupMarketTest(t)
	ctx := context.Background()
	roomID := f.mintTo(t, alice, 245, "terra")

	_, err := f.market.ListItem(ctx, alice, roomID, 0)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = f.market.ListItem(ctx, bob, roomID, 5000)
	var notOwner NotOwnerError
	assert.ErrorAs(t, err, &notOwner)

	_, err = f.market.ListItem(ctx, alice, 999, 5000)
	var notFound registry.RoomNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestListItem_RejectedWhileForRent(t *testing.T) {
	f := setupMarketTest(t)
	ctx := context.Background()
	roomID := f.mintTo(t, alice, 245, "terra")

	require.NoError(t, f.db.Create(&domain.RentalListing{
		RoomID: roomID, Owner: alice, PricePerPeriod: 310, MaxPeriods: 12,
	}).Error)

	_, err := f.market.ListItem(ctx, alice, roomID, 5000)
	var forRent IsForRentError
	require.ErrorAs(t, err, &forRent)
	assert.Equal(t, roomID, forRent.RoomID)
}

func TestListItem_RejectedWhileRented(t *testing.T) {
	f := setupMarketTest(t)
	ctx := context.Background()
	roomID := f.mintTo(t, alice, 245, "terra")

	expires := time.Now().Add(time.Hour).Unix()
	require.NoError(t, f.registry.SetUser(ctx, alice, roomID, carol, expires))

	_, err := f.market.ListItem(ctx, alice, roomID, 5000)
	var rented IsRentedError
	require.ErrorAs(t, err, &rented)
	assert.Equal(t, carol, rented.User)
}

func TestUpdateListing(t *testing.T) {
	f := setupMarketTest(t)
	ctx := context.Background()
	roomID := f.mintTo(t, alice, 245, "terra")

	_, err := f.market.UpdateListing(ctx, alice, roomID, 6000)
	var notListed NotListedError
	assert.ErrorAs(t, err, &notListed)

	_, err = f.market.ListItem(ctx, alice, roomID, 5000)
	require.NoError(t, err)

	_, err = f.market.UpdateListing(ctx, bob, roomID, 6000)
	var notOwner NotOwnerError
	assert.ErrorAs(t, err, &notOwner)

	_, err = f.market.UpdateListing(ctx, alice, roomID, 0)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	updated, err := f.market.UpdateListing(ctx, alice, roomID, 6000)
	require.NoError(t, err)
	assert.Equal(t, uint64(6000), updated.Price)
}

func TestCancelListing(t *testing.T) {
	f := setupMarketTest(t)
	ctx := context.Background()
	roomID := f.mintTo(t, alice, 245, "terra")

	_, err := f.market.ListItem(ctx, alice, roomID, 5000)
	require.NoError(t, err)

	err = f.market.CancelListing(ctx, bob, roomID)
	var notOwner NotOwnerError
	assert.ErrorAs(t, err, &notOwner)

	require.NoError(t, f.market.CancelListing(ctx, alice, roomID))

	err = f.market.CancelListing(ctx, alice, roomID)
	var notListed NotListedError
	assert.ErrorAs(t, err, &notListed)
}

func TestBuyItem_FullFlow(t *testing.T) {
	f := setupMarketTest(t)
	ctx := context.Background()
	roomID := f.mintTo(t, alice, 245, "terra")

	_, err := f.market.ListItem(ctx, alice, roomID, 5000)
	require.NoError(t, err)
	_, err = f.wallets.Deposit(ctx, bob, 8000)
	require.NoError(t, err)

	// Overpayment is accepted but only the price is charged.
	room, err := f.market.BuyItem(ctx, bob, roomID, 6000)
	require.NoError(t, err)
	assert.Equal(t, bob, room.Owner)
	assert.Equal(t, "", room.User)

	balance, err := f.wallets.Balance(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(3000), balance)

	// 5% of 5000 = 250 fee, seller nets 4750.
	proceeds, err := f.wallets.ProceedsBalance(ctx, domain.MarketSale, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(4750), proceeds)

	var state domain.MarketState
	require.NoError(t, f.db.Where("market = ?", domain.MarketSale).First(&state).Error)
	assert.Equal(t, uint64(250), state.FeeBalance)

	// The listing is gone; buying again fails.
	_, err = f.market.BuyItem(ctx, bob, roomID, 6000)
	var notListed NotListedError
	assert.ErrorAs(t, err, &notListed)
}

func TestBuyItem_PriceNotMet(t *testing.T) {
	f := setupMarketTest(t)
	ctx := context.Background()
	roomID := f.mintTo(t, alice, 245, "terra")

	_, err := f.market.ListItem(ctx, alice, roomID, 5000)
	require.NoError(t, err)
	_, err = f.wallets.Deposit(ctx, bob, 8000)
	require.NoError(t, err)

	_, err = f.market.BuyItem(ctx, bob, roomID, 4999)
	var priceNotMet PriceNotMetError
	require.ErrorAs(t, err, &priceNotMet)
	assert.Equal(t, uint64(5000), priceNotMet.Expected)

	balance, err := f.wallets.Balance(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(8000), balance)
}

func TestBuyItem_InsufficientFunds(t *testing.T) {
	f := setupMarketTest(t)
	ctx := context.Background()
	roomID := f.mintTo(t, alice, 245, "terra")

	_, err := f.market.ListItem(ctx, alice, roomID, 5000)
	require.NoError(t, err)
	_, err = f.wallets.Deposit(ctx, bob, 100)
	require.NoError(t, err)

	_, err = f.market.BuyItem(ctx, bob, roomID, 5000)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	// Listing and title survive the failed purchase.
	owner, err := f.registry.OwnerOf(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, alice, owner)
	listing, err := f.market.GetListing(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), listing.Price)
}

func TestWithdrawals(t *testing.T) {
	f := setupMarketTest(t)
	ctx := context.Background()
	roomID := f.mintTo(t, alice, 245, "terra")

	_, err := f.market.ListItem(ctx, alice, roomID, 5000)
	require.NoError(t, err)
	_, err = f.wallets.Deposit(ctx, bob, 5000)
	require.NoError(t, err)
	_, err = f.market.BuyItem(ctx, bob, roomID, 5000)
	require.NoError(t, err)

	amount, err := f.market.WithdrawProceeds(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(4750), amount)
	amount, err = f.market.WithdrawProceeds(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), amount)

	_, err = f.market.WithdrawFees(ctx, alice)
	assert.ErrorIs(t, err, ErrUnauthorized)
	amount, err = f.market.WithdrawFees(ctx, deployer)
	require.NoError(t, err)
	assert.Equal(t, uint64(250), amount)
}

func TestSetFeeAndOwnership(t *testing.T) {
	f := setupMarketTest(t)
	ctx := context.Background()

	err := f.market.SetFeePercentage(ctx, alice, 10)
	assert.ErrorIs(t, err, ErrUnauthorized)
	err = f.market.SetFeePercentage(ctx, deployer, 101)
	assert.ErrorIs(t, err, ErrInvalidFee)
	require.NoError(t, f.market.SetFeePercentage(ctx, deployer, 7))

	fee, err := f.market.GetFeePercentage(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), fee)

	require.NoError(t, f.market.TransferOwnership(ctx, deployer, carol))
	owner, err := f.market.Owner(ctx)
	require.NoError(t, err)
	assert.Equal(t, carol, owner)

	// The old owner is locked out after the handover.
	err = f.market.SetFeePercentage(ctx, deployer, 9)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGetListing_ZeroValueWhenUnlisted(t *testing.T) {
	f := setupMarketTest(t)

	listing, err := f.market.GetListing(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), listing.RoomID)
	assert.Equal(t, uint64(0), listing.Price)
	assert.Equal(t, "", listing.Seller)
}

func TestBuyItem_ListingDoesNotSurviveTransfer(t *testing.T) {
	f := setupMarketTest(t)
	ctx := context.Background()
	roomID := f.mintTo(t, alice, 245, "terra")

	_, err := f.market.ListItem(ctx, alice, roomID, 5000)
	require.NoError(t, err)

	// Alice hands the room to Bob directly; her listing must not remain
	// purchasable against the new owner's title.
	_, err = f.registry.Transfer(ctx, alice, roomID, bob)
	require.NoError(t, err)

	_, err = f.wallets.Deposit(ctx, carol, 5000)
	require.NoError(t, err)
	_, err = f.market.BuyItem(ctx, carol, roomID, 5000)
	var notListed NotListedError
	require.ErrorAs(t, err, &notListed)

	owner, err := f.registry.OwnerOf(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, bob, owner)

	balance, err := f.wallets.Balance(ctx, carol)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), balance)

	proceeds, err := f.market.WithdrawProceeds(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), proceeds)
}
