package registry

import (
	"context"
	"errors"
	"time"

	"daoverse-backend/internal/domain"
	"daoverse-backend/internal/ledger"

	"gorm.io/gorm"
)

// Service is the room token registry: the sole source of truth for room
// ownership, expiring rental rights and voting weight.
type Service struct {
	DB      *gorm.DB
	BaseURI string

	// Now is injectable for tests; nil means time.Now.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Mint creates a new room with the next sequential id, owned by the caller.
// Only the registry owner (deployer, later the timelock) may mint.
func (s *Service) Mint(ctx context.Context, caller, uri string, areaSize uint64, name string) (*domain.Room, error) {
	var room *domain.Room
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		room, err = s.MintInTx(tx, caller, uri, areaSize, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

// MintInTx is Mint inside an open transaction, for timelock execution of
// governed mint proposals.
func (s *Service) MintInTx(tx *gorm.DB, caller, uri string, areaSize uint64, name string) (*domain.Room, error) {
	if areaSize == 0 {
		return nil, ErrInvalidArea
	}
	var state domain.RegistryState
	if err := tx.Where("id = ?", 1).First(&state).Error; err != nil {
		return nil, err
	}
	if state.Owner != caller {
		return nil, ErrNotMinter
	}

	room := domain.Room{
		RoomID:   state.NextRoomID,
		Owner:    caller,
		AreaSize: areaSize,
		Name:     name,
		URI:      s.BaseURI + uri,
	}
	if err := tx.Create(&room).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&state).Update("next_room_id", state.NextRoomID+1).Error; err != nil {
		return nil, err
	}

	if err := ledger.AppendTx(tx, "room.minted", caller, map[string]interface{}{
		"room_id":   room.RoomID,
		"area_size": areaSize,
		"name":      name,
	}); err != nil {
		return nil, err
	}
	block, err := ledger.HeightTx(tx)
	if err != nil {
		return nil, err
	}
	if err := adjustSupplyTx(tx, block, 1); err != nil {
		return nil, err
	}
	if err := moveVotesTx(tx, block, "", delegateOfTx(tx, caller), 1); err != nil {
		return nil, err
	}
	return &room, nil
}

// Transfer moves room title. The caller must be the owner or an approved
// operator (the sale marketplace). Any active rental right and any open
// marketplace listings are cleared so stale claims cannot survive a title
// change, and delegated voting weight moves with the title.
func (s *Service) Transfer(ctx context.Context, caller string, roomID uint64, to string) (*domain.Room, error) {
	if to == "" || to == domain.ZeroAddress {
		return nil, ErrZeroAddress
	}
	var room *domain.Room
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		room, err = s.TransferInTx(tx, caller, roomID, to)
		return err
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

// TransferInTx is Transfer inside an open transaction; the sale marketplace
// uses it so purchase and title change commit atomically.
func (s *Service) TransferInTx(tx *gorm.DB, caller string, roomID uint64, to string) (*domain.Room, error) {
	var room domain.Room
	if err := tx.Where("room_id = ?", roomID).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, RoomNotFoundError{RoomID: roomID}
		}
		return nil, err
	}
	if caller != room.Owner && !isOperatorTx(tx, caller) {
		return nil, NotOwnerError{RoomID: roomID, Caller: caller}
	}
	if to == room.Owner {
		return nil, ErrSelfTransfer
	}
	from := room.Owner

	// Room ids start at 0, so the loaded model's primary key cannot drive
	// the update; predicate on the column explicitly.
	if err := tx.Model(&domain.Room{}).Where("room_id = ?", roomID).Updates(map[string]interface{}{
		"owner":        to,
		"user":         "",
		"user_expires": 0,
	}).Error; err != nil {
		return nil, err
	}

	// A title change invalidates any marketplace listing the previous owner
	// made; purge both so the room cannot be rented or sold off a stale one.
	if err := tx.Where("room_id = ?", roomID).Delete(&domain.RentalListing{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("room_id = ?", roomID).Delete(&domain.SaleListing{}).Error; err != nil {
		return nil, err
	}

	if err := ledger.AppendTx(tx, "room.transferred", caller, map[string]interface{}{
		"room_id": roomID,
		"from":    from,
		"to":      to,
	}); err != nil {
		return nil, err
	}
	block, err := ledger.HeightTx(tx)
	if err != nil {
		return nil, err
	}
	if err := moveVotesTx(tx, block, delegateOfTx(tx, from), delegateOfTx(tx, to), 1); err != nil {
		return nil, err
	}
	if err := tx.Where("room_id = ?", roomID).First(&room).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

// SetUser assigns the rental right. Callable by the room owner or an approved
// operator (the renting marketplace).
func (s *Service) SetUser(ctx context.Context, caller string, roomID uint64, user string, expires int64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.SetUserInTx(tx, caller, roomID, user, expires)
	})
}

// SetUserInTx is SetUser inside an open transaction, for the renting
// marketplace's rent flow.
func (s *Service) SetUserInTx(tx *gorm.DB, caller string, roomID uint64, user string, expires int64) error {
	var room domain.Room
	if err := tx.Where("room_id = ?", roomID).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RoomNotFoundError{RoomID: roomID}
		}
		return err
	}
	if caller != room.Owner && !isOperatorTx(tx, caller) {
		return ErrNotAuthorized
	}
	if err := tx.Model(&domain.Room{}).Where("room_id = ?", roomID).Updates(map[string]interface{}{
		"user":         user,
		"user_expires": expires,
	}).Error; err != nil {
		return err
	}
	return ledger.AppendTx(tx, "room.user_set", caller, map[string]interface{}{
		"room_id": roomID,
		"user":    user,
		"expires": expires,
	})
}

// UserOf returns the active rental-right holder, or the zero address once the
// right has expired. Expiry is recomputed on every read; nothing is scheduled.
func (s *Service) UserOf(ctx context.Context, roomID uint64) (string, error) {
	room, err := s.Room(ctx, roomID)
	if err != nil {
		return "", err
	}
	if room.User == "" || s.now().Unix() >= room.UserExpires {
		return domain.ZeroAddress, nil
	}
	return room.User, nil
}

// UserOfTx is UserOf inside an open transaction (marketplace listing checks).
func (s *Service) UserOfTx(tx *gorm.DB, roomID uint64) (string, error) {
	var room domain.Room
	if err := tx.Where("room_id = ?", roomID).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", RoomNotFoundError{RoomID: roomID}
		}
		return "", err
	}
	if room.User == "" || s.now().Unix() >= room.UserExpires {
		return domain.ZeroAddress, nil
	}
	return room.User, nil
}

// UserExpires returns the stored expiry timestamp, expired or not.
func (s *Service) UserExpires(ctx context.Context, roomID uint64) (int64, error) {
	room, err := s.Room(ctx, roomID)
	if err != nil {
		return 0, err
	}
	return room.UserExpires, nil
}

func (s *Service) Room(ctx context.Context, roomID uint64) (*domain.Room, error) {
	var room domain.Room
	if err := s.DB.WithContext(ctx).Where("room_id = ?", roomID).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, RoomNotFoundError{RoomID: roomID}
		}
		return nil, err
	}
	return &room, nil
}

func (s *Service) Rooms(ctx context.Context) ([]domain.Room, error) {
	var rooms []domain.Room
	if err := s.DB.WithContext(ctx).Order("room_id ASC").Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

func (s *Service) OwnerOf(ctx context.Context, roomID uint64) (string, error) {
	room, err := s.Room(ctx, roomID)
	if err != nil {
		return "", err
	}
	return room.Owner, nil
}

// RegistryOwner returns the current designated minter.
func (s *Service) RegistryOwner(ctx context.Context) (string, error) {
	var state domain.RegistryState
	if err := s.DB.WithContext(ctx).Where("id = ?", 1).First(&state).Error; err != nil {
		return "", err
	}
	return state.Owner, nil
}

// TransferRegistryOwnership hands minting rights over (governance setup moves
// them to the timelock).
func (s *Service) TransferRegistryOwnership(ctx context.Context, caller, newOwner string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.TransferRegistryOwnershipInTx(tx, caller, newOwner)
	})
}

// TransferRegistryOwnershipInTx is TransferRegistryOwnership inside an open
// transaction.
func (s *Service) TransferRegistryOwnershipInTx(tx *gorm.DB, caller, newOwner string) error {
	if newOwner == "" || newOwner == domain.ZeroAddress {
		return ErrZeroAddress
	}
	var state domain.RegistryState
	if err := tx.Where("id = ?", 1).First(&state).Error; err != nil {
		return err
	}
	if state.Owner != caller {
		return ErrNotMinter
	}
	if err := tx.Model(&state).Update("owner", newOwner).Error; err != nil {
		return err
	}
	return ledger.AppendTx(tx, "registry.ownership_transferred", caller, map[string]interface{}{
		"new_owner": newOwner,
	})
}

// RegisterOperator approves an address (a marketplace) to act on rooms on
// behalf of their owners. Wiring-time operation, gated on the registry owner.
func (s *Service) RegisterOperator(ctx context.Context, caller, operator string) error {
	if operator == "" || operator == domain.ZeroAddress {
		return ErrZeroAddress
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var state domain.RegistryState
		if err := tx.Where("id = ?", 1).First(&state).Error; err != nil {
			return err
		}
		if state.Owner != caller {
			return ErrNotMinter
		}
		var existing domain.Operator
		if err := tx.Where("address = ?", operator).First(&existing).Error; err == nil {
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.Create(&domain.Operator{Address: operator}).Error; err != nil {
			return err
		}
		return ledger.AppendTx(tx, "registry.operator_registered", caller, map[string]interface{}{
			"operator": operator,
		})
	})
}

func isOperatorTx(tx *gorm.DB, address string) bool {
	var op domain.Operator
	return tx.Where("address = ?", address).First(&op).Error == nil
}
