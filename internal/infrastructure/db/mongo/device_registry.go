package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/edustream/session-system/internal/core/domain"
)

const devicesCollection = "account_devices"

// DeviceRegistry is the authoritative device store. Devices are embedded in
// one document per account so that quota enforcement is a single guarded
// UpdateOne: the push cannot happen once the array holds maxDevices entries,
// regardless of how many writers race for the last slot.
type DeviceRegistry struct {
	coll       *mongo.Collection
	maxDevices int
}

func NewDeviceRegistry(db *mongo.Database, maxDevices int) *DeviceRegistry {
	if maxDevices <= 0 {
		maxDevices = domain.DefaultMaxDevices
	}
	return &DeviceRegistry{coll: db.Collection(devicesCollection), maxDevices: maxDevices}
}

type accountDevicesDoc struct {
	AccountID string      `bson:"_id"`
	Devices   []deviceDoc `bson:"devices"`
	UpdatedAt int64       `bson:"updated_at"`
}

type deviceDoc struct {
	DeviceID   string `bson:"device_id"`
	DeviceName string `bson:"device_name"`
	LastSeenAt int64  `bson:"last_seen_at"`
}

// Register refreshes a known device or admits a new one below the quota.
// Returns domain.ErrDeviceLimitExceeded, with no write, when the account is
// at its quota.
func (r *DeviceRegistry) Register(ctx context.Context, accountID string, device domain.Device) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC().Unix()

	// Known device: refresh last_seen_at in place.
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": accountID, "devices.device_id": device.DeviceID},
		bson.M{"$set": bson.M{
			"devices.$.last_seen_at": device.LastSeenAt.Unix(),
			"devices.$.device_name":  device.DeviceName,
			"updated_at":             now,
		}},
	)
	if err != nil {
		return storeErr("refresh device", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	// New device: the push only matches while slot maxDevices-1 is vacant
	// and the device is not already present, so check and insert are one
	// indivisible server-side operation.
	slotGuard := fmt.Sprintf("devices.%d", r.maxDevices-1)
	filter := bson.M{
		"_id":               accountID,
		"devices.device_id": bson.M{"$ne": device.DeviceID},
		slotGuard:           bson.M{"$exists": false},
	}
	update := bson.M{
		"$push": bson.M{"devices": deviceDoc{
			DeviceID:   device.DeviceID,
			DeviceName: device.DeviceName,
			LastSeenAt: device.LastSeenAt.Unix(),
		}},
		"$set": bson.M{"updated_at": now},
	}

	res, err = r.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return r.resolveUpsertRace(ctx, accountID, device.DeviceID, filter, update)
		}
		return storeErr("register device", err)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return domain.ErrDeviceLimitExceeded
	}
	return nil
}

// resolveUpsertRace handles a duplicate key on _id from the guarded upsert:
// a concurrent writer created the account document after our filter was
// evaluated. If that writer registered the same device we are done. Otherwise
// the guard must be re-evaluated against the document that now exists (the
// winner may only have taken one of several free slots), and only a no-match
// on that retry means the quota is actually full.
func (r *DeviceRegistry) resolveUpsertRace(ctx context.Context, accountID, deviceID string, filter, update bson.M) error {
	present, err := r.hasDevice(ctx, accountID, deviceID)
	if err != nil {
		return err
	}
	if present {
		return nil
	}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return storeErr("register device", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrDeviceLimitExceeded
	}
	return nil
}

// Unregister removes the device. Removing an unknown device is a no-op.
func (r *DeviceRegistry) Unregister(ctx context.Context, accountID, deviceID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": accountID},
		bson.M{
			"$pull": bson.M{"devices": bson.M{"device_id": deviceID}},
			"$set":  bson.M{"updated_at": time.Now().UTC().Unix()},
		},
	)
	if err != nil {
		return storeErr("unregister device", err)
	}
	return nil
}

// ResetAll clears every device for the account (administrative reset).
func (r *DeviceRegistry) ResetAll(ctx context.Context, accountID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": accountID},
		bson.M{"$set": bson.M{"devices": []deviceDoc{}, "updated_at": time.Now().UTC().Unix()}},
	)
	if err != nil {
		return storeErr("reset devices", err)
	}
	return nil
}

func (r *DeviceRegistry) List(ctx context.Context, accountID string) ([]domain.Device, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc accountDevicesDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": accountID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []domain.Device{}, nil
		}
		return nil, storeErr("list devices", err)
	}

	devices := make([]domain.Device, 0, len(doc.Devices))
	for _, d := range doc.Devices {
		devices = append(devices, domain.Device{
			DeviceID:   d.DeviceID,
			DeviceName: d.DeviceName,
			AccountID:  doc.AccountID,
			LastSeenAt: unixToTime(d.LastSeenAt),
		})
	}
	return devices, nil
}

func (r *DeviceRegistry) hasDevice(ctx context.Context, accountID, deviceID string) (bool, error) {
	err := r.coll.FindOne(ctx,
		bson.M{"_id": accountID, "devices.device_id": deviceID},
		options.FindOne().SetProjection(bson.M{"_id": 1}),
	).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, storeErr("check device", err)
	}
	return true, nil
}

// storeErr wraps driver failures, normalizing reachability problems onto
// domain.ErrStoreUnavailable so the retry policy can classify them.
func storeErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return fmt.Errorf("%s: %w", op, domain.ErrStoreUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}
