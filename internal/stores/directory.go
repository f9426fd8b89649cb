package stores

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dealradar/internal/geo"
	"dealradar/internal/model"
)

// Directory serves store locations from the database.
type Directory struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewDirectory(db *gorm.DB, logger *slog.Logger) *Directory {
	return &Directory{db: db, logger: logger}
}

// SeedLocations loads the static dataset, inserting rows that do not exist
// yet. Existing rows are left untouched so manual corrections survive a
// restart.
func (d *Directory) SeedLocations(ctx context.Context) error {
	locs := Seed()
	err := d.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&locs).Error
	if err != nil {
		return fmt.Errorf("seed store locations: %w", err)
	}
	d.logger.Info("store locations seeded", "count", len(locs))
	return nil
}

// ByRetailer returns all locations for a retailer, active or not. The
// locator functions handle eligibility filtering.
func (d *Directory) ByRetailer(ctx context.Context, retailer string) ([]model.StoreLocation, error) {
	var locs []model.StoreLocation
	err := d.db.WithContext(ctx).
		Where("retailer = ?", retailer).
		Find(&locs).Error
	if err != nil {
		return nil, fmt.Errorf("load locations for %s: %w", retailer, err)
	}
	return locs, nil
}

// All returns every location in the directory.
func (d *Directory) All(ctx context.Context) ([]model.StoreLocation, error) {
	var locs []model.StoreLocation
	if err := d.db.WithContext(ctx).Find(&locs).Error; err != nil {
		return nil, fmt.Errorf("load locations: %w", err)
	}
	return locs, nil
}

// BackfillCoordinates assigns coordinates to locations that have none,
// resolving each location's own ZIP through the tiered resolver. Returns the
// number of locations updated.
func (d *Directory) BackfillCoordinates(ctx context.Context, resolver *geo.Resolver) (int, error) {
	var pending []model.StoreLocation
	err := d.db.WithContext(ctx).
		Where("latitude IS NULL OR longitude IS NULL").
		Find(&pending).Error
	if err != nil {
		return 0, fmt.Errorf("load ungeocoded locations: %w", err)
	}

	updated := 0
	for i := range pending {
		loc := &pending[i]
		c, tier := resolver.Resolve(loc.Zip)
		if tier == geo.TierNational {
			// A national-centroid coordinate would make the store look
			// equidistant from everywhere, skip until better data arrives.
			d.logger.Warn("backfill skipped, zip unresolvable", "store_id", loc.ID, "zip", loc.Zip)
			continue
		}
		err := d.db.WithContext(ctx).
			Model(&model.StoreLocation{}).
			Where("id = ?", loc.ID).
			Updates(map[string]interface{}{"latitude": c.Lat, "longitude": c.Lon}).Error
		if err != nil {
			return updated, fmt.Errorf("backfill %s: %w", loc.ID, err)
		}
		d.logger.Info("coordinates backfilled", "store_id", loc.ID, "zip", loc.Zip, "tier", tier)
		updated++
	}
	return updated, nil
}
