// Package location is C2, the anti-cheat location verifier. It is a thin
// service wrapper around the pure scoring rule in pkg/models and the trail
// persistence in internal/db.
package location

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/titanbreach/engine/internal/apperr"
	"github.com/titanbreach/engine/internal/geo"
	"github.com/titanbreach/engine/pkg/models"
)

// Thresholds holds C2's configured limits (spec §4.2 defaults).
type Thresholds struct {
	AccuracyMeters float64
	MaxSpeedMps    float64
}

// Store is the persistence surface the verifier needs.
type Store interface {
	LastLocationRecord(ctx context.Context, playerID uuid.UUID) (*models.LocationTrailRecord, error)
	InsertLocationRecord(ctx context.Context, playerID uuid.UUID, r models.LocationTrailRecord, flagKinds []string) error
	UpdateLastLocation(ctx context.Context, playerID uuid.UUID, lat, lng float64, at time.Time) error
}

// Verifier is C2.
type Verifier struct {
	store      Store
	thresholds Thresholds
}

// New constructs a verifier bound to its store and configured thresholds.
func New(store Store, thresholds Thresholds) *Verifier {
	return &Verifier{store: store, thresholds: thresholds}
}

// Verify scores a freshly submitted report against the player's last known
// fix, appends it to the trail, and updates the player's last-known fix —
// all side effects the spec requires regardless of verdict (only a database
// error aborts the call; a missing prior fix just skips the delta checks).
func (v *Verifier) Verify(ctx context.Context, playerID uuid.UUID, report models.LocationReport) (*models.LocationVerification, error) {
	var flags []models.Flag

	if report.AccuracyM > v.thresholds.AccuracyMeters {
		flags = append(flags, models.Flag{
			Kind:   models.FlagLowAccuracy,
			Detail: "accuracy exceeds configured threshold",
			Max:    v.thresholds.AccuracyMeters,
		})
	}

	prior, err := v.store.LastLocationRecord(ctx, playerID)
	if err != nil {
		return nil, apperr.Database(err)
	}

	if prior != nil {
		dist := geo.Haversine(geo.Point{Lat: prior.Lat, Lng: prior.Lng}, geo.Point{Lat: report.Lat, Lng: report.Lng})
		dt := report.Timestamp.Sub(prior.Timestamp).Seconds()

		if dt > 0 {
			speed := dist / dt
			if speed > v.thresholds.MaxSpeedMps {
				flags = append(flags, models.Flag{
					Kind:   models.FlagSpeedViolation,
					Detail: "derived speed exceeds configured maximum",
					Speed:  speed,
					Max:    v.thresholds.MaxSpeedMps,
				})
			}
		}

		if dist > 50000 && dt < 300 {
			flags = append(flags, models.Flag{
				Kind:     models.FlagPossibleTeleport,
				Detail:   "displacement too large for elapsed time",
				Distance: dist,
			})
		}
	}

	status := models.DeriveStatus(flags)

	flagKinds := make([]string, len(flags))
	for i, f := range flags {
		flagKinds[i] = string(f.Kind)
	}

	trailRecord := models.LocationTrailRecord{
		Lat: report.Lat, Lng: report.Lng, AccuracyM: report.AccuracyM,
		SpeedMps: report.SpeedMps, HeadingDeg: report.HeadingDeg, AltitudeM: report.AltitudeM,
		Timestamp: report.Timestamp, IsSuspicious: status != models.StatusValid,
	}
	if err := v.store.InsertLocationRecord(ctx, playerID, trailRecord, flagKinds); err != nil {
		return nil, apperr.Database(err)
	}
	if err := v.store.UpdateLastLocation(ctx, playerID, report.Lat, report.Lng, report.Timestamp); err != nil {
		return nil, apperr.Database(err)
	}

	return &models.LocationVerification{Status: status, Flags: flags}, nil
}
