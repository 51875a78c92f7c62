// Package repository is the persistence layer. The interfaces here are the
// ports the services consume; the pgx backed implementations live alongside
// them and the memory subpackage provides an in-process store.
package repository

import (
	"context"
	"time"

	"wheeldeals/internal/models"
)

type Users interface {
	Create(ctx context.Context, user models.User) error
	GetByID(ctx context.Context, id string) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, error)
	UpdateRole(ctx context.Context, id string, role models.Role) error
	TouchLogin(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
	// DeleteGuestsBefore removes guest accounts created before cutoff and
	// returns how many were removed.
	DeleteGuestsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Sessions interface {
	Create(ctx context.Context, session models.Session) error
	GetByID(ctx context.Context, id string) (models.Session, error)
	FindByRefreshHash(ctx context.Context, userID string, refreshHash []byte) (models.Session, error)
	ListByUser(ctx context.Context, userID string) ([]models.Session, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	DeleteOldestSessions(ctx context.Context, userID string, keepLatest int) error
	DeleteByID(ctx context.Context, id string) error
	DeleteByDevice(ctx context.Context, userID string, deviceID string) error
	Touch(ctx context.Context, sessionID string, ip string, userAgent string) error
}

type Cars interface {
	Create(ctx context.Context, car models.Car) error
	GetByID(ctx context.Context, id string) (models.Car, error)
	// GetForUpdate reads the car and locks it until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id string) (models.Car, error)
	Update(ctx context.Context, car models.Car) error
	UpdateStatus(ctx context.Context, id string, status models.ListingStatus, reason string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.CarFilter) ([]models.Car, error)
	// AddViewer records userID as a viewer of the car and bumps the view
	// counter. It reports false when the pair was already recorded.
	AddViewer(ctx context.Context, carID string, userID string) (bool, error)
}

type Inspections interface {
	Create(ctx context.Context, req models.InspectionRequest) error
	Get(ctx context.Context, id string) (models.InspectionRequest, error)
	// GetForUpdate reads the request and locks it until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id string) (models.InspectionRequest, error)
	// Update writes next only if the stored row still matches prev's status
	// and inspector; otherwise it returns apperr.ErrConcurrentModification.
	Update(ctx context.Context, next models.InspectionRequest, prev models.InspectionRequest) error
	ExistsSince(ctx context.Context, carID string, buyerID string, since time.Time) (bool, error)
	// NextSequence atomically advances and returns the counter for day.
	NextSequence(ctx context.Context, day string) (int, error)
	List(ctx context.Context, filter models.InspectionFilter) ([]models.InspectionRequest, error)
}

type Reports interface {
	// Save creates the report of an inspection or overwrites its ratings and
	// comments. The stored report, including its id, is returned.
	Save(ctx context.Context, report models.InspectionReport) (models.InspectionReport, error)
	GetByInspection(ctx context.Context, inspectionID string) (models.InspectionReport, error)
	AddPhotos(ctx context.Context, reportID string, photos []models.Photo) error
	// PhotoKeysByCar lists object keys of every photo attached to reports of
	// the car's inspections.
	PhotoKeysByCar(ctx context.Context, carID string) ([]string, error)
	// PhotoKeysByUser lists object keys of photos that go away with the
	// user: reports on their listings and on their own requests.
	PhotoKeysByUser(ctx context.Context, userID string) ([]string, error)
}

// Tx is a unit of work. All repositories obtained from one Tx share it.
type Tx interface {
	Users() Users
	Sessions() Sessions
	Cars() Cars
	Inspections() Inspections
	Reports() Reports
}

// Store hands out repositories bound to the connection pool and runs
// transactional units of work.
type Store interface {
	Tx
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
}
