package gormstore

import (
	"time"

	"gorm.io/datatypes"
)

// Tenant mirrors the tenants table and carries calendar settings.
type Tenant struct {
	TenantID       string         `gorm:"primaryKey"`
	Name           string         `gorm:"not null"`
	Timezone       string         `gorm:"not null"`
	OperatingHours datatypes.JSON `gorm:""`
	CreatedAt      time.Time      `gorm:"not null"`
}

func (Tenant) TableName() string { return "tenants" }

// Student mirrors the students table.
type Student struct {
	StudentID string    `gorm:"primaryKey"`
	Name      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (Student) TableName() string { return "students" }

// Membership links a student to a tenant and stores the cached balance.
type Membership struct {
	TenantID      string    `gorm:"primaryKey"`
	StudentID     string    `gorm:"primaryKey"`
	Active        bool      `gorm:"not null"`
	CachedBalance int64     `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (Membership) TableName() string { return "memberships" }

// Court mirrors the courts table. Position defines listing order.
type Court struct {
	CourtID     string    `gorm:"primaryKey"`
	TenantID    string    `gorm:"not null;index:idx_courts_tenant_position,priority:1"`
	Position    int       `gorm:"not null;index:idx_courts_tenant_position,priority:2"`
	Name        string    `gorm:"not null"`
	Active      bool      `gorm:"not null"`
	HourlyPrice int64     `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (Court) TableName() string { return "courts" }

// Schedule mirrors the professor schedules table.
type Schedule struct {
	ScheduleID  string    `gorm:"primaryKey"`
	TenantID    string    `gorm:"not null;index:idx_schedules_tenant_start,priority:1"`
	ProfessorID string    `gorm:"not null"`
	CourtID     *string   `gorm:"index:idx_schedules_court"`
	StartTime   time.Time `gorm:"not null;index:idx_schedules_tenant_start,priority:2"`
	EndTime     time.Time `gorm:"not null"`
	Available   bool      `gorm:"not null"`
	Blocked     bool      `gorm:"not null"`
	BlockReason string    `gorm:"not null"`
	StudentID   *string   `gorm:""`
}

func (Schedule) TableName() string { return "schedules" }

// Booking mirrors the bookings table.
type Booking struct {
	BookingID   string     `gorm:"primaryKey"`
	TenantID    string     `gorm:"not null;index:idx_bookings_tenant_court_status,priority:1;index:idx_bookings_tenant_student,priority:1"`
	StudentID   string     `gorm:"not null;index:idx_bookings_tenant_student,priority:2"`
	ProfessorID *string    `gorm:""`
	ScheduleID  *string    `gorm:"index:idx_bookings_schedule"`
	CourtID     *string    `gorm:"index:idx_bookings_tenant_court_status,priority:2"`
	ServiceKind string     `gorm:"not null"`
	Price       int64      `gorm:"not null"`
	Status      string     `gorm:"not null;index:idx_bookings_tenant_court_status,priority:3"`
	StartTime   time.Time  `gorm:"not null"`
	EndTime     *time.Time `gorm:""`
	CreatedAt   time.Time  `gorm:"not null"`
}

func (Booking) TableName() string { return "bookings" }

// Payment mirrors the payments table.
type Payment struct {
	PaymentID string    `gorm:"primaryKey"`
	TenantID  string    `gorm:"not null;index:idx_payments_tenant_student,priority:1"`
	StudentID string    `gorm:"not null;index:idx_payments_tenant_student,priority:2"`
	BookingID *string   `gorm:"index:idx_payments_booking"`
	Amount    int64     `gorm:"not null"`
	Status    string    `gorm:"not null"`
	Method    string    `gorm:"not null"`
	PaidAt    time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }

// Models lists every table managed by the store, in migration order.
func Models() []interface{} {
	return []interface{}{&Tenant{}, &Student{}, &Membership{}, &Court{}, &Schedule{}, &Booking{}, &Payment{}}
}
