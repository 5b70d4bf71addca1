package models

import "time"

// Doctor is an administrative entity. UserID links the doctor to a login
// account when present (0 means unlinked), enabling chat with patients.
type Doctor struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	UserID    uint   `gorm:"index" json:"user_id"`
	Name      string `gorm:"size:128;not null" json:"name"`
	Specialty string `gorm:"size:128" json:"specialty"`
	Bio       string `gorm:"type:text" json:"bio"`
	PhotoURL  string `gorm:"size:512" json:"photo_url"`
}

// ScheduleWindow is one weekly availability window for a doctor.
// DayOfWeek is ISO: 1 = Monday .. 7 = Sunday. Times are "HH:MM", start < end.
type ScheduleWindow struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	DoctorID  uint   `gorm:"index;not null" json:"doctor_id"`
	DayOfWeek int    `gorm:"not null" json:"day_of_week"`
	StartTime string `gorm:"size:5;not null" json:"start_time"`
	EndTime   string `gorm:"size:5;not null" json:"end_time"`
}

// Appointment is a confirmed 30-minute booking. The composite unique index on
// (doctor_id, start_at) is what makes concurrent bookings of the same slot
// safe: the pre-check in the booking service is advisory, the index is the
// authority. Rows are never mutated after insert except the video link.
type Appointment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	DoctorID  uint      `gorm:"uniqueIndex:idx_doctor_start;not null" json:"doctor_id"`
	StartAt   time.Time `gorm:"uniqueIndex:idx_doctor_start;not null" json:"start_at"`
	EndAt     time.Time `gorm:"not null" json:"end_at"`
	VideoURL  string    `gorm:"size:512" json:"video_url"`
	CreatedAt time.Time `json:"created_at"`
}
