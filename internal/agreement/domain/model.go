package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Acceptance records that a booking's owner accepted the space usage
// agreement. A user accepts once per booking.
type Acceptance struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID     snowflake.ID `gorm:"not null;uniqueIndex:ux_agreement_acceptances_user_booking,priority:1" json:"user_id"`
	BookingID  snowflake.ID `gorm:"not null;uniqueIndex:ux_agreement_acceptances_user_booking,priority:2" json:"booking_id"`
	IPAddress  string       `gorm:"type:varchar(45)" json:"ip_address,omitempty"`
	AcceptedAt time.Time    `gorm:"not null" json:"accepted_at"`
}

func (Acceptance) TableName() string { return "agreement_acceptances" }
