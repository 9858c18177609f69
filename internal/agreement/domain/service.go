package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/spacebook/internal/auth/domain"
)

var ErrAlreadyAccepted = errors.New("agreement_already_accepted")

type AcceptRequest struct {
	BookingID snowflake.ID
	IPAddress string
}

type Service interface {
	Accept(ctx context.Context, cred authdomain.Credential, req AcceptRequest) (*Acceptance, error)
}
