package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		current Status
		next    Status
		want    Status
		changed bool
	}{
		{StatusRequiresPaymentMethod, StatusProcessing, StatusProcessing, true},
		{StatusRequiresPaymentMethod, StatusSucceeded, StatusSucceeded, true},
		{StatusProcessing, StatusFailed, StatusFailed, true},
		{StatusProcessing, StatusCanceled, StatusCanceled, true},
		{StatusProcessing, StatusRequiresPaymentMethod, StatusProcessing, false},
		{StatusProcessing, StatusProcessing, StatusProcessing, false},
		{StatusSucceeded, StatusFailed, StatusSucceeded, false},
		{StatusSucceeded, StatusRequiresPaymentMethod, StatusSucceeded, false},
		{StatusCanceled, StatusSucceeded, StatusCanceled, false},
		{StatusRequiresPaymentMethod, Status("bogus"), StatusRequiresPaymentMethod, false},
	}
	for _, tt := range tests {
		got, changed := Transition(tt.current, tt.next)
		assert.Equal(t, tt.want, got, "%s -> %s", tt.current, tt.next)
		assert.Equal(t, tt.changed, changed, "%s -> %s", tt.current, tt.next)
	}
}
