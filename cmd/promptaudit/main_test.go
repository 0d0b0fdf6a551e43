package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuditFailedError(t *testing.T) {
	err := &AuditFailedError{Message: "review score 42.0% is below the 70% threshold"}
	assert.Equal(t, "review score 42.0% is below the 70% threshold", err.Error())
}

func TestErrorTypeDetection(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantAudit bool
	}{
		{
			name:      "AuditFailedError",
			err:       &AuditFailedError{Message: "not ready"},
			wantAudit: true,
		},
		{
			name: "regular error",
			err:  errors.New("config error"),
		},
		{
			name:      "wrapped AuditFailedError",
			err:       fmt.Errorf("integration: %w", &AuditFailedError{Message: "not ready"}),
			wantAudit: true,
		},
		{
			name:      "joined AuditFailedError",
			err:       errors.Join(&AuditFailedError{Message: "not ready"}, errors.New("additional context")),
			wantAudit: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var auditErr *AuditFailedError
			assert.Equal(t, tt.wantAudit, errors.As(tt.err, &auditErr))
		})
	}
}
