package database

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jmoiron/sqlx"
)

//go:embed schema.sql
var schema string

// Constraint names referenced when translating unique violations.
const (
	ConstraintProgramName      = "programs_name_key"
	ConstraintProgramShortCode = "programs_short_code_key"
	ConstraintEnrollmentPair   = "enrollments_client_program_key"
	ConstraintEnrollmentID     = "enrollments_enrollment_id_key"
	ConstraintUserEmail        = "users_email_key"
)

// Migrate applies the idempotent schema in one transaction.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	return WithTx(ctx, db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		return nil
	})
}
