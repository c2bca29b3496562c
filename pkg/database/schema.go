package database

import (
	"context"
	"fmt"
)

// CreateSchema creates the database schema for the registry
func (db *DB) CreateSchema(ctx context.Context) error {
	db.logger.Info("Creating database schema...")

	// Create extensions for UUID generation and range exclusion
	if err := db.createExtensions(ctx); err != nil {
		return fmt.Errorf("failed to create extensions: %w", err)
	}

	// Create tables
	tables := []string{
		createDoctorsTable,
		createPatientsTable,
		createSchedulesTable,
		createAppointmentsTable,
	}

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	// Create indexes
	indexes := []string{
		createSchedulesIndexes,
		createAppointmentsIndexes,
	}

	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	db.logger.Info("Database schema created successfully")
	return nil
}

// createExtensions creates required PostgreSQL extensions
func (db *DB) createExtensions(ctx context.Context) error {
	extensions := []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
		`CREATE EXTENSION IF NOT EXISTS "btree_gist";`,
	}

	for _, ext := range extensions {
		if _, err := db.ExecContext(ctx, ext); err != nil {
			return fmt.Errorf("failed to create extension: %w", err)
		}
	}

	return nil
}

// SQL DDL statements for table creation
const (
	createDoctorsTable = `
		CREATE TABLE IF NOT EXISTS doctors (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			first_name VARCHAR(100) NOT NULL,
			last_name VARCHAR(100) NOT NULL,
			specialization VARCHAR(100) NOT NULL,
			license_number VARCHAR(50),
			cabinet_number VARCHAR(10),
			is_active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`

	createPatientsTable = `
		CREATE TABLE IF NOT EXISTS patients (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			first_name VARCHAR(100) NOT NULL,
			last_name VARCHAR(100) NOT NULL,
			date_of_birth DATE,
			phone_number VARCHAR(20),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`

	// One published window per doctor per work date.
	createSchedulesTable = `
		CREATE TABLE IF NOT EXISTS schedules (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			doctor_id UUID NOT NULL REFERENCES doctors(id),
			work_date DATE NOT NULL,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL,
			is_available BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT schedules_window_valid CHECK (end_time > start_time),
			CONSTRAINT schedules_doctor_date_unique UNIQUE (doctor_id, work_date)
		);`

	// The exclusion constraint is the storage backstop for the
	// validate-then-insert race: two concurrent bookings for overlapping
	// intervals of one doctor cannot both commit.
	createAppointmentsTable = `
		CREATE TABLE IF NOT EXISTS appointments (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			patient_id UUID NOT NULL REFERENCES patients(id),
			doctor_id UUID NOT NULL REFERENCES doctors(id),
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			purpose VARCHAR(50),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT appointments_interval_valid CHECK (end_time > start_time),
			CONSTRAINT appointments_no_doctor_overlap EXCLUDE USING gist (
				doctor_id WITH =,
				tstzrange(start_time, end_time) WITH &&
			) WHERE (status <> 'cancelled')
		);`

	createSchedulesIndexes = `
		CREATE INDEX IF NOT EXISTS idx_schedules_doctor_date ON schedules(doctor_id, work_date);
		CREATE INDEX IF NOT EXISTS idx_schedules_work_date ON schedules(work_date);`

	createAppointmentsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_appointments_doctor_start ON appointments(doctor_id, start_time);
		CREATE INDEX IF NOT EXISTS idx_appointments_patient_start ON appointments(patient_id, start_time);
		CREATE INDEX IF NOT EXISTS idx_appointments_status ON appointments(status);`
)
