package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/registry/pkg/types"
)

// Accepted date layouts for bulk upload rows. Front-desk exports use the
// dotted form; API clients send ISO dates.
var importDateLayouts = []string{"02.01.2006", "2006-01-02"}

const importTimeLayout = "15:04"

type parsedImportRow struct {
	doctorID string
	workDate time.Time
	start    time.Time
	end      time.Time
}

func parseImportRow(row types.ScheduleImportRow) (*parsedImportRow, error) {
	if row.DoctorID == "" {
		return nil, fmt.Errorf("doctor_id is empty")
	}
	if _, err := uuid.Parse(row.DoctorID); err != nil {
		return nil, fmt.Errorf("doctor_id %q is not a valid UUID", row.DoctorID)
	}

	var workDate time.Time
	var err error
	for _, layout := range importDateLayouts {
		workDate, err = time.Parse(layout, row.WorkDate)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("work_date %q is not a recognized date", row.WorkDate)
	}

	startClock, err := time.Parse(importTimeLayout, row.StartTime)
	if err != nil {
		return nil, fmt.Errorf("start_time %q is not a valid HH:MM time", row.StartTime)
	}
	endClock, err := time.Parse(importTimeLayout, row.EndTime)
	if err != nil {
		return nil, fmt.Errorf("end_time %q is not a valid HH:MM time", row.EndTime)
	}

	start := time.Date(workDate.Year(), workDate.Month(), workDate.Day(),
		startClock.Hour(), startClock.Minute(), 0, 0, time.UTC)
	end := time.Date(workDate.Year(), workDate.Month(), workDate.Day(),
		endClock.Hour(), endClock.Minute(), 0, 0, time.UTC)
	if !end.After(start) {
		return nil, fmt.Errorf("end_time %q is not after start_time %q", row.EndTime, row.StartTime)
	}

	return &parsedImportRow{
		doctorID: row.DoctorID,
		workDate: types.DateOf(start),
		start:    start,
		end:      end,
	}, nil
}

// ReconcileImport classifies a batch of uploaded schedule rows against the
// schedules already on record. The outcome is deterministic: rows are
// processed in upload order, the first valid row for a (doctor, date) pair
// wins and later rows for the same pair are rejected as in-batch duplicates.
// Reconciliation never writes; the caller persists report.Accepted.
//
// existingKeys holds "doctorID|YYYY-MM-DD" keys for schedules already stored;
// knownDoctors holds the IDs of doctors on record. Rows naming a doctor not
// on record are rejected as parse errors alongside malformed dates and times.
func ReconcileImport(rows []types.ScheduleImportRow, existingKeys, knownDoctors map[string]bool, now time.Time) *types.ScheduleImportReport {
	report := &types.ScheduleImportReport{
		Accepted: make([]*types.Schedule, 0, len(rows)),
		Rejected: make([]types.ScheduleImportRejection, 0),
	}
	seen := make(map[string]bool, len(rows))

	for i, row := range rows {
		parsed, err := parseImportRow(row)
		if err != nil {
			report.Rejected = append(report.Rejected, types.ScheduleImportRejection{
				Index:  i,
				Row:    row,
				Reason: types.ImportRejectParseError,
				Detail: err.Error(),
			})
			continue
		}
		if !knownDoctors[parsed.doctorID] {
			report.Rejected = append(report.Rejected, types.ScheduleImportRejection{
				Index:  i,
				Row:    row,
				Reason: types.ImportRejectParseError,
				Detail: fmt.Sprintf("doctor %s is not on record", parsed.doctorID),
			})
			continue
		}

		key := ImportKey(parsed.doctorID, parsed.workDate)
		if existingKeys[key] {
			report.Rejected = append(report.Rejected, types.ScheduleImportRejection{
				Index:  i,
				Row:    row,
				Reason: types.ImportRejectDuplicateExisting,
				Detail: "a schedule for this doctor and date already exists",
			})
			continue
		}
		if seen[key] {
			report.Rejected = append(report.Rejected, types.ScheduleImportRejection{
				Index:  i,
				Row:    row,
				Reason: types.ImportRejectDuplicateInBatch,
				Detail: "an earlier row in this upload already covers this doctor and date",
			})
			continue
		}
		seen[key] = true

		report.Accepted = append(report.Accepted, &types.Schedule{
			ID:          uuid.New().String(),
			DoctorID:    parsed.doctorID,
			WorkDate:    parsed.workDate,
			StartTime:   parsed.start,
			EndTime:     parsed.end,
			IsAvailable: true,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	report.Added = len(report.Accepted)
	report.Skipped = len(report.Rejected)
	return report
}

// ImportKey builds the uniqueness key for one doctor's schedule on one date
func ImportKey(doctorID string, workDate time.Time) string {
	return doctorID + "|" + workDate.Format("2006-01-02")
}
