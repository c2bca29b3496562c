package scheduling

import (
	"time"

	"github.com/clinicdesk/registry/pkg/types"
)

// GenerateSlots divides a schedule's working window into half-open candidate
// slots of the given length. Slots are emitted in ascending order. When the
// window length is not a multiple of the slot length the final slot is
// clipped to end exactly at the window end; a slot shorter than slotLength
// is still a valid booking target.
func GenerateSlots(schedule *types.Schedule, slotLength time.Duration) []*types.TimeSlot {
	if schedule == nil || slotLength <= 0 {
		return nil
	}
	if !schedule.EndTime.After(schedule.StartTime) {
		return nil
	}

	var slots []*types.TimeSlot
	for cursor := schedule.StartTime; cursor.Before(schedule.EndTime); cursor = cursor.Add(slotLength) {
		end := cursor.Add(slotLength)
		if end.After(schedule.EndTime) {
			end = schedule.EndTime
		}
		slots = append(slots, &types.TimeSlot{
			StartTime: cursor,
			EndTime:   end,
		})
	}
	return slots
}

// Overlaps reports whether two half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Intervals that merely touch at a boundary do
// not overlap, so back-to-back appointments are always compatible.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// IntervalFree reports whether the interval [start, end) collides with none
// of the given appointments. Cancelled appointments never block, and the
// appointment identified by excludeID is ignored so a move can land on time
// currently held by the appointment being moved.
func IntervalFree(appointments []*types.Appointment, start, end time.Time, excludeID string) bool {
	for _, apt := range appointments {
		if apt.Status == string(types.StatusCancelled) {
			continue
		}
		if excludeID != "" && apt.ID == excludeID {
			continue
		}
		if Overlaps(start, end, apt.StartTime, apt.EndTime) {
			return false
		}
	}
	return true
}

// HasFreeSlot reports whether at least one candidate slot of the schedule is
// not blocked by the given appointments, stopping at the first free slot.
func HasFreeSlot(schedule *types.Schedule, appointments []*types.Appointment, slotLength time.Duration) bool {
	for _, slot := range GenerateSlots(schedule, slotLength) {
		if IntervalFree(appointments, slot.StartTime, slot.EndTime, "") {
			return true
		}
	}
	return false
}

// FreeSlots filters the candidate slots of a schedule down to those not
// blocked by any of the given appointments.
func FreeSlots(schedule *types.Schedule, appointments []*types.Appointment, slotLength time.Duration) []*types.TimeSlot {
	candidates := GenerateSlots(schedule, slotLength)
	free := make([]*types.TimeSlot, 0, len(candidates))
	for _, slot := range candidates {
		if IntervalFree(appointments, slot.StartTime, slot.EndTime, "") {
			free = append(free, slot)
		}
	}
	return free
}
