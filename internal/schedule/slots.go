package schedule

import (
	"fmt"
	"sort"
	"strings"
)

// HourSlot maps an integer hour identifier to a wall-clock window within a
// day, expressed in minutes since midnight.
type HourSlot struct {
	Hour        int
	Label       string
	StartMinute int
	EndMinute   int
}

// DefaultSlots is the college hour table (12 working hours, 50 minutes each).
// Slot 6 is configured with a midnight window, out of clock order with its
// neighbours; the resolver must not assume windows are monotonic in Hour.
var DefaultSlots = []HourSlot{
	{Hour: 1, Label: "7:10 - 8:00", StartMinute: 7*60 + 10, EndMinute: 8 * 60},
	{Hour: 2, Label: "8:00 - 8:50", StartMinute: 8 * 60, EndMinute: 8*60 + 50},
	{Hour: 3, Label: "9:20 - 10:10", StartMinute: 9*60 + 20, EndMinute: 10*60 + 10},
	{Hour: 4, Label: "10:10 - 11:00", StartMinute: 10*60 + 10, EndMinute: 11 * 60},
	{Hour: 5, Label: "11:10 - 12:00", StartMinute: 11*60 + 10, EndMinute: 12 * 60},
	{Hour: 6, Label: "12:00 - 12:50", StartMinute: 0, EndMinute: 50},
	{Hour: 7, Label: "12:55 - 1:45", StartMinute: 12*60 + 55, EndMinute: 13*60 + 45},
	{Hour: 8, Label: "1:50 - 2:40", StartMinute: 13*60 + 50, EndMinute: 14*60 + 40},
	{Hour: 9, Label: "2:40 - 3:30", StartMinute: 14*60 + 40, EndMinute: 15*60 + 30},
	{Hour: 10, Label: "3:50 - 4:40", StartMinute: 15*60 + 50, EndMinute: 16*60 + 40},
	{Hour: 11, Label: "4:40 - 5:30", StartMinute: 16*60 + 40, EndMinute: 17*60 + 30},
	{Hour: 12, Label: "5:30 - 6:20", StartMinute: 17*60 + 30, EndMinute: 18*60 + 20},
}

// SlotTable is an immutable lookup from hour id to slot, loaded once.
type SlotTable struct {
	byHour map[int]HourSlot
}

// NewSlotTable builds a table from the given slots. Hour ids must be unique.
func NewSlotTable(slots []HourSlot) (*SlotTable, error) {
	byHour := make(map[int]HourSlot, len(slots))
	for _, s := range slots {
		if _, dup := byHour[s.Hour]; dup {
			return nil, fmt.Errorf("duplicate hour slot %d", s.Hour)
		}
		byHour[s.Hour] = s
	}
	return &SlotTable{byHour: byHour}, nil
}

// DefaultTable returns the table for DefaultSlots.
func DefaultTable() *SlotTable {
	t, err := NewSlotTable(DefaultSlots)
	if err != nil {
		panic(err) // static table, unreachable
	}
	return t
}

// Lookup returns the slot for an hour id.
func (t *SlotTable) Lookup(hour int) (HourSlot, bool) {
	s, ok := t.byHour[hour]
	return s, ok
}

// TimeRange renders the combined human-readable range of an hour set, from
// the first slot's start label to the last slot's end label. Unknown hours
// yield an empty string.
func (t *SlotTable) TimeRange(hours []int) string {
	if len(hours) == 0 {
		return ""
	}
	sorted := append([]int(nil), hours...)
	sort.Ints(sorted)

	first, okFirst := t.Lookup(sorted[0])
	last, okLast := t.Lookup(sorted[len(sorted)-1])
	if !okFirst || !okLast {
		return ""
	}
	return splitLabel(first.Label, 0) + " - " + splitLabel(last.Label, 1)
}

// splitLabel extracts the start (0) or end (1) half of a "start - end" label.
func splitLabel(label string, half int) string {
	parts := strings.SplitN(label, " - ", 2)
	if len(parts) != 2 {
		return label
	}
	return parts[half]
}
