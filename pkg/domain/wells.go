package domain

import "fmt"

// Well is a single (row, column) position on a plate; Row is the 1-based
// ordinal of the row letter.
type Well struct {
	Row int
	Col int
}

// WellRange is an inclusive rectangle of wells. Rows are single uppercase
// letters A..Z, columns are 1-based.
type WellRange struct {
	RowStart string `json:"row_start"`
	RowEnd   string `json:"row_end"`
	ColStart int    `json:"col_start"`
	ColEnd   int    `json:"col_end"`
}

func (r WellRange) String() string {
	return fmt.Sprintf("%s%02d:%s%02d", r.RowStart, r.ColStart, r.RowEnd, r.ColEnd)
}

// RowOrdinal converts a row letter to its 1-based ordinal.
func RowOrdinal(row string) (int, bool) {
	if len(row) != 1 || row[0] < 'A' || row[0] > 'Z' {
		return 0, false
	}
	return int(row[0]-'A') + 1, true
}

// RowLetter converts a 1-based ordinal back to its row letter.
func RowLetter(ordinal int) string {
	if ordinal < 1 || ordinal > 26 {
		return ""
	}
	return string(rune('A' + ordinal - 1))
}

// Validate checks letter syntax and start <= end on both axes.
func (r WellRange) Validate() error {
	start, ok := RowOrdinal(r.RowStart)
	if !ok {
		return &ValidationError{Entity: EntitySection, Field: "row_start", Value: r.RowStart, Reason: "must be a single uppercase letter"}
	}
	end, ok := RowOrdinal(r.RowEnd)
	if !ok {
		return &ValidationError{Entity: EntitySection, Field: "row_end", Value: r.RowEnd, Reason: "must be a single uppercase letter"}
	}
	if start > end {
		return &ValidationError{Entity: EntitySection, Field: "row_end", Value: r.RowEnd, Reason: "must not precede row_start " + r.RowStart}
	}
	if r.ColStart < 1 {
		return &ValidationError{Entity: EntitySection, Field: "col_start", Value: r.ColStart, Reason: "must be >= 1"}
	}
	if r.ColStart > r.ColEnd {
		return &ValidationError{Entity: EntitySection, Field: "col_end", Value: r.ColEnd, Reason: fmt.Sprintf("must not precede col_start %d", r.ColStart)}
	}
	return nil
}

func (r WellRange) rows() (int, int) {
	start, _ := RowOrdinal(r.RowStart)
	end, _ := RowOrdinal(r.RowEnd)
	return start, end
}

// Cells returns the cartesian product of the range's rows and columns in
// row-major order. The range is assumed valid.
func (r WellRange) Cells() []Well {
	rs, re := r.rows()
	out := make([]Well, 0, (re-rs+1)*(r.ColEnd-r.ColStart+1))
	for row := rs; row <= re; row++ {
		for col := r.ColStart; col <= r.ColEnd; col++ {
			out = append(out, Well{Row: row, Col: col})
		}
	}
	return out
}

// Contains reports whether the well at (row, col) lies inside the range.
func (r WellRange) Contains(row string, col int) bool {
	ord, ok := RowOrdinal(row)
	if !ok {
		return false
	}
	rs, re := r.rows()
	return ord >= rs && ord <= re && col >= r.ColStart && col <= r.ColEnd
}

// Within reports whether r lies entirely inside outer.
func (r WellRange) Within(outer WellRange) bool {
	rs, re := r.rows()
	ors, ore := outer.rows()
	return rs >= ors && re <= ore && r.ColStart >= outer.ColStart && r.ColEnd <= outer.ColEnd
}

// Overlaps reports whether the two ranges share at least one well. This is
// equivalent to a non-empty intersection of their Cells.
func (r WellRange) Overlaps(other WellRange) bool {
	rs, re := r.rows()
	ors, ore := other.rows()
	return rs <= ore && ors <= re && r.ColStart <= other.ColEnd && other.ColStart <= r.ColEnd
}

// PlateExtent returns the bounding range of the item coordinates of a plate.
// Items without row or column are ignored. ok is false when no item carries
// coordinates, in which case no section can be in bounds.
func PlateExtent(items []Item) (extent WellRange, ok bool) {
	minRow, maxRow, minCol, maxCol := 0, 0, 0, 0
	for _, it := range items {
		if it.Row == nil || it.Col == nil {
			continue
		}
		ord, valid := RowOrdinal(*it.Row)
		if !valid {
			continue
		}
		if !ok {
			minRow, maxRow, minCol, maxCol = ord, ord, *it.Col, *it.Col
			ok = true
			continue
		}
		minRow = min(minRow, ord)
		maxRow = max(maxRow, ord)
		minCol = min(minCol, *it.Col)
		maxCol = max(maxCol, *it.Col)
	}
	if !ok {
		return WellRange{}, false
	}
	return WellRange{RowStart: RowLetter(minRow), RowEnd: RowLetter(maxRow), ColStart: minCol, ColEnd: maxCol}, true
}
