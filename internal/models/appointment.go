package models

// DateLayout is the wire and cell format for all dose dates.
const DateLayout = "2006-01-02"

// RemindedValue is written into a dose's status cell once its reminder went
// out. The cell is empty before that and never changes back.
const RemindedValue = "reminded"

// Sheet column order. One AppointmentRecord is one row, columns A..K.
const (
	ColSubmissionID = iota
	ColUserID
	ColUserName
	ColUserPhone
	ColVaccineName
	ColFirstDoseDate
	ColSecondDoseDate
	ColThirdDoseDate
	ColFormTimestamp
	ColSecondDoseReminded
	ColThirdDoseReminded
	columnCount
)

// Dose identifies a follow-up dose of a record.
type Dose int

const (
	DoseSecond Dose = iota + 2
	DoseThird
)

func (d Dose) String() string {
	if d == DoseThird {
		return "third"
	}
	return "second"
}

// StatusColumn returns the sheet column index of the dose's reminded cell.
func (d Dose) StatusColumn() int {
	if d == DoseThird {
		return ColThirdDoseReminded
	}
	return ColSecondDoseReminded
}

// AppointmentRecord is one submitted vaccine appointment as persisted in the
// sheet. ThirdDoseDate is empty unless the vaccine has a 3-dose schedule.
type AppointmentRecord struct {
	SubmissionID       string
	UserID             string
	UserName           string
	UserPhone          string
	VaccineName        string
	FirstDoseDate      string
	SecondDoseDate     string
	ThirdDoseDate      string
	FormTimestamp      string
	SecondDoseReminded bool
	ThirdDoseReminded  bool
}

// DoseDate returns the due date cell for the given dose ("" when the vaccine
// has no such dose).
func (r AppointmentRecord) DoseDate(d Dose) string {
	if d == DoseThird {
		return r.ThirdDoseDate
	}
	return r.SecondDoseDate
}

// Reminded reports whether the dose's reminder already went out.
func (r AppointmentRecord) Reminded(d Dose) bool {
	if d == DoseThird {
		return r.ThirdDoseReminded
	}
	return r.SecondDoseReminded
}

// ToRow lays the record out in sheet column order for values.append.
func (r AppointmentRecord) ToRow() []interface{} {
	row := make([]interface{}, columnCount)
	row[ColSubmissionID] = r.SubmissionID
	row[ColUserID] = r.UserID
	row[ColUserName] = r.UserName
	row[ColUserPhone] = r.UserPhone
	row[ColVaccineName] = r.VaccineName
	row[ColFirstDoseDate] = r.FirstDoseDate
	row[ColSecondDoseDate] = r.SecondDoseDate
	row[ColThirdDoseDate] = r.ThirdDoseDate
	row[ColFormTimestamp] = r.FormTimestamp
	row[ColSecondDoseReminded] = flag(r.SecondDoseReminded)
	row[ColThirdDoseReminded] = flag(r.ThirdDoseReminded)
	return row
}

// RecordFromRow rebuilds a record from a sheet row. Rows written before a
// reminder fired are shorter than columnCount; missing cells read as empty.
func RecordFromRow(row []interface{}) AppointmentRecord {
	return AppointmentRecord{
		SubmissionID:       cell(row, ColSubmissionID),
		UserID:             cell(row, ColUserID),
		UserName:           cell(row, ColUserName),
		UserPhone:          cell(row, ColUserPhone),
		VaccineName:        cell(row, ColVaccineName),
		FirstDoseDate:      cell(row, ColFirstDoseDate),
		SecondDoseDate:     cell(row, ColSecondDoseDate),
		ThirdDoseDate:      cell(row, ColThirdDoseDate),
		FormTimestamp:      cell(row, ColFormTimestamp),
		SecondDoseReminded: cell(row, ColSecondDoseReminded) == RemindedValue,
		ThirdDoseReminded:  cell(row, ColThirdDoseReminded) == RemindedValue,
	}
}

func cell(row []interface{}, i int) string {
	if i >= len(row) {
		return ""
	}
	s, _ := row[i].(string)
	return s
}

func flag(set bool) string {
	if set {
		return RemindedValue
	}
	return ""
}

// SubmissionRequest is the POST /saveData body.
type SubmissionRequest struct {
	UserName        string `json:"userName"`
	UserPhone       string `json:"userPhone"`
	VaccineName     string `json:"vaccineName"`
	AppointmentDate string `json:"appointmentDate"`
	UserID          string `json:"userID"`
	FormTime        string `json:"formTime"`
}

// MissingFields lists the mandatory fields absent from the request, in a
// stable order so error messages are deterministic.
func (r SubmissionRequest) MissingFields() []string {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"userName", r.UserName},
		{"userPhone", r.UserPhone},
		{"vaccineName", r.VaccineName},
		{"appointmentDate", r.AppointmentDate},
		{"userID", r.UserID},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}
