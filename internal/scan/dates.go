package scan

import "time"

const dicomDate = "20060102"

// ISODate renders a DICOM DA value as an ISO 8601 date. Partial dates keep
// their precision: "1980" and "198001" become "1980" and "1980-01". Values
// that are not DICOM dates are returned unchanged.
func ISODate(da string) string {
	switch len(da) {
	case 8:
		if t, err := time.Parse(dicomDate, da); err == nil {
			return t.Format(time.DateOnly)
		}
	case 6:
		if t, err := time.Parse("200601", da); err == nil {
			return t.Format("2006-01")
		}
	case 4:
		if _, err := time.Parse("2006", da); err == nil {
			return da
		}
	}
	return da
}
