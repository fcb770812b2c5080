package util

import "strings"

// PersonNameSeparator separates the components of a DICOM person name,
// family name first: "DOE^JOHN".
const PersonNameSeparator = "^"

// SplitPatientName returns the first and last name held in a DICOM patient
// name. Names that do not split into exactly two components are returned
// whole as both first and last name.
func SplitPatientName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	parts := strings.Split(name, PersonNameSeparator)
	if len(parts) != 2 {
		return name, name
	}
	return strings.TrimSpace(parts[1]), strings.TrimSpace(parts[0])
}

// DisplayName renders a DICOM patient name for operators: "JOHN DOE".
func DisplayName(name string) string {
	first, last := SplitPatientName(name)
	if first == last {
		return first
	}
	return strings.TrimSpace(first + " " + last)
}
