// Package scan reads the header fields of an incoming DICOM scan that the
// import context is resolved from.
package scan

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/importctx/internal/modality"
	"github.com/mrsinham/importctx/internal/model"
	"github.com/mrsinham/importctx/internal/util"
)

// Info is the subset of a scan header used by the wizard.
type Info struct {
	Fingerprint      model.EquipmentFingerprint
	PatientName      string
	PatientID        string
	BirthDate        string
	Sex              string
	StudyDescription string
	StudyDate        string
	InstitutionName  string
	Modality         modality.Modality
	SeriesDate       string

	ds dicom.Dataset
}

// FromFile parses the header of a DICOM file and extracts its Info. Files
// that do not parse cleanly, typically because of malformed vendor private
// elements, are read element by element up to the first bad one.
func FromFile(path string) (Info, error) {
	ds, err := dicom.ParseFile(path, nil, dicom.SkipPixelData())
	if err == nil {
		return FromDataset(ds), nil
	}
	partial, perr := parseTolerant(path)
	if perr != nil {
		return Info{}, eris.Wrapf(err, "parse %s", path)
	}
	return FromDataset(partial), nil
}

// parseTolerant collects the elements that parse before the first error.
func parseTolerant(path string) (dicom.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return dicom.Dataset{}, err
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return dicom.Dataset{}, err
	}
	p, err := dicom.NewParser(f, st.Size(), nil, dicom.SkipPixelData())
	if err != nil {
		return dicom.Dataset{}, err
	}

	var elements []*dicom.Element
	for {
		elem, err := p.Next()
		if err != nil {
			break
		}
		elements = append(elements, elem)
	}
	if len(elements) == 0 {
		return dicom.Dataset{}, eris.New("no elements parsed")
	}
	meta := p.GetMetadata()
	return dicom.Dataset{Elements: append(meta.Elements, elements...)}, nil
}

// FromDataset extracts Info from an already parsed dataset. Missing tags
// leave their field empty.
func FromDataset(ds dicom.Dataset) Info {
	get := func(t tag.Tag) string { return firstString(ds, t) }
	return Info{
		Fingerprint: model.EquipmentFingerprint{
			SerialNumber:     get(tag.DeviceSerialNumber),
			ModelName:        get(tag.ManufacturerModelName),
			ManufacturerName: get(tag.Manufacturer),
		},
		PatientName:      get(tag.PatientName),
		PatientID:        get(tag.PatientID),
		BirthDate:        get(tag.PatientBirthDate),
		Sex:              get(tag.PatientSex),
		StudyDescription: get(tag.StudyDescription),
		StudyDate:        get(tag.StudyDate),
		InstitutionName:  get(tag.InstitutionName),
		Modality:         modality.Normalize(get(tag.Modality)),
		SeriesDate:       get(tag.SeriesDate),
		ds:               ds,
	}
}

// Tag returns the value of a registered tag by name, as accepted by
// util.GetTagByName.
func (i Info) Tag(name string) (string, error) {
	info, err := util.GetTagByName(name)
	if err != nil {
		return "", err
	}
	return firstString(i.ds, info.Tag), nil
}

// Date is the acquisition date drafts are stamped with: the series date,
// falling back to the study date.
func (i Info) Date() string {
	if i.SeriesDate != "" {
		return i.SeriesDate
	}
	return i.StudyDate
}

func firstString(ds dicom.Dataset, t tag.Tag) string {
	elem, err := ds.FindElementByTag(t)
	if err != nil || elem == nil || elem.Value == nil {
		return ""
	}
	values, ok := elem.Value.GetValue().([]string)
	if !ok || len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}
