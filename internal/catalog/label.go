package catalog

import (
	"fmt"
	"strings"
)

// LabelType identifies the kind of entity a Label names.
type LabelType string

// Label types supported by the catalog.
const (
	Authors   LabelType = "Authors"
	Genres    LabelType = "Genres"
	Location  LabelType = "Location"
	Publisher LabelType = "Publisher"
	Language  LabelType = "Language"
)

// AllLabelTypes lists every label type, in display order.
var AllLabelTypes = []LabelType{Authors, Genres, Location, Publisher, Language}

// ParseLabelType converts a user-supplied string into a LabelType,
// ignoring case.
func ParseLabelType(s string) (LabelType, error) {
	for _, t := range AllLabelTypes {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown label type %q", s)
}

// Label is a canonical named entity of a fixed type. Two Labels with the
// same type and name always share the same ID; Labels are immutable once
// created.
type Label struct {
	ID   int64
	Type LabelType
	Name string
}

func (l *Label) String() string {
	return l.Name
}
