package conversation

import (
	"fmt"
	"strings"
)

// Confidence sections tracked while gathering requirements.
const (
	SectionDimensions    = "dimensions"
	SectionPurpose       = "purpose"
	SectionFeatures      = "features"
	SectionManufacturing = "manufacturing"
)

// MinConfidence is the per-section threshold for advancing to analysis.
const MinConfidence = 0.7

// Dimensions holds the requested size, in mm.
type Dimensions struct {
	Specified bool     `json:"specified"`
	Length    *float64 `json:"length,omitempty"`
	Width     *float64 `json:"width,omitempty"`
	Height    *float64 `json:"height,omitempty"`
}

// Physical holds structural requirements.
type Physical struct {
	NeedsStructuralAnalysis bool     `json:"needs_structural_analysis"`
	ExpectedLoad            *float64 `json:"expected_load,omitempty"` // kg
	Material                string   `json:"material"`
	WallThickness           *float64 `json:"wall_thickness,omitempty"` // mm
}

// Aesthetics holds form and finish preferences.
type Aesthetics struct {
	Style        string   `json:"style"`
	Finish       string   `json:"finish"`
	HasFillets   bool     `json:"has_fillets"`
	FilletRadius *float64 `json:"fillet_radius,omitempty"` // mm
}

// Manufacturing holds 3D-printing constraints.
type Manufacturing struct {
	PrinterType           string             `json:"printer_type"`
	MaxBuildVolume        map[string]float64 `json:"max_build_volume,omitempty"`
	LayerHeight           float64            `json:"layer_height"`
	NeedsSupports         *bool              `json:"needs_supports,omitempty"`
	OrientationPreference string             `json:"orientation_preference,omitempty"`
}

// Assembly describes how the part relates to siblings.
type Assembly struct {
	IsPartOfAssembly bool               `json:"is_part_of_assembly"`
	MatingParts      []string           `json:"mating_parts"`
	Tolerances       map[string]float64 `json:"tolerances"`
}

// Requirements is the structured design brief accumulated over the
// gathering phase. All fields are optional and merged incrementally.
type Requirements struct {
	Description   string             `json:"description"`
	Purpose       string             `json:"purpose"`
	Dimensions    Dimensions         `json:"dimensions"`
	Physical      Physical           `json:"physical"`
	Aesthetics    Aesthetics         `json:"aesthetics"`
	Features      []string           `json:"features"`
	Manufacturing Manufacturing      `json:"manufacturing"`
	Assembly      Assembly           `json:"assembly"`
	Confidence    map[string]float64 `json:"confidence"`
}

// NewRequirements returns a brief with the standard defaults.
func NewRequirements() *Requirements {
	return &Requirements{
		Physical:   Physical{Material: "PLA"},
		Aesthetics: Aesthetics{HasFillets: true},
		Manufacturing: Manufacturing{
			PrinterType: "FDM",
			LayerHeight: 0.2,
		},
		Confidence: map[string]float64{
			SectionDimensions:    0,
			SectionPurpose:       0,
			SectionFeatures:      0,
			SectionManufacturing: 0,
		},
	}
}

func (r *Requirements) clone() *Requirements {
	c := *r
	c.Features = append([]string(nil), r.Features...)
	c.Assembly.MatingParts = append([]string(nil), r.Assembly.MatingParts...)
	c.Confidence = make(map[string]float64, len(r.Confidence))
	for k, v := range r.Confidence {
		c.Confidence[k] = v
	}
	return &c
}

// RequirementsUpdate is a partial brief as returned by the requirements
// agent. Nil fields leave the current value untouched.
type RequirementsUpdate struct {
	Description *string `json:"description"`
	Purpose     *string `json:"purpose"`

	Dimensions *struct {
		Specified *bool    `json:"specified"`
		Length    *float64 `json:"length"`
		Width     *float64 `json:"width"`
		Height    *float64 `json:"height"`
	} `json:"dimensions"`

	Physical *struct {
		NeedsStructuralAnalysis *bool    `json:"needs_structural_analysis"`
		ExpectedLoad            *float64 `json:"expected_load"`
		Material                *string  `json:"material"`
		WallThickness           *float64 `json:"wall_thickness"`
	} `json:"physical"`

	Aesthetics *struct {
		Style        *string  `json:"style"`
		Finish       *string  `json:"finish"`
		HasFillets   *bool    `json:"has_fillets"`
		FilletRadius *float64 `json:"fillet_radius"`
	} `json:"aesthetics"`

	Features *[]string `json:"features"`

	Manufacturing *struct {
		PrinterType           *string  `json:"printer_type"`
		LayerHeight           *float64 `json:"layer_height"`
		NeedsSupports         *bool    `json:"needs_supports"`
		OrientationPreference *string  `json:"orientation_preference"`
	} `json:"manufacturing"`

	Assembly *struct {
		IsPartOfAssembly *bool               `json:"is_part_of_assembly"`
		MatingParts      *[]string           `json:"mating_parts"`
		Tolerances       *map[string]float64 `json:"tolerances"`
	} `json:"assembly"`
}

// Merge applies the non-nil fields of an update onto the brief.
func (r *Requirements) Merge(u *RequirementsUpdate) {
	if u == nil {
		return
	}
	if u.Description != nil {
		r.Description = *u.Description
	}
	if u.Purpose != nil {
		r.Purpose = *u.Purpose
	}
	if d := u.Dimensions; d != nil {
		if d.Specified != nil {
			r.Dimensions.Specified = *d.Specified
		}
		if d.Length != nil {
			r.Dimensions.Length = d.Length
		}
		if d.Width != nil {
			r.Dimensions.Width = d.Width
		}
		if d.Height != nil {
			r.Dimensions.Height = d.Height
		}
	}
	if p := u.Physical; p != nil {
		if p.NeedsStructuralAnalysis != nil {
			r.Physical.NeedsStructuralAnalysis = *p.NeedsStructuralAnalysis
		}
		if p.ExpectedLoad != nil {
			r.Physical.ExpectedLoad = p.ExpectedLoad
		}
		if p.Material != nil {
			r.Physical.Material = *p.Material
		}
		if p.WallThickness != nil {
			r.Physical.WallThickness = p.WallThickness
		}
	}
	if a := u.Aesthetics; a != nil {
		if a.Style != nil {
			r.Aesthetics.Style = *a.Style
		}
		if a.Finish != nil {
			r.Aesthetics.Finish = *a.Finish
		}
		if a.HasFillets != nil {
			r.Aesthetics.HasFillets = *a.HasFillets
		}
		if a.FilletRadius != nil {
			r.Aesthetics.FilletRadius = a.FilletRadius
		}
	}
	if u.Features != nil {
		r.Features = *u.Features
	}
	if m := u.Manufacturing; m != nil {
		if m.PrinterType != nil {
			r.Manufacturing.PrinterType = *m.PrinterType
		}
		if m.LayerHeight != nil {
			r.Manufacturing.LayerHeight = *m.LayerHeight
		}
		if m.NeedsSupports != nil {
			r.Manufacturing.NeedsSupports = m.NeedsSupports
		}
		if m.OrientationPreference != nil {
			r.Manufacturing.OrientationPreference = *m.OrientationPreference
		}
	}
	if a := u.Assembly; a != nil {
		if a.IsPartOfAssembly != nil {
			r.Assembly.IsPartOfAssembly = *a.IsPartOfAssembly
		}
		if a.MatingParts != nil {
			r.Assembly.MatingParts = *a.MatingParts
		}
		if a.Tolerances != nil {
			r.Assembly.Tolerances = *a.Tolerances
		}
	}
}

// UpdateConfidence applies new per-section scores, clamped to [0, 1].
func (r *Requirements) UpdateConfidence(scores map[string]float64) {
	for section, score := range scores {
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		r.Confidence[section] = score
	}
}

// ReadyToDesign reports whether every tracked section clears the
// confidence threshold.
func (r *Requirements) ReadyToDesign() bool {
	for _, section := range []string{SectionDimensions, SectionPurpose, SectionFeatures, SectionManufacturing} {
		if r.Confidence[section] < MinConfidence {
			return false
		}
	}
	return true
}

// Reset keeps only the description, restoring everything else to the
// defaults. Used when the user restarts a design.
func (r *Requirements) Reset() {
	description := r.Description
	*r = *NewRequirements()
	r.Description = description
}

// DesignPrompt builds the comprehensive brief handed to the pipeline,
// concatenating non-empty fields in a stable order.
func (r *Requirements) DesignPrompt() string {
	parts := []string{fmt.Sprintf("Create a 3D part: %s", r.Description)}

	if r.Purpose != "" {
		parts = append(parts, fmt.Sprintf("Purpose: %s", r.Purpose))
	}
	if r.Dimensions.Specified {
		var dims []string
		if r.Dimensions.Length != nil {
			dims = append(dims, fmt.Sprintf("length=%gmm", *r.Dimensions.Length))
		}
		if r.Dimensions.Width != nil {
			dims = append(dims, fmt.Sprintf("width=%gmm", *r.Dimensions.Width))
		}
		if r.Dimensions.Height != nil {
			dims = append(dims, fmt.Sprintf("height=%gmm", *r.Dimensions.Height))
		}
		if len(dims) > 0 {
			parts = append(parts, fmt.Sprintf("Dimensions: %s", strings.Join(dims, ", ")))
		}
	}
	if r.Physical.WallThickness != nil {
		parts = append(parts, fmt.Sprintf("Wall thickness: %gmm", *r.Physical.WallThickness))
	}
	if len(r.Features) > 0 {
		parts = append(parts, fmt.Sprintf("Features: %s", strings.Join(r.Features, ", ")))
	}
	if r.Aesthetics.Style != "" {
		parts = append(parts, fmt.Sprintf("Style: %s", r.Aesthetics.Style))
	}
	if r.Physical.Material != "PLA" {
		parts = append(parts, fmt.Sprintf("Material: %s", r.Physical.Material))
	}
	if r.Physical.ExpectedLoad != nil {
		parts = append(parts, fmt.Sprintf("Expected load: %gkg", *r.Physical.ExpectedLoad))
	}
	if r.Assembly.IsPartOfAssembly {
		parts = append(parts, fmt.Sprintf("Part of an assembly with: %s", strings.Join(r.Assembly.MatingParts, ", ")))
	}

	return strings.Join(parts, "\n")
}
