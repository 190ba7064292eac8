package prompts

import "strings"

// Keywords that trigger extension-library pattern injection. French
// aliases stay in so mixed-language requests still match.
var libraryTriggers = map[string][]string{
	"fastener":   {"screw", "bolt", "nut", "washer", "fastener", "vis", "écrou", "boulon", "rondelle"},
	"thread":     {"thread", "threading", "threaded", "filetage", "fileté", "taraudage"},
	"gear":       {"gear", "cog", "engrenage", "pignon", "crémaillère", "rack"},
	"bearing":    {"bearing", "roulement", "palier"},
	"gridfinity": {"gridfinity", "bin", "organizer", "rangement", "casier"},
	"chain":      {"chain", "chaîne", "maillon"},
}

// CQWarehousePatterns covers fasteners, bearings, threads and chains.
const CQWarehousePatterns = `
## CQ-WAREHOUSE - Fasteners, Bearings, Threads

cq-warehouse provides pre-built parametric mechanical components.

### Import
` + "```" + `python
import cadquery as cq
from cq_warehouse.fastener import SocketHeadCapScrew, HexNut, Washer
from cq_warehouse.bearing import SingleRowDeepGrooveBallBearing
from cq_warehouse.thread import IsoThread
from cq_warehouse.chain import Chain
` + "```" + `

### Fasteners
` + "```" + `python
import cadquery as cq
from cq_warehouse.fastener import SocketHeadCapScrew, HexNut, CounterSunkScrew

# M5x20 socket head cap screw
screw = SocketHeadCapScrew(size="M5-0.8", length=20, fastener_type="iso4762")

# M5 hex nut
nut = HexNut(size="M5-0.8", fastener_type="iso4032")

# M4x15 countersunk screw
countersunk = CounterSunkScrew(size="M4-0.7", length=15, fastener_type="iso10642")

# Matching clearance holes in a part:
plate = (
    cq.Workplane("XY")
    .box(50, 50, 10)
    .faces(">Z")
    .workplane()
    .clearanceHole(fastener=screw, fit="Normal", counterSunk=False)
)
result = plate
` + "```" + `

### Threads
` + "```" + `python
import cadquery as cq
from cq_warehouse.thread import IsoThread

# External M10 thread, 20mm long
external_thread = IsoThread(major_diameter=10, pitch=1.5, length=20, external=True)

# Internal (tapped) M10 thread
internal_thread = IsoThread(major_diameter=10, pitch=1.5, length=15, external=False)

base = cq.Workplane("XY").cylinder(20, 5)
result = base.union(external_thread.cq_object.translate((0, 0, 20)))
` + "```" + `

### Bearings
` + "```" + `python
import cadquery as cq
from cq_warehouse.bearing import SingleRowDeepGrooveBallBearing

# 608 skateboard bearing: 8mm bore, 22mm OD, 7mm width
bearing = SingleRowDeepGrooveBallBearing(size="M8-22-7", bearing_type="SKT")

housing = (
    cq.Workplane("XY")
    .cylinder(15, bearing.bearing_dict["d2"] / 2 + 3)
    .faces(">Z")
    .workplane()
    .hole(bearing.bearing_dict["d2"])
)
result = housing
` + "```" + `

### Standard fastener sizes
- **ISO 4762**: socket head cap screws - M2 to M24
- **ISO 4032**: hex nuts - M2 to M24
- **ISO 10642**: countersunk screws - M3 to M20
- **ISO 7380**: button head screws - M3 to M12
`

// CQGearsPatterns covers parametric gear generation.
const CQGearsPatterns = `
## CQ_GEARS - Parametric Gears

cq_gears creates involute, helical, and bevel gears.

### Import
` + "```" + `python
import cadquery as cq
from cq_gears import SpurGear, HerringboneGear, BevelGear, RingGear
` + "```" + `

### Spur gear
` + "```" + `python
import cadquery as cq
from cq_gears import SpurGear

# 20 teeth, module 2, 10mm wide
gear = SpurGear(module=2.0, teeth_number=20, width=10.0, bore_d=8.0)
result = gear.build()
` + "```" + `

### Herringbone gear
` + "```" + `python
import cadquery as cq
from cq_gears import HerringboneGear

gear = HerringboneGear(module=2.0, teeth_number=30, width=15.0, helix_angle=25.0, bore_d=10.0)
result = gear.build()
` + "```" + `

### Ring gear (internal)
` + "```" + `python
import cadquery as cq
from cq_gears import RingGear

ring = RingGear(module=2.0, teeth_number=40, width=10.0, rim_width=5.0)
result = ring.build()
` + "```" + `

### Pinion/gear pair
` + "```" + `python
import cadquery as cq
from cq_gears import SpurGear

# 1:3 ratio - 15-tooth pinion, 45-tooth gear
module = 1.5

pinion = SpurGear(module=module, teeth_number=15, width=8.0, bore_d=5.0)
gear = SpurGear(module=module, teeth_number=45, width=8.0, bore_d=10.0)

# Center distance = module * (z1 + z2) / 2
center_distance = module * (15 + 45) / 2  # = 45mm

result = pinion.build().union(gear.build().translate((center_distance, 0, 0)))
` + "```" + `
`

// CQGridfinityPatterns covers the modular storage system.
const CQGridfinityPatterns = `
## CQ-GRIDFINITY - Modular Storage System

cq-gridfinity builds Gridfinity bins and baseplates.

### Import
` + "```" + `python
import cadquery as cq
from cq_gridfinity import GridfinityBox, GridfinityBaseplate
` + "```" + `

### Simple bin
` + "```" + `python
import cadquery as cq
from cq_gridfinity import GridfinityBox

# 2x3 units, 4 units tall (about 28mm)
box = GridfinityBox(
    length_u=2,          # width in units (42mm per unit)
    width_u=3,
    height_u=4,          # height in units (7mm per unit)
    wall_thickness=1.2,
    with_label=True,
    with_scoop=True
)
result = box.build()
` + "```" + `

### Bin with compartments
` + "```" + `python
import cadquery as cq
from cq_gridfinity import GridfinityBox

box = GridfinityBox(
    length_u=3,
    width_u=2,
    height_u=3,
    wall_thickness=1.2,
    divisions_x=3,
    divisions_y=2,
)
result = box.build()
` + "```" + `

### Baseplate
` + "```" + `python
import cadquery as cq
from cq_gridfinity import GridfinityBaseplate

baseplate = GridfinityBaseplate(
    length_u=4,
    width_u=4,
    with_magnets=True,   # 6x2mm magnet holes
    magnet_diameter=6.0,
    magnet_depth=2.4
)
result = baseplate.build()
` + "```" + `

### Standard Gridfinity dimensions
- 1 unit = 42mm x 42mm
- Height: 7mm per unit
- Standard bin/base clearance: 0.5mm
- Magnet holes: 6mm diameter, 2-2.4mm deep
`

// CQKitPatterns covers the utility helpers.
const CQKitPatterns = `
## CQ-KIT - Utilities and Helpers

cq-kit provides helpers for common CadQuery operations.

### Import
` + "```" + `python
import cadquery as cq
from cqkit import rounded_box, extrude_text, array_along_curve
` + "```" + `

### Reliable rounded box
` + "```" + `python
import cadquery as cq
from cqkit import rounded_box

result = rounded_box(length=100, width=60, height=30, fillet_radius=3.0)
` + "```" + `

### Embossed text
` + "```" + `python
import cadquery as cq
from cqkit import extrude_text

base = cq.Workplane("XY").box(80, 30, 5)
text = extrude_text(text="Hello", font_size=12, depth=2.0, font="Arial")
result = base.union(text.translate((0, 0, 5)))
` + "```" + `
`

const libraryEnhancementHeader = `
## AVAILABLE CADQUERY LIBRARIES

You have access to several CadQuery extension libraries. Use them when appropriate:

`

const libraryEnhancementFooter = `

## LIBRARY USAGE RULES

1. **Import only what you need**: import only the modules actually used
2. **Prefer pre-built components**: use the libraries instead of re-modeling screws, gears, etc.
3. **Combine with native CadQuery**: these libraries return standard CadQuery objects
4. **Always produce result**: the code must always define a 'result' variable

## WHEN TO USE EACH LIBRARY

- **Screws, nuts, washers, threads** -> cq-warehouse
- **Gears, pinions, racks** -> cq_gears
- **Modular storage, bins** -> cq-gridfinity
- **Utilities, text, patterns** -> cq-kit
`

func wrapPatterns(sections []string) string {
	return libraryEnhancementHeader + strings.Join(sections, "\n\n") + libraryEnhancementFooter
}

// RelevantPatterns scans the request for trigger keywords and returns the
// matching library pattern blocks, or "" when nothing matches.
func RelevantPatterns(request string) string {
	lower := strings.ToLower(request)
	var sections []string

	matches := func(category string) bool {
		for _, keyword := range libraryTriggers[category] {
			if strings.Contains(lower, keyword) {
				return true
			}
		}
		return false
	}
	add := func(pattern string) {
		for _, s := range sections {
			if s == pattern {
				return
			}
		}
		sections = append(sections, pattern)
	}

	if matches("fastener") || matches("thread") || matches("bearing") || matches("chain") {
		add(CQWarehousePatterns)
	}
	if matches("gear") {
		add(CQGearsPatterns)
	}
	if matches("gridfinity") {
		add(CQGridfinityPatterns)
	}

	if len(sections) == 0 {
		return ""
	}
	return wrapPatterns(sections)
}

// AllPatterns returns every library pattern block, for comprehensive
// generation contexts.
func AllPatterns() string {
	return wrapPatterns([]string{
		CQWarehousePatterns,
		CQGearsPatterns,
		CQGridfinityPatterns,
		CQKitPatterns,
	})
}
