package models

// Folder groups notes under a name and a display colour.
type Folder struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Colour tokens offered when creating a folder.
const (
	ColorBlue   = "bg-blue-500"
	ColorGreen  = "bg-green-500"
	ColorPurple = "bg-purple-500"
	ColorRed    = "bg-red-500"
	ColorYellow = "bg-yellow-500"
	ColorPink   = "bg-pink-500"
	ColorIndigo = "bg-indigo-500"
	ColorOrange = "bg-orange-500"

	// ColorUnassigned is shown for notes whose folder cannot be resolved.
	ColorUnassigned = "bg-gray-500"
)

// DefaultColor is preselected in the folder dialog.
const DefaultColor = ColorBlue

// UnassignedFolderName labels notes whose folder cannot be resolved.
const UnassignedFolderName = "Unknown"

// Palette returns the fixed set of folder colours in display order.
func Palette() []string {
	return []string{
		ColorBlue,
		ColorGreen,
		ColorPurple,
		ColorRed,
		ColorYellow,
		ColorPink,
		ColorIndigo,
		ColorOrange,
	}
}

// PaletteValues returns the palette as a slice of any, for use with validation.In.
func PaletteValues() []any {
	p := Palette()
	out := make([]any, len(p))
	for i, c := range p {
		out[i] = c
	}
	return out
}

// Unassigned returns the placeholder folder used for dangling references.
func Unassigned() Folder {
	return Folder{Name: UnassignedFolderName, Color: ColorUnassigned}
}
