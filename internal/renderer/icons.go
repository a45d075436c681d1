package renderer

// iconViewBox is the side of the square every icon path is drawn in.
const iconViewBox = 24.0

const defaultIcon = "default"

var icons = map[string]string{
	"default":     "M12 2a10 10 0 1 0 0 20a10 10 0 1 0 0-20z",
	"lightbulb":   "M9 21h6v-1H9v1zm3-19a7 7 0 0 0-4 12.7V17h8v-2.3A7 7 0 0 0 12 2z",
	"star":        "M12 2l3.09 6.26L22 9.27l-5 4.87 1.18 6.88L12 17.77l-6.18 3.25L7 14.14 2 9.27l6.91-1.01z",
	"check":       "M9 16.17L4.83 12l-1.42 1.41L9 19 21 7l-1.41-1.41z",
	"cross":       "M19 6.41L17.59 5 12 10.59 6.41 5 5 6.41 10.59 12 5 17.59 6.41 19 12 13.41 17.59 19 19 17.59 13.41 12z",
	"info":        "M12 2a10 10 0 1 0 0 20a10 10 0 1 0 0-20zm1 15h-2v-6h2v6zm0-8h-2V7h2v2z",
	"warning":     "M1 21h22L12 2 1 21zm12-3h-2v-2h2v2zm0-4h-2v-4h2v4z",
	"question":    "M12 2a10 10 0 1 0 0 20a10 10 0 1 0 0-20zm1 17h-2v-2h2v2zm2.07-7.75l-.9.92C13.45 12.9 13 13.5 13 15h-2v-.5c0-1.1.45-2.1 1.17-2.83l1.24-1.26A2 2 0 1 0 10 9H8a4 4 0 1 1 7.07 3.25z",
	"arrow-right": "M12 4l-1.41 1.41L16.17 11H4v2h12.17l-5.58 5.59L12 20l8-8z",
	"book":        "M18 2H6a2 2 0 0 0-2 2v16a2 2 0 0 0 2 2h12V2zM6 4h5v8l-2.5-1.5L6 12V4z",
	"atom":        "M12 10a2 2 0 1 0 0 4a2 2 0 1 0 0-4zM12 3c-1.9 0-3.4 4-3.4 9s1.5 9 3.4 9 3.4-4 3.4-9-1.5-9-3.4-9zM4.2 7.5c-.95 1.65 1.75 4.95 6.1 7.45s8.55 3.3 9.5 1.65-1.75-4.95-6.1-7.45-8.55-3.3-9.5-1.65z",
	"heart":       "M12 21.35l-1.45-1.32C5.4 15.36 2 12.28 2 8.5 2 5.42 4.42 3 7.5 3c1.74 0 3.41.81 4.5 2.09C13.09 3.81 14.76 3 16.5 3 19.58 3 22 5.42 22 8.5c0 3.78-3.4 6.86-8.55 11.54L12 21.35z",
	"gear":        "M19.14 12.94a7.07 7.07 0 0 0 0-1.88l2.03-1.58-1.92-3.32-2.39.96a7 7 0 0 0-1.62-.94L14.87 3.6h-3.84l-.37 2.58a7 7 0 0 0-1.62.94l-2.39-.96-1.92 3.32 2.03 1.58a7.07 7.07 0 0 0 0 1.88l-2.03 1.58 1.92 3.32 2.39-.96c.5.38 1.04.7 1.62.94l.37 2.58h3.84l.37-2.58a7 7 0 0 0 1.62-.94l2.39.96 1.92-3.32-2.03-1.58zM12 15.5a3.5 3.5 0 1 1 0-7 3.5 3.5 0 0 1 0 7z",
}

// lookupIcon returns the path data for name and whether it was found.
// Unknown names resolve to the default icon.
func lookupIcon(name string) (string, bool) {
	if d, ok := icons[name]; ok {
		return d, true
	}
	return icons[defaultIcon], false
}

