package core

// Color is a palette token assigned to a wallet at creation.
type Color string

// Palette is the fixed ordered list of wallet colors. New wallets cycle
// through it by creation order.
var Palette = [...]Color{
	"#ef4444", // red
	"#f97316", // orange
	"#eab308", // yellow
	"#22c55e", // green
	"#06b6d4", // cyan
	"#3b82f6", // blue
	"#8b5cf6", // violet
	"#ec4899", // pink
	"#f43f5e", // rose
	"#14b8a6", // teal
}

// ColorAt returns Palette[index mod len(Palette)]. Negative indexes wrap too.
func ColorAt(index int) Color {
	n := len(Palette)
	i := index % n
	if i < 0 {
		i += n
	}
	return Palette[i]
}
