package domain

// Avatars is the catalog of selectable avatar tokens. The roster's collision
// rule only cares that tokens are comparable strings; the catalog itself is
// presentation data served to clients as-is.
var Avatars = []string{
	"🐶", "🐱", "🐭", "🐹", "🐰", "🦊",
	"🐻", "🐼", "🐨", "🐯", "🦁",
	"🐮", "🐷", "🐸", "🐵", "🐔",
	"🐧", "🐦", "🦆", "🦉",
}
