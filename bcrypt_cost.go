//go:build !race

package hirewire

func passwordHashCost() int {
	return 14
}
