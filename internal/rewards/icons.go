package rewards

const (
	IconCoffee       = "Coffee"
	IconBus          = "Bus"
	IconShoppingCart = "ShoppingCart"
	IconGift         = "Gift"
)

// Icons lists the icon keys clients know how to draw.
var Icons = []string{IconCoffee, IconBus, IconShoppingCart, IconGift}

// ResolveIcon maps unknown or empty keys to the gift icon.
func ResolveIcon(key string) string {
	for _, k := range Icons {
		if k == key {
			return k
		}
	}
	return IconGift
}
