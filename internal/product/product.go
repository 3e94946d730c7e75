package product

// Product is a catalog snapshot fetched live from the products API.
// It is never persisted here; carts and orders store only the product id.
type Product struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}
